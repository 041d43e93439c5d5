// Package store implements the process-local record store behind the Carebot
// backend: three collections (patients, documents, upload sessions) held in
// memory and persisted on demand to a single JSON backing file.
//
// The store is an injected handle, not a package singleton. Every read and
// mutation is serialized by one mutex, which is the single-writer discipline
// the whole-file-overwrite persistence model requires. Lookups are linear
// scans; there are no secondary indexes.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/domain/document"
	"github.com/carebot/carebot-api/internal/domain/patient"
	"github.com/carebot/carebot-api/internal/domain/session"
)

const schemaVersion = "1.0.0"

// Metadata is the store-level watermark block. LastUpdated is touched on
// every mutation across all collections.
type Metadata struct {
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type fileData struct {
	Patients       []patient.Patient       `json:"patients"`
	Documents      []document.Document     `json:"documents"`
	UploadSessions []session.UploadSession `json:"upload_sessions"`
	Metadata       Metadata                `json:"metadata"`
}

// Stats summarizes the store contents. TotalStorageUsed sums file_size over
// all documents; a document with no recorded size contributes zero.
type Stats struct {
	TotalPatients    int   `json:"total_patients"`
	TotalDocuments   int   `json:"total_documents"`
	PendingDocuments int   `json:"pending_documents"`
	TotalSessions    int   `json:"total_sessions"`
	TotalStorageUsed int64 `json:"total_storage_used"`
}

// Store owns the canonical in-memory representation of all collections and
// is the sole writer to the backing file.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
	data fileData
}

// Open returns a store backed by the JSON file at path. An empty path runs
// the store purely in memory, which is the mode the tests use.
func Open(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load reads the backing file. A missing file initializes fresh collections;
// a present file missing a collection key gets that key back-filled without
// discarding existing data. Only a malformed file is an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.data = fileData{
		Patients:       []patient.Patient{},
		Documents:      []document.Document{},
		UploadSessions: []session.UploadSession{},
		Metadata:       Metadata{Version: schemaVersion, CreatedAt: now, LastUpdated: now},
	}

	if s.path == "" {
		s.log.Info("record store running in memory, no backing file")
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Info("backing file absent, initializing empty store", zap.String("path", s.path))
		return s.commitLocked()
	}
	if err != nil {
		return fmt.Errorf("reading backing file %s: %w", s.path, err)
	}

	var loaded fileData
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("parsing backing file %s: %w", s.path, err)
	}

	// Back-fill collections a hand-edited or older file may lack.
	if loaded.Patients == nil {
		loaded.Patients = []patient.Patient{}
	}
	if loaded.Documents == nil {
		loaded.Documents = []document.Document{}
	}
	if loaded.UploadSessions == nil {
		loaded.UploadSessions = []session.UploadSession{}
	}
	if loaded.Metadata.Version == "" {
		loaded.Metadata = Metadata{Version: schemaVersion, CreatedAt: now, LastUpdated: now}
	}
	s.data = loaded

	s.log.Info("record store loaded",
		zap.String("path", s.path),
		zap.Int("patients", len(s.data.Patients)),
		zap.Int("documents", len(s.data.Documents)),
		zap.Int("sessions", len(s.data.UploadSessions)),
	)
	return s.commitLocked()
}

// Commit serializes the whole in-memory state to the backing file, touching
// the last_updated watermark first. A write failure is returned to the
// caller; the in-memory state remains the source of truth until the next
// successful commit.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

func (s *Store) commitLocked() error {
	s.data.Metadata.LastUpdated = time.Now().UTC()
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("writing backing file %s: %w", s.path, err)
	}
	return nil
}

// Metadata returns a copy of the store metadata block.
func (s *Store) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Metadata
}

// Stats counts records and sums document sizes.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalPatients:  len(s.data.Patients),
		TotalDocuments: len(s.data.Documents),
		TotalSessions:  len(s.data.UploadSessions),
	}
	for i := range s.data.Documents {
		if s.data.Documents[i].Status == document.StatusUploaded {
			st.PendingDocuments++
		}
		st.TotalStorageUsed += s.data.Documents[i].FileSize
	}
	return st
}

// --- patients ---

// InsertPatient adds a patient and touches the metadata watermark. The
// caller commits.
func (s *Store) InsertPatient(p patient.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Patients = append(s.data.Patients, p)
	s.data.Metadata.LastUpdated = time.Now().UTC()
}

// FindPatientByContactNumber returns the first patient with the given
// contact number.
func (s *Store) FindPatientByContactNumber(contact string) (patient.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Patients {
		if s.data.Patients[i].ContactNumber == contact {
			return s.data.Patients[i], true
		}
	}
	return patient.Patient{}, false
}

func (s *Store) FindPatientByID(id uuid.UUID) (patient.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Patients {
		if s.data.Patients[i].ID == id {
			return s.data.Patients[i], true
		}
	}
	return patient.Patient{}, false
}

// AllPatients returns every patient, most recently created first. The
// ordering is user-visible on the admin dashboard.
func (s *Store) AllPatients() []patient.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]patient.Patient, len(s.data.Patients))
	copy(out, s.data.Patients)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UpdatePatient shallow-merges the patch onto the first matching patient and
// stamps updated_at. Nil patch fields are left untouched.
func (s *Store) UpdatePatient(id uuid.UUID, patch patient.Patch) (patient.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Patients {
		p := &s.data.Patients[i]
		if p.ID != id {
			continue
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Email != nil {
			p.Email = *patch.Email
		}
		if patch.DateOfBirth != nil {
			p.DateOfBirth = *patch.DateOfBirth
		}
		if patch.Address != nil {
			p.Address = *patch.Address
		}
		p.UpdatedAt = time.Now().UTC()
		s.data.Metadata.LastUpdated = p.UpdatedAt
		return *p, true
	}
	return patient.Patient{}, false
}

// --- documents ---

func (s *Store) InsertDocument(d document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Documents = append(s.data.Documents, d)
	s.data.Metadata.LastUpdated = time.Now().UTC()
}

func (s *Store) FindDocumentByUploadID(uploadID uuid.UUID) (document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Documents {
		if s.data.Documents[i].UploadID == uploadID {
			return s.data.Documents[i], true
		}
	}
	return document.Document{}, false
}

// DocumentsByPatient returns the patient's documents ordered by
// upload_timestamp, newest first.
func (s *Store) DocumentsByPatient(patientID uuid.UUID) []document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []document.Document
	for i := range s.data.Documents {
		if s.data.Documents[i].PatientID == patientID {
			out = append(out, s.data.Documents[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadTimestamp.After(out[j].UploadTimestamp)
	})
	return out
}

// ListDocuments returns one page of documents ordered by upload_timestamp
// descending, plus the total count over the whole collection.
func (s *Store) ListDocuments(limit, offset int) ([]document.Document, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]document.Document, len(s.data.Documents))
	copy(sorted, s.data.Documents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UploadTimestamp.After(sorted[j].UploadTimestamp)
	})

	total := len(sorted)
	if offset >= total {
		return []document.Document{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]document.Document, end-offset)
	copy(page, sorted[offset:end])
	return page, total
}

// UpdateDocument shallow-merges the patch onto the document with the given
// upload id and stamps updated_at.
func (s *Store) UpdateDocument(uploadID uuid.UUID, patch document.Patch) (document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Documents {
		d := &s.data.Documents[i]
		if d.UploadID != uploadID {
			continue
		}
		if patch.Status != nil {
			d.Status = *patch.Status
		}
		if patch.Notes != nil {
			d.Notes = *patch.Notes
		}
		d.UpdatedAt = time.Now().UTC()
		s.data.Metadata.LastUpdated = d.UpdatedAt
		return *d, true
	}
	return document.Document{}, false
}

// --- upload sessions ---

func (s *Store) InsertSession(us session.UploadSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UploadSessions = append(s.data.UploadSessions, us)
	s.data.Metadata.LastUpdated = time.Now().UTC()
}

func (s *Store) FindSessionBySessionID(sessionID uuid.UUID) (session.UploadSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.UploadSessions {
		if s.data.UploadSessions[i].SessionID == sessionID {
			return s.data.UploadSessions[i], true
		}
	}
	return session.UploadSession{}, false
}

// UpdateSession shallow-merges the patch onto the session with the given
// session id and stamps updated_at. Counter fields are absolute values.
func (s *Store) UpdateSession(sessionID uuid.UUID, patch session.Patch) (session.UploadSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.UploadSessions {
		us := &s.data.UploadSessions[i]
		if us.SessionID != sessionID {
			continue
		}
		if patch.TotalFiles != nil {
			us.TotalFiles = *patch.TotalFiles
		}
		if patch.TotalSize != nil {
			us.TotalSize = *patch.TotalSize
		}
		if patch.Status != nil {
			us.Status = *patch.Status
		}
		us.UpdatedAt = time.Now().UTC()
		s.data.Metadata.LastUpdated = us.UpdatedAt
		return *us, true
	}
	return session.UploadSession{}, false
}
