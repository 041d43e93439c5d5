package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/domain/document"
	"github.com/carebot/carebot-api/internal/domain/patient"
	"github.com/carebot/carebot-api/internal/store"
	"github.com/carebot/carebot-api/pkg/metrics"
)

type DocumentService struct {
	store   *store.Store
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewDocumentService(st *store.Store, log *zap.Logger, m *metrics.Collector) *DocumentService {
	return &DocumentService{store: st, log: log, metrics: m}
}

// Create records an uploaded file. It generates a fresh upload id and stamps
// both timestamps: upload_timestamp is the caller's when supplied, while
// server_timestamp is always server time. The two may legitimately differ
// and both are retained.
func (s *DocumentService) Create(ctx context.Context, cmd document.CreateCommand, patientID uuid.UUID, sessionID *uuid.UUID) (document.Document, error) {
	now := time.Now().UTC()
	uploadTS := cmd.UploadTimestamp
	if uploadTS.IsZero() {
		uploadTS = now
	}

	d := document.Document{
		ID:               uuid.New(),
		UploadID:         uuid.New(),
		OriginalFilename: cmd.OriginalFilename,
		StoredFilename:   cmd.StoredFilename,
		FilePath:         cmd.FilePath,
		FileSize:         cmd.FileSize,
		MimeType:         cmd.MimeType,
		UploadedBy:       cmd.UploadedBy,
		UploadTimestamp:  uploadTS,
		ServerTimestamp:  now,
		Status:           document.StatusUploaded,
		Notes:            cmd.Notes,
		PatientID:        patientID,
		SessionID:        sessionID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.store.InsertDocument(d)
	if err := commitStore(s.store, s.metrics); err != nil {
		s.log.Error("failed to commit new document", zap.Error(err))
		return document.Document{}, fmt.Errorf("committing new document: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DocumentsTotal.WithLabelValues(string(d.Status)).Inc()
	}
	s.log.Info("document record created",
		zap.String("upload_id", d.UploadID.String()),
		zap.String("filename", d.OriginalFilename),
		zap.Int64("size", d.FileSize),
	)
	return d, nil
}

// WithPatient pairs a document with a summary of its owning patient. The
// patient is nil only if the store has been hand-edited out from under us.
type WithPatient struct {
	document.Document
	Patient *patient.Patient
}

// List returns one page of documents (newest upload first) enriched with
// patient summaries, plus the total count over the full collection.
func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]WithPatient, int) {
	docs, total := s.store.ListDocuments(limit, offset)
	out := make([]WithPatient, 0, len(docs))
	for _, d := range docs {
		enriched := WithPatient{Document: d}
		if p, ok := s.store.FindPatientByID(d.PatientID); ok {
			enriched.Patient = &p
		}
		out = append(out, enriched)
	}
	return out, total
}

// GetByUploadID looks a document up by its external key.
func (s *DocumentService) GetByUploadID(ctx context.Context, uploadID uuid.UUID) (WithPatient, error) {
	d, ok := s.store.FindDocumentByUploadID(uploadID)
	if !ok {
		return WithPatient{}, document.ErrDocumentNotFound
	}
	enriched := WithPatient{Document: d}
	if p, ok := s.store.FindPatientByID(d.PatientID); ok {
		enriched.Patient = &p
	}
	return enriched, nil
}

// UpdateStatus patches a document's status (and notes when given). The
// status enum is validated by the API layer before this is called; the
// service applies whatever it is handed.
func (s *DocumentService) UpdateStatus(ctx context.Context, uploadID uuid.UUID, status document.Status, notes string) (document.Document, error) {
	if _, ok := s.store.FindDocumentByUploadID(uploadID); !ok {
		return document.Document{}, document.ErrDocumentNotFound
	}

	patch := document.Patch{Status: &status}
	if notes != "" {
		patch.Notes = &notes
	}
	updated, _ := s.store.UpdateDocument(uploadID, patch)
	if err := commitStore(s.store, s.metrics); err != nil {
		s.log.Error("failed to commit document status update", zap.Error(err))
		return document.Document{}, fmt.Errorf("committing status update: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DocumentsTotal.WithLabelValues(string(status)).Inc()
	}
	s.log.Info("document status updated",
		zap.String("upload_id", uploadID.String()),
		zap.String("status", string(status)),
	)
	return updated, nil
}

// Delete soft-deletes: the record stays, its status becomes deleted.
func (s *DocumentService) Delete(ctx context.Context, uploadID uuid.UUID) (document.Document, error) {
	return s.UpdateStatus(ctx, uploadID, document.StatusDeleted, "")
}
