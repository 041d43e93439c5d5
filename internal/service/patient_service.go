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

type PatientService struct {
	store   *store.Store
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewPatientService(st *store.Store, log *zap.Logger, m *metrics.Collector) *PatientService {
	return &PatientService{store: st, log: log, metrics: m}
}

// FindOrCreate is the dedup/upsert contract the upload pipeline depends on:
// patients are keyed by contact number. A new contact number creates a
// patient; a known one is updated only when at least one supplied field
// differs, so a repeated identical call performs no commit at all.
func (s *PatientService) FindOrCreate(ctx context.Context, cmd patient.FindOrCreateCommand) (patient.Patient, error) {
	cmd.Normalize()

	var errs []string
	if cmd.Name == "" {
		errs = append(errs, "name is required")
	}
	if cmd.ContactNumber == "" {
		errs = append(errs, "contact_number is required")
	}
	if len(errs) > 0 {
		return patient.Patient{}, &ValidationError{Fields: errs}
	}

	if existing, ok := s.store.FindPatientByContactNumber(cmd.ContactNumber); ok {
		patch := patient.Diff(&existing, cmd)
		if patch.IsEmpty() {
			return existing, nil
		}

		updated, _ := s.store.UpdatePatient(existing.ID, patch)
		if err := commitStore(s.store, s.metrics); err != nil {
			s.log.Error("failed to commit patient update", zap.Error(err))
			return patient.Patient{}, fmt.Errorf("committing patient update: %w", err)
		}

		s.log.Info("patient updated",
			zap.String("patient_id", updated.ID.String()),
			zap.String("name", updated.Name),
		)
		return updated, nil
	}

	now := time.Now().UTC()
	p := patient.Patient{
		ID:            uuid.New(),
		Name:          cmd.Name,
		ContactNumber: cmd.ContactNumber,
		Email:         cmd.Email,
		DateOfBirth:   cmd.DateOfBirth,
		Address:       cmd.Address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.store.InsertPatient(p)
	if err := commitStore(s.store, s.metrics); err != nil {
		s.log.Error("failed to commit new patient", zap.Error(err))
		return patient.Patient{}, fmt.Errorf("committing new patient: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PatientsCreatedTotal.Inc()
	}
	s.log.Info("patient created",
		zap.String("patient_id", p.ID.String()),
		zap.String("name", p.Name),
	)
	return p, nil
}

// WithDocuments pairs a patient with their documents, newest upload first.
type WithDocuments struct {
	patient.Patient
	Documents []document.Document
}

// All returns every patient (newest first) with their document lists.
func (s *PatientService) All(ctx context.Context) []WithDocuments {
	patients := s.store.AllPatients()
	out := make([]WithDocuments, 0, len(patients))
	for _, p := range patients {
		out = append(out, WithDocuments{
			Patient:   p,
			Documents: s.store.DocumentsByPatient(p.ID),
		})
	}
	return out
}

// GetByID returns one patient with their full document list.
func (s *PatientService) GetByID(ctx context.Context, id uuid.UUID) (WithDocuments, error) {
	p, ok := s.store.FindPatientByID(id)
	if !ok {
		return WithDocuments{}, patient.ErrPatientNotFound
	}
	return WithDocuments{
		Patient:   p,
		Documents: s.store.DocumentsByPatient(id),
	}, nil
}
