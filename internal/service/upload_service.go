package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/config"
	"github.com/carebot/carebot-api/internal/domain/document"
	"github.com/carebot/carebot-api/internal/domain/patient"
	"github.com/carebot/carebot-api/internal/domain/session"
	"github.com/carebot/carebot-api/pkg/filestore"
	"github.com/carebot/carebot-api/pkg/metrics"
)

// UploadService runs the document upload pipeline: validate the file, write
// it to disk, then record the linked session, patient, and document entities.
//
// The recording sequence is separate commits, not one transaction. On any
// failure after the session exists, compensation marks the session failed and
// removes the stored file; both compensations are best-effort and never mask
// the original error.
type UploadService struct {
	files     *filestore.FileStore
	patients  patientRecorder
	documents documentRecorder
	sessions  sessionRecorder
	cfg       config.UploadConfig
	log       *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
}

// The recorder interfaces are the slices of the domain services the pipeline
// drives. They exist so a recording step can be made to fail independently
// of the others.
type patientRecorder interface {
	FindOrCreate(ctx context.Context, cmd patient.FindOrCreateCommand) (patient.Patient, error)
}

type documentRecorder interface {
	Create(ctx context.Context, cmd document.CreateCommand, patientID uuid.UUID, sessionID *uuid.UUID) (document.Document, error)
}

type sessionRecorder interface {
	Create(ctx context.Context, cmd session.CreateCommand) (session.UploadSession, error)
	UpdateStats(ctx context.Context, sessionID uuid.UUID, totalFiles int, totalSize int64) (session.UploadSession, error)
	Complete(ctx context.Context, sessionID uuid.UUID, status session.Status) (session.UploadSession, error)
}

func NewUploadService(
	files *filestore.FileStore,
	patients patientRecorder,
	documents documentRecorder,
	sessions sessionRecorder,
	cfg config.UploadConfig,
	log *zap.Logger,
	m *metrics.Collector,
) *UploadService {
	return &UploadService{
		files:     files,
		patients:  patients,
		documents: documents,
		sessions:  sessions,
		cfg:       cfg,
		log:       log,
		metrics:   m,
		tracer:    otel.Tracer("upload-pipeline"),
	}
}

// UploadRequest is one multipart upload, already parsed out of the HTTP
// request.
type UploadRequest struct {
	PatientName     string
	ContactNumber   string
	UploadedBy      string
	UploadTimestamp time.Time // zero means "use server time"

	OriginalFilename string
	MimeType         string
	Size             int64
	Content          io.Reader

	IPAddress string
	UserAgent string
}

type UploadResult struct {
	Patient  patient.Patient
	Document document.Document
	Session  session.UploadSession
}

// Process runs the pipeline. The file is written to disk before the patient
// fields are validated, so a field-validation failure cleans up a file that
// was already written; type and size rejections happen before anything
// touches the disk.
func (s *UploadService) Process(ctx context.Context, req UploadRequest) (UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "upload.process")
	defer span.End()

	if req.Content == nil {
		s.reject("no_file")
		return UploadResult{}, ErrNoFile
	}
	if !s.cfg.TypeAllowed(req.MimeType) {
		s.reject("unsupported_type")
		return UploadResult{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, req.MimeType)
	}
	if req.Size > s.cfg.MaxFileSize {
		s.reject("too_large")
		return UploadResult{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, req.Size)
	}

	saved, err := s.files.Save(req.OriginalFilename, req.Content)
	if err != nil {
		s.log.Error("failed to persist uploaded file", zap.Error(err))
		return UploadResult{}, fmt.Errorf("persisting file: %w", err)
	}

	// Field validation runs after the file is on disk, so a failure here
	// must clean up an ownerless file.
	var missing []string
	if strings.TrimSpace(req.PatientName) == "" {
		missing = append(missing, "patientName is required")
	}
	if strings.TrimSpace(req.ContactNumber) == "" {
		missing = append(missing, "contactNumber is required")
	}
	if len(missing) > 0 {
		s.reject("missing_fields")
		s.removeFile(saved.Path)
		return UploadResult{}, &ValidationError{Fields: missing}
	}

	uploadedBy := strings.TrimSpace(req.UploadedBy)
	if uploadedBy == "" {
		uploadedBy = "unknown"
	}

	us, err := s.sessions.Create(ctx, session.CreateCommand{
		UploadedBy: uploadedBy,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		s.removeFile(saved.Path)
		return UploadResult{}, err
	}

	sessionID := us.SessionID
	p, err := s.patients.FindOrCreate(ctx, patient.FindOrCreateCommand{
		Name:          req.PatientName,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		s.compensate(ctx, sessionID, saved.Path)
		return UploadResult{}, err
	}

	d, err := s.documents.Create(ctx, document.CreateCommand{
		OriginalFilename: req.OriginalFilename,
		StoredFilename:   saved.StoredName,
		FilePath:         saved.Path,
		FileSize:         saved.Size,
		MimeType:         req.MimeType,
		UploadedBy:       uploadedBy,
		UploadTimestamp:  req.UploadTimestamp,
	}, p.ID, &sessionID)
	if err != nil {
		s.compensate(ctx, sessionID, saved.Path)
		return UploadResult{}, err
	}

	if _, err := s.sessions.UpdateStats(ctx, sessionID, 1, saved.Size); err != nil {
		s.compensate(ctx, sessionID, saved.Path)
		return UploadResult{}, err
	}
	us, err = s.sessions.Complete(ctx, sessionID, session.StatusCompleted)
	if err != nil {
		s.compensate(ctx, sessionID, saved.Path)
		return UploadResult{}, err
	}

	if s.metrics != nil {
		s.metrics.UploadBytesTotal.Add(float64(saved.Size))
	}
	s.log.Info("document uploaded",
		zap.String("upload_id", d.UploadID.String()),
		zap.String("patient_id", p.ID.String()),
		zap.String("session_id", us.SessionID.String()),
		zap.String("filename", d.OriginalFilename),
		zap.Int64("size", d.FileSize),
	)
	return UploadResult{Patient: p, Document: d, Session: us}, nil
}

// compensate marks the session failed and removes the stored file. Failures
// here are logged, not retried, and never mask the pipeline's own error.
func (s *UploadService) compensate(ctx context.Context, sessionID uuid.UUID, path string) {
	if _, err := s.sessions.Complete(ctx, sessionID, session.StatusFailed); err != nil {
		s.log.Error("failed to mark upload session failed",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}
	s.removeFile(path)
}

func (s *UploadService) removeFile(path string) {
	if err := s.files.Remove(path); err != nil {
		s.log.Error("failed to remove uploaded file", zap.String("path", path), zap.Error(err))
	}
}

func (s *UploadService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.UploadRejectedTotal.WithLabelValues(reason).Inc()
	}
}
