package service

import (
	"testing"

	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/config"
	"github.com/carebot/carebot-api/internal/store"
	"github.com/carebot/carebot-api/pkg/filestore"
)

// Services under test run against an in-memory store, a no-op logger, and a
// nil metrics collector.

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.Open("", zap.NewNop())
	if err := st.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return st
}

func newTestServices(t *testing.T) (*store.Store, *PatientService, *DocumentService, *SessionService) {
	t.Helper()
	st := newTestStore(t)
	log := zap.NewNop()
	return st,
		NewPatientService(st, log, nil),
		NewDocumentService(st, log, nil),
		NewSessionService(st, log, nil)
}

func newTestUploadService(t *testing.T, cfg config.UploadConfig) (*UploadService, *store.Store, *filestore.FileStore) {
	t.Helper()
	st, patients, documents, sessions := newTestServices(t)

	files, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}
	up := NewUploadService(files, patients, documents, sessions, cfg, zap.NewNop(), nil)
	return up, st, files
}

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSize:  1 << 20,
		AllowedTypes: []string{"application/pdf", "image/png"},
	}
}
