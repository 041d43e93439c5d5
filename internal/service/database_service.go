package service

import (
	"context"

	"github.com/carebot/carebot-api/internal/store"
)

// DatabaseService exposes aggregate statistics and the health summary the
// /api/health endpoint reports.
type DatabaseService struct {
	store *store.Store
}

func NewDatabaseService(st *store.Store) *DatabaseService {
	return &DatabaseService{store: st}
}

func (s *DatabaseService) Stats(ctx context.Context) store.Stats {
	return s.store.Stats()
}

type Health struct {
	Status   string      `json:"status"`
	Database string      `json:"database"`
	Type     string      `json:"type"`
	Stats    store.Stats `json:"stats"`
}

func (s *DatabaseService) HealthCheck(ctx context.Context) Health {
	if s.store == nil {
		return Health{Status: "unhealthy", Database: "disconnected", Type: "json-file"}
	}
	return Health{
		Status:   "healthy",
		Database: "connected",
		Type:     "json-file",
		Stats:    s.store.Stats(),
	}
}
