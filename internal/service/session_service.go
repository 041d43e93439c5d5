package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/domain/session"
	"github.com/carebot/carebot-api/internal/store"
	"github.com/carebot/carebot-api/pkg/metrics"
)

type SessionService struct {
	store   *store.Store
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewSessionService(st *store.Store, log *zap.Logger, m *metrics.Collector) *SessionService {
	return &SessionService{store: st, log: log, metrics: m}
}

// Create opens an upload session in the active state.
func (s *SessionService) Create(ctx context.Context, cmd session.CreateCommand) (session.UploadSession, error) {
	now := time.Now().UTC()
	us := session.UploadSession{
		ID:         uuid.New(),
		SessionID:  uuid.New(),
		UploadedBy: cmd.UploadedBy,
		IPAddress:  cmd.IPAddress,
		UserAgent:  cmd.UserAgent,
		Status:     session.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.store.InsertSession(us)
	if err := commitStore(s.store, s.metrics); err != nil {
		s.log.Error("failed to commit new upload session", zap.Error(err))
		return session.UploadSession{}, fmt.Errorf("committing new session: %w", err)
	}

	s.log.Info("upload session created", zap.String("session_id", us.SessionID.String()))
	return us, nil
}

// UpdateStats sets the session's file and byte counters. The values are
// absolute, not increments: calling this twice overwrites rather than
// accumulates.
func (s *SessionService) UpdateStats(ctx context.Context, sessionID uuid.UUID, totalFiles int, totalSize int64) (session.UploadSession, error) {
	patch := session.Patch{TotalFiles: &totalFiles, TotalSize: &totalSize}
	updated, ok := s.store.UpdateSession(sessionID, patch)
	if !ok {
		return session.UploadSession{}, session.ErrSessionNotFound
	}
	if err := commitStore(s.store, s.metrics); err != nil {
		s.log.Error("failed to commit session stats", zap.Error(err))
		return session.UploadSession{}, fmt.Errorf("committing session stats: %w", err)
	}
	return updated, nil
}

// Complete finalizes a session to completed or failed.
func (s *SessionService) Complete(ctx context.Context, sessionID uuid.UUID, status session.Status) (session.UploadSession, error) {
	patch := session.Patch{Status: &status}
	updated, ok := s.store.UpdateSession(sessionID, patch)
	if !ok {
		return session.UploadSession{}, session.ErrSessionNotFound
	}
	if err := commitStore(s.store, s.metrics); err != nil {
		s.log.Error("failed to commit session completion", zap.Error(err))
		return session.UploadSession{}, fmt.Errorf("committing session completion: %w", err)
	}

	if s.metrics != nil {
		s.metrics.UploadSessionsTotal.WithLabelValues(string(status)).Inc()
	}
	s.log.Info("upload session finalized",
		zap.String("session_id", sessionID.String()),
		zap.String("status", string(status)),
	)
	return updated, nil
}
