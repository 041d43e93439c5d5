package v1

import (
	"time"

	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/config"
	"github.com/carebot/carebot-api/internal/service"
)

// Handler holds the domain services behind the /api routes.
type Handler struct {
	patients  *service.PatientService
	documents *service.DocumentService
	uploads   *service.UploadService
	db        *service.DatabaseService
	cfg       *config.Config
	log       *zap.Logger
	start     time.Time
}

func New(
	patients *service.PatientService,
	documents *service.DocumentService,
	uploads *service.UploadService,
	db *service.DatabaseService,
	cfg *config.Config,
	log *zap.Logger,
) *Handler {
	return &Handler{
		patients:  patients,
		documents: documents,
		uploads:   uploads,
		db:        db,
		cfg:       cfg,
		log:       log,
		start:     time.Now(),
	}
}
