package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/config"
	"github.com/carebot/carebot-api/pkg/metrics"
)

// NewRouter builds the engine: middleware chain, the /api routes, the
// prometheus endpoint, and the JSON 404 fallback.
func NewRouter(h *Handler, cfg *config.Config, log *zap.Logger, m *metrics.Collector) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(Metrics(m))
	r.Use(Tracing(cfg.App.Name))
	r.Use(CORS(cfg.CORS))

	r.MaxMultipartMemory = cfg.Upload.MaxFileSize

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/stats", h.Stats)
		api.POST("/upload-patient-document", h.UploadPatientDocument)
		api.GET("/patient-documents", h.ListDocuments)
		api.GET("/patients", h.ListPatients)
		api.GET("/patients/:patientId", h.GetPatient)
		api.PATCH("/documents/:uploadId/status", h.UpdateDocumentStatus)
	}

	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Endpoint not found")
	})

	return r
}
