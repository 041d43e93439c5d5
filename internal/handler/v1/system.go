package v1

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports store health plus process metadata. Unlike the other
// endpoints this returns the health object directly, not the envelope, so
// load balancers and uptime probes get a flat document.
func (h *Handler) Health(c *gin.Context) {
	health := h.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"status":    health.Status,
		"database":  health.Database,
		"type":      health.Type,
		"stats":     health.Stats,
		"timestamp": time.Now().UTC(),
		"version":   h.cfg.App.Version,
		"uptime":    time.Since(h.start).Seconds(),
	})
}

// Stats reports aggregate record counts and storage usage.
func (h *Handler) Stats(c *gin.Context) {
	stats := h.db.Stats(c.Request.Context())

	usedMB := math.Round(float64(stats.TotalStorageUsed)/(1024*1024)*100) / 100
	respondOK(c, gin.H{
		"statistics": gin.H{
			"totalPatients":    stats.TotalPatients,
			"totalDocuments":   stats.TotalDocuments,
			"pendingDocuments": stats.PendingDocuments,
			"totalSessions":    stats.TotalSessions,
			"totalStorageUsed": stats.TotalStorageUsed,
			"storageUsedMB":    usedMB,
		},
		"timestamp": time.Now().UTC(),
	})
}
