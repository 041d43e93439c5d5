package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/domain/document"
	"github.com/carebot/carebot-api/internal/domain/patient"
	"github.com/carebot/carebot-api/internal/domain/session"
	"github.com/carebot/carebot-api/internal/service"
)

// Response is the uniform envelope every endpoint speaks: a success flag, a
// human-readable message on failures (and some successes), and the payload.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondOKWithMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

// respondServiceError maps known error conditions to status codes and keeps
// everything else a generic 500: internals are logged, never echoed.
func (h *Handler) respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		respondError(c, http.StatusBadRequest, validErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrNoFile):
		respondError(c, http.StatusBadRequest, "No file uploaded")

	case errors.Is(err, service.ErrUnsupportedFileType):
		respondError(c, http.StatusUnsupportedMediaType,
			"Unsupported file type. Please upload PDF, JPG, PNG, or DOC files only.")

	case errors.Is(err, service.ErrFileTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %.0fMB", h.cfg.Upload.MaxFileSizeMB()))

	case errors.Is(err, patient.ErrPatientNotFound):
		respondError(c, http.StatusNotFound, "Patient not found")

	case errors.Is(err, document.ErrDocumentNotFound):
		respondError(c, http.StatusNotFound, "Document not found")

	case errors.Is(err, session.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "Upload session not found")

	default:
		h.log.Error("unhandled error", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
