package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/service"
)

type uploadResponse struct {
	UploadID string                `json:"uploadId"`
	Filename string                `json:"filename"`
	Patient  uploadPatientSummary  `json:"patient"`
	Document uploadDocumentSummary `json:"document"`
	Session  uploadSessionSummary  `json:"session"`
}

type uploadPatientSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactNumber string `json:"contactNumber"`
}

type uploadDocumentSummary struct {
	ID              string    `json:"id"`
	Size            int64     `json:"size"`
	MimeType        string    `json:"mimeType"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
}

type uploadSessionSummary struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UploadPatientDocument accepts a multipart form with a `file` part plus the
// patient fields, and runs the upload pipeline.
func (h *Handler) UploadPatientDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.respondServiceError(c, service.ErrNoFile)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.log.Error("failed to open uploaded file part", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer f.Close()

	// A malformed client timestamp falls back to server time rather than
	// failing the upload.
	var uploadTS time.Time
	if raw := c.PostForm("uploadTimestamp"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			uploadTS = ts
		}
	}

	result, err := h.uploads.Process(c.Request.Context(), service.UploadRequest{
		PatientName:      c.PostForm("patientName"),
		ContactNumber:    c.PostForm("contactNumber"),
		UploadedBy:       c.PostForm("uploadedBy"),
		UploadTimestamp:  uploadTS,
		OriginalFilename: fh.Filename,
		MimeType:         fh.Header.Get("Content-Type"),
		Size:             fh.Size,
		Content:          f,
		IPAddress:        c.ClientIP(),
		UserAgent:        c.Request.UserAgent(),
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondCreated(c, "Document uploaded and saved successfully", uploadResponse{
		UploadID: result.Document.UploadID.String(),
		Filename: result.Document.OriginalFilename,
		Patient: uploadPatientSummary{
			ID:            result.Patient.ID.String(),
			Name:          result.Patient.Name,
			ContactNumber: result.Patient.ContactNumber,
		},
		Document: uploadDocumentSummary{
			ID:              result.Document.ID.String(),
			Size:            result.Document.FileSize,
			MimeType:        result.Document.MimeType,
			UploadTimestamp: result.Document.UploadTimestamp,
		},
		Session: uploadSessionSummary{
			ID:     result.Session.SessionID.String(),
			Status: string(result.Session.Status),
		},
	})
}
