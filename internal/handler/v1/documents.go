package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebot/carebot-api/internal/domain/document"
)

type documentListItem struct {
	UploadID         string             `json:"uploadId"`
	OriginalFilename string             `json:"originalFilename"`
	FileSize         int64              `json:"fileSize"`
	MimeType         string             `json:"mimeType"`
	UploadTimestamp  time.Time          `json:"uploadTimestamp"`
	Status           string             `json:"status"`
	UploadedBy       string             `json:"uploadedBy"`
	Patient          *docPatientSummary `json:"patient"`
}

type docPatientSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactNumber string `json:"contactNumber"`
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListDocuments returns one page of documents, newest upload first, each
// with a summary of its owning patient.
func (h *Handler) ListDocuments(c *gin.Context) {
	page := parseQueryInt(c, "page", 1)
	limit := parseQueryInt(c, "limit", 50)
	offset := (page - 1) * limit

	docs, total := h.documents.List(c.Request.Context(), limit, offset)

	items := make([]documentListItem, 0, len(docs))
	for _, d := range docs {
		item := documentListItem{
			UploadID:         d.UploadID.String(),
			OriginalFilename: d.OriginalFilename,
			FileSize:         d.FileSize,
			MimeType:         d.MimeType,
			UploadTimestamp:  d.UploadTimestamp,
			Status:           string(d.Status),
			UploadedBy:       d.UploadedBy,
		}
		if d.Patient != nil {
			item.Patient = &docPatientSummary{
				ID:            d.Patient.ID.String(),
				Name:          d.Patient.Name,
				ContactNumber: d.Patient.ContactNumber,
			}
		}
		items = append(items, item)
	}

	totalPages := (total + limit - 1) / limit
	respondOK(c, gin.H{
		"documents": items,
		"pagination": pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

var validStatuses = []document.Status{
	document.StatusUploaded,
	document.StatusProcessed,
	document.StatusArchived,
	document.StatusDeleted,
}

// UpdateDocumentStatus validates the status against the closed enum before
// calling the service; the service applies whatever it is handed.
func (h *Handler) UpdateDocumentStatus(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("uploadId"))
	if err != nil {
		h.respondServiceError(c, document.ErrDocumentNotFound)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := document.Status(req.Status)
	if !status.IsValid() {
		names := make([]string, len(validStatuses))
		for i, s := range validStatuses {
			names[i] = string(s)
		}
		respondError(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(names, ", ")))
		return
	}

	updated, err := h.documents.UpdateStatus(c.Request.Context(), uploadID, status, req.Notes)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondOKWithMessage(c, "Document status updated successfully", gin.H{
		"uploadId": updated.UploadID.String(),
		"status":   string(updated.Status),
		"notes":    updated.Notes,
	})
}
