package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebot/carebot-api/internal/domain/patient"
)

type patientListItem struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	ContactNumber   string               `json:"contactNumber"`
	Email           string               `json:"email,omitempty"`
	DateOfBirth     string               `json:"dateOfBirth,omitempty"`
	Address         string               `json:"address,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	DocumentCount   int                  `json:"documentCount"`
	RecentDocuments []recentDocumentItem `json:"recentDocuments"`
}

type recentDocumentItem struct {
	UploadID   string    `json:"uploadId"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"uploadDate"`
	Status     string    `json:"status"`
}

// ListPatients returns all patients with document counts and up to three
// recent-document summaries each.
func (h *Handler) ListPatients(c *gin.Context) {
	patients := h.patients.All(c.Request.Context())

	items := make([]patientListItem, 0, len(patients))
	for _, p := range patients {
		item := patientListItem{
			ID:              p.ID.String(),
			Name:            p.Name,
			ContactNumber:   p.ContactNumber,
			Email:           p.Email,
			DateOfBirth:     p.DateOfBirth,
			Address:         p.Address,
			CreatedAt:       p.CreatedAt,
			DocumentCount:   len(p.Documents),
			RecentDocuments: []recentDocumentItem{},
		}
		for i, d := range p.Documents {
			if i >= 3 {
				break
			}
			item.RecentDocuments = append(item.RecentDocuments, recentDocumentItem{
				UploadID:   d.UploadID.String(),
				Filename:   d.OriginalFilename,
				UploadDate: d.UploadTimestamp,
				Status:     string(d.Status),
			})
		}
		items = append(items, item)
	}

	respondOK(c, gin.H{
		"patients": items,
		"total":    len(items),
	})
}

type patientDetail struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	ContactNumber string               `json:"contactNumber"`
	Email         string               `json:"email,omitempty"`
	DateOfBirth   string               `json:"dateOfBirth,omitempty"`
	Address       string               `json:"address,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	Documents     []patientDocumentRow `json:"documents"`
}

type patientDocumentRow struct {
	UploadID         string    `json:"uploadId"`
	OriginalFilename string    `json:"originalFilename"`
	FileSize         int64     `json:"fileSize"`
	MimeType         string    `json:"mimeType"`
	UploadTimestamp  time.Time `json:"uploadTimestamp"`
	Status           string    `json:"status"`
	UploadedBy       string    `json:"uploadedBy"`
	Notes            string    `json:"notes,omitempty"`
}

// GetPatient returns a single patient with their full document list. An id
// that does not parse cannot match any patient, so it is a plain 404.
func (h *Handler) GetPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		h.respondServiceError(c, patient.ErrPatientNotFound)
		return
	}

	p, err := h.patients.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	detail := patientDetail{
		ID:            p.ID.String(),
		Name:          p.Name,
		ContactNumber: p.ContactNumber,
		Email:         p.Email,
		DateOfBirth:   p.DateOfBirth,
		Address:       p.Address,
		CreatedAt:     p.CreatedAt,
		Documents:     make([]patientDocumentRow, 0, len(p.Documents)),
	}
	for _, d := range p.Documents {
		detail.Documents = append(detail.Documents, patientDocumentRow{
			UploadID:         d.UploadID.String(),
			OriginalFilename: d.OriginalFilename,
			FileSize:         d.FileSize,
			MimeType:         d.MimeType,
			UploadTimestamp:  d.UploadTimestamp,
			Status:           string(d.Status),
			UploadedBy:       d.UploadedBy,
			Notes:            d.Notes,
		})
	}

	respondOK(c, gin.H{"patient": detail})
}
