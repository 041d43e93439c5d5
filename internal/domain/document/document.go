package document

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an uploaded document. Deletion is a
// status transition, never a row removal.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusProcessed Status = "processed"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessed, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Document records one uploaded file. UploadID is the external lookup key;
// ID is internal. UploadTimestamp may be client-supplied, ServerTimestamp is
// always stamped on the server, and the two legitimately differ.
type Document struct {
	ID               uuid.UUID  `json:"id"`
	UploadID         uuid.UUID  `json:"upload_id"`
	OriginalFilename string     `json:"original_filename"`
	StoredFilename   string     `json:"stored_filename"`
	FilePath         string     `json:"file_path"`
	FileSize         int64      `json:"file_size"`
	MimeType         string     `json:"mime_type"`
	UploadedBy       string     `json:"uploaded_by"`
	UploadTimestamp  time.Time  `json:"upload_timestamp"`
	ServerTimestamp  time.Time  `json:"server_timestamp"`
	Status           Status     `json:"status"`
	Notes            string     `json:"notes,omitempty"`
	PatientID        uuid.UUID  `json:"patient_id"`
	SessionID        *uuid.UUID `json:"session_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateCommand carries the file facts captured during an upload.
type CreateCommand struct {
	OriginalFilename string
	StoredFilename   string
	FilePath         string
	FileSize         int64
	MimeType         string
	UploadedBy       string
	UploadTimestamp  time.Time // zero means "use server time"
	Notes            string
}

// Patch is a partial update applied by upload-id. Nil fields are untouched.
type Patch struct {
	Status *Status
	Notes  *string
}
