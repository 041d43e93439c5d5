package session

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an upload session. Sessions move from
// active to exactly one terminal state; there is no transition back out.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// UploadSession groups one upload request's metadata: who uploaded, from
// where, how much, and how the request ended. SessionID is the external
// correlation key.
type UploadSession struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	UploadedBy string    `json:"uploaded_by"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	TotalFiles int       `json:"total_files"`
	TotalSize  int64     `json:"total_size"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateCommand carries the request metadata captured when a session opens.
type CreateCommand struct {
	UploadedBy string
	IPAddress  string
	UserAgent  string
}

// Patch is a partial update applied by session-id. Counter fields are
// absolute values, not increments: a second UpdateStats call overwrites the
// first.
type Patch struct {
	TotalFiles *int
	TotalSize  *int64
	Status     *Status
}
