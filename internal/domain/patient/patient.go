package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient is a person that documents are uploaded for. Patients are
// deduplicated by contact number: the upload pipeline never creates a second
// record for a contact number it has already seen.
type Patient struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contact_number"`
	Email         string    `json:"email,omitempty"`
	DateOfBirth   string    `json:"date_of_birth,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FindOrCreateCommand carries the patient identity and optional attributes
// supplied with an upload. Fields are trimmed before use.
type FindOrCreateCommand struct {
	Name          string
	ContactNumber string
	Email         string
	DateOfBirth   string
	Address       string
}

func (c *FindOrCreateCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.ContactNumber = strings.TrimSpace(c.ContactNumber)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
}

// Patch is a partial update. Nil fields are left untouched; the store stamps
// updated_at when at least one field is applied.
type Patch struct {
	Name        *string
	Email       *string
	DateOfBirth *string
	Address     *string
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.DateOfBirth == nil && p.Address == nil
}

// Diff computes the patch that would bring the stored patient in line with
// the attributes supplied by a later upload. Empty incoming optional fields
// never clear stored values; the name always follows the most recent upload.
func Diff(existing *Patient, cmd FindOrCreateCommand) Patch {
	cmd.Normalize()
	var patch Patch
	if cmd.Name != "" && existing.Name != cmd.Name {
		patch.Name = &cmd.Name
	}
	if cmd.Email != "" && existing.Email != cmd.Email {
		patch.Email = &cmd.Email
	}
	if cmd.DateOfBirth != "" && existing.DateOfBirth != cmd.DateOfBirth {
		patch.DateOfBirth = &cmd.DateOfBirth
	}
	if cmd.Address != "" && existing.Address != cmd.Address {
		patch.Address = &cmd.Address
	}
	return patch
}
