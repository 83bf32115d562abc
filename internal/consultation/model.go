package consultation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrNotFound     = errors.New("consultation not found")
	ErrEmptyMessage = errors.New("message is empty")
	// ErrDeliveryFailed means the report exists but could not be forwarded.
	ErrDeliveryFailed = errors.New("report delivery failed")
)

// VoicePlaceholder replaces the user's turn when speech recognition fails.
const VoicePlaceholder = "Sorry, I could not understand your voice."

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Consultation represents the aggregate root
type Consultation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`

	// Transcript in chronological order. Appended to, never rewritten.
	History []Message `json:"history" db:"history"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Transcript returns a copy of the history that is safe to read while the
// consultation keeps growing.
func (c *Consultation) Transcript() []Message {
	out := make([]Message, len(c.History))
	copy(out, c.History)
	return out
}
