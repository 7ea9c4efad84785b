package models

import (
	"time"

	"github.com/google/uuid"
)

// DetectionRecord is the persisted trace of one dispatched alert. The
// email_sent/beep_played flags are flipped after the corresponding side
// effect completes.
type DetectionRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserEmail   string    `json:"user_email" db:"user_email"`
	SessionID   uuid.UUID `json:"session_id" db:"session_id"`
	Category    Category  `json:"category" db:"category"`
	Confidence  float32   `json:"confidence" db:"confidence"`
	Description string    `json:"description" db:"description"`
	SnapshotKey string    `json:"snapshot_key" db:"snapshot_key"`
	EmailSent   bool      `json:"email_sent" db:"email_sent"`
	BeepPlayed  bool      `json:"beep_played" db:"beep_played"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AlertEvent is the message published to NATS (and the MQTT uplink) for each
// dispatched alert.
type AlertEvent struct {
	RecordID    uuid.UUID `json:"record_id"`
	SessionID   uuid.UUID `json:"session_id"`
	Category    Category  `json:"category"`
	Confidence  float32   `json:"confidence"`
	Description string    `json:"description"`
	SnapshotKey string    `json:"snapshot_key,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
