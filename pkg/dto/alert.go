package dto

import "github.com/google/uuid"

// DetectionResponse is one dispatched alert as returned by the API.
type DetectionResponse struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Category    string    `json:"category"`
	Confidence  float32   `json:"confidence"`
	Description string    `json:"description"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
	EmailSent   bool      `json:"email_sent"`
	BeepPlayed  bool      `json:"beep_played"`
	CreatedAt   string    `json:"created_at"`
}

type DetectionListResponse struct {
	Detections []DetectionResponse `json:"detections"`
	Total      int                 `json:"total"`
}

// StatsResponse aggregates alert volume per category.
type StatsResponse struct {
	Since  string         `json:"since"`
	Counts map[string]int `json:"counts"`
}

// WSAlert is a WebSocket message pushed to clients when an alert is
// dispatched.
type WSAlert struct {
	Type        string    `json:"type"` // always "alert"
	RecordID    uuid.UUID `json:"record_id"`
	SessionID   uuid.UUID `json:"session_id"`
	Category    string    `json:"category"`
	Confidence  float32   `json:"confidence"`
	Description string    `json:"description"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
	Timestamp   string    `json:"timestamp"`
}
