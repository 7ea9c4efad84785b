package models

import "time"

// Category classifies a confirmed threat for alerting purposes.
type Category string

const (
	CategoryWeapon   Category = "weapon"
	CategoryCrowd    Category = "crowd"
	CategoryBehavior Category = "behavior"
	CategoryViolence Category = "violence"
)

// Severity orders categories for display and beep-pattern selection.
type Severity int

const (
	SeverityMedium Severity = iota
	SeverityHigh
	SeverityCritical
)

// ThreatSignal is produced by the evaluator when a category crosses its
// threshold. It is consumed by the dispatcher in the same cycle and then
// discarded.
type ThreatSignal struct {
	Category    Category
	Severity    Severity
	Confidence  float32 // representative confidence (max among contributors)
	Description string
	Detections  []Detection
	At          time.Time
}
