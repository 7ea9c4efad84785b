package models

import "time"

// Kind identifies which detector produced a detection.
type Kind string

const (
	KindWeapon Kind = "weapon"
	KindPerson Kind = "person"
	KindFace   Kind = "face"
)

// Kinds lists all detection kinds in render order.
var Kinds = []Kind{KindWeapon, KindPerson, KindFace}

// Detection is a single detector output. Immutable once created.
type Detection struct {
	Kind       Kind       `json:"kind"`
	BBox       [4]float32 `json:"bbox"` // x1, y1, x2, y2 (pixel coordinates)
	Confidence float32    `json:"confidence"`
	Label      string     `json:"label,omitempty"` // weapon subtype or emotion name
}

// Bundle is the combined output of one inference cycle across all adapters.
type Bundle struct {
	Weapons       []Detection `json:"weapons"`
	People        []Detection `json:"people"`
	Faces         []Detection `json:"faces"`
	ViolenceScore float32     `json:"violence_score"` // 0 when the clip classifier is disabled
	At            time.Time   `json:"at"`
}

// Empty reports whether no detector produced output this cycle.
func (b Bundle) Empty() bool {
	return len(b.Weapons) == 0 && len(b.People) == 0 && len(b.Faces) == 0 && b.ViolenceScore == 0
}

// ByKind returns the detections of one kind.
func (b Bundle) ByKind(kind Kind) []Detection {
	switch kind {
	case KindWeapon:
		return b.Weapons
	case KindPerson:
		return b.People
	case KindFace:
		return b.Faces
	}
	return nil
}
