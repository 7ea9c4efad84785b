// Package detect wraps the ML models behind narrow adapter contracts so the
// scheduler never talks to ONNX directly and tests can substitute fakes.
package detect

import (
	"image"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

// Adapter is one per-frame detector. Detect must be safe to call repeatedly,
// must not retain img after returning, and may fail; the caller treats a
// failure as "no detections this cycle".
type Adapter interface {
	Detect(img image.Image) ([]models.Detection, error)
	Close()
}

// ClipClassifier scores a rolling clip of frames rather than a single frame.
// Push feeds the next sampled frame; Score returns the current clip-level
// probability, or 0 before the clip buffer has filled once.
type ClipClassifier interface {
	Push(img image.Image)
	Score() (float32, error)
	Close()
}
