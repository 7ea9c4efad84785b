// Package threat turns raw per-cycle detection bundles into confirmed,
// categorized threat signals.
package threat

import (
	"fmt"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/observability"
)

// confirmation tracks multi-cycle agreement for the weapon category. A
// single missed cycle does not reset progress; only a gap longer than the
// window does.
type confirmation struct {
	count      int
	lastSeenAt time.Time
}

// Evaluator applies per-category thresholds and the weapon debounce rule.
// All state is owned by the scheduler goroutine; methods are not safe for
// concurrent use.
type Evaluator struct {
	crowdThreshold    int
	suspicious        map[string]bool
	emotionConfidence float32
	violenceThreshold float32
	confirmWindow     time.Duration
	confirmThreshold  int

	weaponConfirm confirmation
}

func NewEvaluator(cfg config.DetectionConfig) *Evaluator {
	suspicious := make(map[string]bool, len(cfg.SuspiciousEmotions))
	for _, e := range cfg.SuspiciousEmotions {
		suspicious[e] = true
	}
	return &Evaluator{
		crowdThreshold:    cfg.CrowdThreshold,
		suspicious:        suspicious,
		emotionConfidence: float32(cfg.EmotionConfidence),
		violenceThreshold: float32(cfg.ViolenceThreshold),
		confirmWindow:     cfg.ConfirmationWindow,
		confirmThreshold:  cfg.ConfirmationThreshold,
	}
}

// Evaluate inspects one completed inference cycle and returns zero or more
// threat signals. Categories are independent and can co-fire in the same
// cycle. An empty bundle yields no signals.
func (e *Evaluator) Evaluate(bundle models.Bundle, now time.Time) []models.ThreatSignal {
	var signals []models.ThreatSignal

	if sig, ok := e.evaluateWeapon(bundle, now); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.evaluateCrowd(bundle, now); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.evaluateBehavior(bundle, now); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.evaluateViolence(bundle, now); ok {
		signals = append(signals, sig)
	}

	for _, sig := range signals {
		observability.ThreatsConfirmed.WithLabelValues(string(sig.Category)).Inc()
	}
	return signals
}

// ResetWeaponConfirmation clears the accumulated weapon confirmation state.
// The dispatcher's owner calls it after a weapon alert is actually sent, so
// the next alert requires fresh multi-cycle agreement.
func (e *Evaluator) ResetWeaponConfirmation() {
	e.weaponConfirm = confirmation{}
}

// evaluateWeapon requires the raw signal on at least confirmThreshold cycles
// within the confirmation window before emitting. Reflective or metallic
// objects produce one-off false positives; the debounce filters those out.
func (e *Evaluator) evaluateWeapon(bundle models.Bundle, now time.Time) (models.ThreatSignal, bool) {
	if len(bundle.Weapons) == 0 {
		// Absence does not reset progress; only the timeout below does.
		return models.ThreatSignal{}, false
	}

	if !e.weaponConfirm.lastSeenAt.IsZero() && now.Sub(e.weaponConfirm.lastSeenAt) > e.confirmWindow {
		e.weaponConfirm.count = 0
	}
	e.weaponConfirm.count++
	e.weaponConfirm.lastSeenAt = now

	// Emit only on the cycle that crosses the threshold; continued presence
	// keeps counting without re-firing until the state is reset.
	if e.weaponConfirm.count != e.confirmThreshold {
		return models.ThreatSignal{}, false
	}

	return models.ThreatSignal{
		Category:    models.CategoryWeapon,
		Severity:    models.SeverityCritical,
		Confidence:  maxConfidence(bundle.Weapons),
		Description: fmt.Sprintf("%d weapon(s) detected in surveillance area", len(bundle.Weapons)),
		Detections:  bundle.Weapons,
		At:          now,
	}, true
}

// evaluateCrowd fires when the person count is strictly greater than the
// threshold. No multi-cycle confirmation.
func (e *Evaluator) evaluateCrowd(bundle models.Bundle, now time.Time) (models.ThreatSignal, bool) {
	count := len(bundle.People)
	if count <= e.crowdThreshold {
		return models.ThreatSignal{}, false
	}
	return models.ThreatSignal{
		Category:    models.CategoryCrowd,
		Severity:    models.SeverityHigh,
		Confidence:  maxConfidence(bundle.People),
		Description: fmt.Sprintf("large crowd of %d people detected", count),
		Detections:  bundle.People,
		At:          now,
	}, true
}

// evaluateBehavior fires when any face's dominant emotion is in the
// suspicious set with confidence at or above the threshold.
func (e *Evaluator) evaluateBehavior(bundle models.Bundle, now time.Time) (models.ThreatSignal, bool) {
	var suspicious []models.Detection
	for _, face := range bundle.Faces {
		if e.suspicious[face.Label] && face.Confidence >= e.emotionConfidence {
			suspicious = append(suspicious, face)
		}
	}
	if len(suspicious) == 0 {
		return models.ThreatSignal{}, false
	}
	return models.ThreatSignal{
		Category:    models.CategoryBehavior,
		Severity:    models.SeverityMedium,
		Confidence:  maxConfidence(suspicious),
		Description: fmt.Sprintf("suspicious behavior: %d concerning expression(s), dominant %q", len(suspicious), suspicious[0].Label),
		Detections:  suspicious,
		At:          now,
	}, true
}

// evaluateViolence fires when the clip-level score reaches the threshold.
func (e *Evaluator) evaluateViolence(bundle models.Bundle, now time.Time) (models.ThreatSignal, bool) {
	if bundle.ViolenceScore < e.violenceThreshold || e.violenceThreshold == 0 {
		return models.ThreatSignal{}, false
	}
	return models.ThreatSignal{
		Category:    models.CategoryViolence,
		Severity:    models.SeverityCritical,
		Confidence:  bundle.ViolenceScore,
		Description: fmt.Sprintf("violent activity detected (clip score %.2f)", bundle.ViolenceScore),
		At:          now,
	}, true
}

func maxConfidence(detections []models.Detection) float32 {
	var best float32
	for _, d := range detections {
		if d.Confidence > best {
			best = d.Confidence
		}
	}
	return best
}
