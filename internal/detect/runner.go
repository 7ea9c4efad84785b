package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/observability"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
)

// weaponClasses are the subtypes the weapon model was trained on. Reflective
// household metal is a known confuser; the evaluator's multi-cycle
// confirmation exists because of it.
var weaponClasses = []string{"knife", "gun", "sword", "pistol", "rifle"}

// cocoPerson is the person class index in the COCO label set.
const cocoPerson = 0

// cocoClasses is abbreviated to the classes the person model can emit after
// filtering; only "person" survives, the rest exist to keep score-row indexing
// aligned with the exported model.
var cocoClasses = buildCOCOClasses()

var emotionClasses = []string{"angry", "disgust", "fear", "happy", "neutral", "sad", "surprise"}

// Bundler produces one detection bundle per inference cycle. The scheduler
// depends on this interface so tests can inject synthetic detectors.
type Bundler interface {
	Run(frame source.Frame) (models.Bundle, error)
}

// Runner fans a frame out to every configured adapter and assembles the
// cycle's Bundle. Adapter failures degrade to an empty kind; only a frame
// decode failure is returned as an error.
type Runner struct {
	weapon   Adapter
	person   Adapter
	emotion  Adapter
	violence ClipClassifier

	cycles       uint64
	emotionEvery int
}

// NewRunner loads all ONNX models from cfg.ModelsDir. The emotion and
// violence models are optional; a missing file disables that adapter with a
// warning instead of failing startup.
func NewRunner(cfg config.VisionConfig) (*Runner, error) {
	weaponPath := filepath.Join(cfg.ModelsDir, "weapon.onnx")
	personPath := filepath.Join(cfg.ModelsDir, "person.onnx")

	slog.Info("loading weapon model", "path", weaponPath)
	weapon, err := NewYOLODetector(weaponPath, models.KindWeapon, weaponClasses, nil, float32(cfg.WeaponThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load weapon detector: %w", err)
	}

	slog.Info("loading person model", "path", personPath)
	person, err := NewYOLODetector(personPath, models.KindPerson, cocoClasses, []int{cocoPerson}, float32(cfg.PersonThreshold), nil)
	if err != nil {
		weapon.Close()
		return nil, fmt.Errorf("load person detector: %w", err)
	}

	emotionEvery := cfg.EmotionFrameEvery
	if emotionEvery <= 0 {
		emotionEvery = 1
	}

	r := &Runner{
		weapon:       weapon,
		person:       person,
		emotionEvery: emotionEvery,
	}

	if cfg.EnableEmotion {
		emotionPath := filepath.Join(cfg.ModelsDir, "emotion.onnx")
		slog.Info("loading emotion model", "path", emotionPath)
		emotion, err := NewYOLODetector(emotionPath, models.KindFace, emotionClasses, nil, 0.25, nil)
		if err != nil {
			slog.Warn("emotion model unavailable, adapter disabled", "error", err)
		} else {
			r.emotion = emotion
		}
	}

	if cfg.EnableViolence {
		violencePath := filepath.Join(cfg.ModelsDir, "violence.onnx")
		slog.Info("loading violence model", "path", violencePath)
		violence, err := NewViolenceClassifier(violencePath, cfg.ViolenceClipLen, nil)
		if err != nil {
			slog.Warn("violence model unavailable, adapter disabled", "error", err)
		} else {
			r.violence = violence
		}
	}

	slog.Info("detection adapters ready",
		"emotion", r.emotion != nil,
		"violence", r.violence != nil,
	)

	return r, nil
}

// Run executes one inference cycle over a private frame copy.
func (r *Runner) Run(frame source.Frame) (models.Bundle, error) {
	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return models.Bundle{}, fmt.Errorf("decode frame: %w", err)
	}

	r.cycles++
	bundle := models.Bundle{At: frame.CapturedAt}

	bundle.Weapons = r.detectKind(r.weapon, "weapon", img)
	bundle.People = r.detectKind(r.person, "person", img)

	// Emotion inference is heavier and the signal changes slowly, so it runs
	// on a subset of cycles.
	if r.emotion != nil && r.cycles%uint64(r.emotionEvery) == 0 {
		bundle.Faces = r.detectKind(r.emotion, "emotion", img)
	}

	if r.violence != nil {
		start := time.Now()
		r.violence.Push(img)
		score, err := r.violence.Score()
		if err != nil {
			slog.Warn("violence classification failed", "error", err)
		} else {
			bundle.ViolenceScore = score
		}
		observability.InferenceDuration.WithLabelValues("violence").Observe(time.Since(start).Seconds())
	}

	for _, kind := range models.Kinds {
		if n := len(bundle.ByKind(kind)); n > 0 {
			observability.DetectionsTotal.WithLabelValues(string(kind)).Add(float64(n))
		}
	}

	return bundle, nil
}

func (r *Runner) detectKind(adapter Adapter, stage string, img image.Image) []models.Detection {
	start := time.Now()
	detections, err := adapter.Detect(img)
	observability.InferenceDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("detector failed, treating cycle as empty", "stage", stage, "error", err)
		return nil
	}
	return detections
}

// Close releases all ONNX sessions.
func (r *Runner) Close() {
	if r.weapon != nil {
		r.weapon.Close()
	}
	if r.person != nil {
		r.person.Close()
	}
	if r.emotion != nil {
		r.emotion.Close()
	}
	if r.violence != nil {
		r.violence.Close()
	}
}

func buildCOCOClasses() []string {
	// Only index 0 (person) is ever emitted; the remaining names keep the
	// score-row count aligned with the standard 80-class export.
	classes := make([]string, 80)
	classes[cocoPerson] = "person"
	for i := 1; i < len(classes); i++ {
		classes[i] = fmt.Sprintf("coco_%d", i)
	}
	return classes
}
