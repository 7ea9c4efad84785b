package threat

import (
	"testing"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

func testConfig() config.DetectionConfig {
	return config.DetectionConfig{
		ConfirmationWindow:    2 * time.Second,
		ConfirmationThreshold: 2,
		CrowdThreshold:        5,
		SuspiciousEmotions:    []string{"angry", "fear"},
		EmotionConfidence:     0.7,
		ViolenceThreshold:     0.8,
	}
}

func weaponBundle(conf float32) models.Bundle {
	return models.Bundle{
		Weapons: []models.Detection{{Kind: models.KindWeapon, Label: "knife", Confidence: conf}},
	}
}

func peopleBundle(n int) models.Bundle {
	b := models.Bundle{}
	for i := 0; i < n; i++ {
		b.People = append(b.People, models.Detection{Kind: models.KindPerson, Label: "person", Confidence: 0.9})
	}
	return b
}

func categories(signals []models.ThreatSignal) []models.Category {
	out := make([]models.Category, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Category)
	}
	return out
}

func hasCategory(signals []models.ThreatSignal, c models.Category) bool {
	for _, s := range signals {
		if s.Category == c {
			return true
		}
	}
	return false
}

func TestEmptyBundleYieldsNoSignals(t *testing.T) {
	e := NewEvaluator(testConfig())
	if sigs := e.Evaluate(models.Bundle{}, time.Now()); len(sigs) != 0 {
		t.Fatalf("empty bundle produced signals: %v", categories(sigs))
	}
}

func TestWeaponRequiresConfirmation(t *testing.T) {
	e := NewEvaluator(testConfig())
	base := time.Now()

	// First sighting: no alert yet.
	if sigs := e.Evaluate(weaponBundle(0.9), base); len(sigs) != 0 {
		t.Fatalf("single weapon sighting fired: %v", categories(sigs))
	}

	// Second sighting within the window confirms.
	sigs := e.Evaluate(weaponBundle(0.85), base.Add(500*time.Millisecond))
	if !hasCategory(sigs, models.CategoryWeapon) {
		t.Fatal("second sighting within window did not fire")
	}
	if sigs[0].Severity != models.SeverityCritical {
		t.Errorf("weapon severity = %v, want critical", sigs[0].Severity)
	}
}

func TestWeaponConfirmationTimeout(t *testing.T) {
	e := NewEvaluator(testConfig())
	base := time.Now()

	if sigs := e.Evaluate(weaponBundle(0.9), base); len(sigs) != 0 {
		t.Fatalf("first sighting fired: %v", categories(sigs))
	}

	// Gap longer than the window: progress resets, this counts as a fresh
	// first sighting.
	if sigs := e.Evaluate(weaponBundle(0.9), base.Add(5*time.Second)); len(sigs) != 0 {
		t.Fatalf("sighting after timeout fired immediately: %v", categories(sigs))
	}

	// One more within the window now confirms.
	sigs := e.Evaluate(weaponBundle(0.9), base.Add(5500*time.Millisecond))
	if !hasCategory(sigs, models.CategoryWeapon) {
		t.Fatal("confirmation after reset did not fire")
	}
}

func TestWeaponAbsenceDoesNotResetProgress(t *testing.T) {
	e := NewEvaluator(testConfig())
	base := time.Now()

	e.Evaluate(weaponBundle(0.9), base)
	// A cycle with no weapons in between.
	e.Evaluate(models.Bundle{}, base.Add(400*time.Millisecond))

	sigs := e.Evaluate(weaponBundle(0.9), base.Add(800*time.Millisecond))
	if !hasCategory(sigs, models.CategoryWeapon) {
		t.Fatal("absence cycle reset confirmation progress")
	}
}

func TestWeaponFiresOnceUntilReset(t *testing.T) {
	e := NewEvaluator(testConfig())
	base := time.Now()

	fired := 0
	for i := 0; i < 6; i++ {
		sigs := e.Evaluate(weaponBundle(0.9), base.Add(time.Duration(i)*300*time.Millisecond))
		if hasCategory(sigs, models.CategoryWeapon) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("weapon fired %d times across 6 consecutive cycles, want 1", fired)
	}

	// After a reset the next pair of sightings fires again.
	e.ResetWeaponConfirmation()
	e.Evaluate(weaponBundle(0.9), base.Add(3*time.Second))
	sigs := e.Evaluate(weaponBundle(0.9), base.Add(3300*time.Millisecond))
	if !hasCategory(sigs, models.CategoryWeapon) {
		t.Fatal("weapon did not re-fire after reset")
	}
}

func TestCrowdThresholdBoundary(t *testing.T) {
	e := NewEvaluator(testConfig())
	now := time.Now()

	// Exactly at the threshold: no alert.
	if sigs := e.Evaluate(peopleBundle(5), now); hasCategory(sigs, models.CategoryCrowd) {
		t.Fatal("crowd fired at exactly the threshold")
	}

	// Strictly greater fires.
	sigs := e.Evaluate(peopleBundle(6), now)
	if !hasCategory(sigs, models.CategoryCrowd) {
		t.Fatal("crowd did not fire above the threshold")
	}
	if sigs[0].Severity != models.SeverityHigh {
		t.Errorf("crowd severity = %v, want high", sigs[0].Severity)
	}
}

func TestBehaviorEmotionFilter(t *testing.T) {
	e := NewEvaluator(testConfig())
	now := time.Now()

	cases := []struct {
		name  string
		label string
		conf  float32
		want  bool
	}{
		{"angry above threshold", "angry", 0.8, true},
		{"fear at threshold", "fear", 0.7, true},
		{"angry below threshold", "angry", 0.65, false},
		{"neutral emotion", "happy", 0.95, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bundle := models.Bundle{
				Faces: []models.Detection{{Kind: models.KindFace, Label: tc.label, Confidence: tc.conf}},
			}
			got := hasCategory(e.Evaluate(bundle, now), models.CategoryBehavior)
			if got != tc.want {
				t.Errorf("label=%s conf=%.2f fired=%v, want %v", tc.label, tc.conf, got, tc.want)
			}
		})
	}
}

func TestViolenceScoreThreshold(t *testing.T) {
	e := NewEvaluator(testConfig())
	now := time.Now()

	if sigs := e.Evaluate(models.Bundle{ViolenceScore: 0.79}, now); hasCategory(sigs, models.CategoryViolence) {
		t.Fatal("violence fired below the threshold")
	}
	if sigs := e.Evaluate(models.Bundle{ViolenceScore: 0.8}, now); !hasCategory(sigs, models.CategoryViolence) {
		t.Fatal("violence did not fire at the threshold")
	}

	// A zero threshold disables the category entirely.
	disabled := NewEvaluator(config.DetectionConfig{CrowdThreshold: 5})
	if sigs := disabled.Evaluate(models.Bundle{ViolenceScore: 0.99}, now); hasCategory(sigs, models.CategoryViolence) {
		t.Fatal("violence fired with the category disabled")
	}
}

func TestCategoriesCoFire(t *testing.T) {
	e := NewEvaluator(testConfig())
	base := time.Now()

	// Prime the weapon confirmation.
	e.Evaluate(weaponBundle(0.9), base)

	bundle := peopleBundle(7)
	bundle.Weapons = weaponBundle(0.9).Weapons
	bundle.Faces = []models.Detection{{Kind: models.KindFace, Label: "angry", Confidence: 0.9}}

	sigs := e.Evaluate(bundle, base.Add(500*time.Millisecond))
	for _, want := range []models.Category{models.CategoryWeapon, models.CategoryCrowd, models.CategoryBehavior} {
		if !hasCategory(sigs, want) {
			t.Errorf("category %s did not co-fire, got %v", want, categories(sigs))
		}
	}
}
