package alert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

// Tone is one element of a beep pattern. Frequency 0 means silence.
type Tone struct {
	Frequency int // Hz
	Duration  time.Duration
}

// Player emits an audible tone sequence. Implementations may block; the
// dispatcher always calls them from a background goroutine.
type Player interface {
	PlayPattern(ctx context.Context, tones []Tone) error
}

// patternFor returns the category's beep pattern. Each category is audibly
// distinct: weapons are the most urgent (most repetitions, highest pitch),
// behavior the mildest.
func patternFor(category models.Category) []Tone {
	switch category {
	case models.CategoryWeapon:
		return repeatTone(1500, 200*time.Millisecond, 5, 100*time.Millisecond)
	case models.CategoryViolence:
		return repeatTone(1300, 250*time.Millisecond, 4, 150*time.Millisecond)
	case models.CategoryCrowd:
		return repeatTone(1000, 300*time.Millisecond, 3, 200*time.Millisecond)
	default:
		return repeatTone(800, 400*time.Millisecond, 2, 300*time.Millisecond)
	}
}

func repeatTone(freq int, dur time.Duration, count int, gap time.Duration) []Tone {
	tones := make([]Tone, 0, count*2-1)
	for i := 0; i < count; i++ {
		if i > 0 {
			tones = append(tones, Tone{Frequency: 0, Duration: gap})
		}
		tones = append(tones, Tone{Frequency: freq, Duration: dur})
	}
	return tones
}

// FFplayPlayer synthesises tones with an ffplay subprocess (sine filter).
// ffmpeg is already a runtime dependency for device capture, so ffplay is
// the most portable tone source available.
type FFplayPlayer struct{}

func (FFplayPlayer) PlayPattern(ctx context.Context, tones []Tone) error {
	for _, tone := range tones {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tone.Frequency == 0 {
			time.Sleep(tone.Duration)
			continue
		}
		cmd := exec.CommandContext(ctx, "ffplay",
			"-f", "lavfi",
			"-i", fmt.Sprintf("sine=frequency=%d:duration=%.3f", tone.Frequency, tone.Duration.Seconds()),
			"-autoexit", "-nodisp", "-loglevel", "quiet",
		)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("ffplay tone: %w", err)
		}
	}
	return nil
}

// BellPlayer is the cross-platform fallback when no audio backend exists: it
// writes the terminal bell once per tone, preserving the pattern's rhythm so
// the categories stay distinguishable.
type BellPlayer struct{}

func (BellPlayer) PlayPattern(ctx context.Context, tones []Tone) error {
	for _, tone := range tones {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tone.Frequency != 0 {
			fmt.Fprint(os.Stderr, "\a")
		}
		time.Sleep(tone.Duration)
	}
	return nil
}

// NewPlayer picks ffplay when available and falls back to the terminal bell.
func NewPlayer() Player {
	if _, err := exec.LookPath("ffplay"); err == nil {
		return FFplayPlayer{}
	}
	return BellPlayer{}
}
