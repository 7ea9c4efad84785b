package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
)

// blockingBundler holds every Run call until released, counting how many are
// in flight at once.
type blockingBundler struct {
	release  chan struct{}
	inflight atomic.Int32
	peak     atomic.Int32
	bundle   models.Bundle
	err      error
}

func newBlockingBundler() *blockingBundler {
	return &blockingBundler{release: make(chan struct{})}
}

func (b *blockingBundler) Run(frame source.Frame) (models.Bundle, error) {
	n := b.inflight.Add(1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	<-b.release
	b.inflight.Add(-1)
	return b.bundle, b.err
}

func frame(seq uint64) source.Frame {
	return source.Frame{Seq: seq, CapturedAt: time.Now(), Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
}

// drive feeds n frames through the scheduler as if captured.
func drive(s *Scheduler, n int) {
	for i := 0; i < n; i++ {
		s.frames++
		s.Tick(frame(s.frames))
	}
}

func TestSchedulerRunsAtMostOneInference(t *testing.T) {
	bundler := newBlockingBundler()
	s := NewScheduler(SchedulerConfig{Bundler: bundler, Interval: 4})

	// 16 frames cross the detection cadence 4 times while the first job
	// never finishes.
	drive(s, 16)

	// Wait for the single worker goroutine to be running.
	deadline := time.After(time.Second)
	for bundler.inflight.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no inference job started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if peak := bundler.peak.Load(); peak != 1 {
		t.Fatalf("peak concurrent inference jobs = %d, want 1", peak)
	}

	close(bundler.release)
}

func TestSchedulerCollectsCompletedCycle(t *testing.T) {
	bundler := newBlockingBundler()
	bundler.bundle = models.Bundle{
		Weapons: []models.Detection{{Kind: models.KindWeapon, Label: "knife", Confidence: 0.9}},
	}

	var cycles atomic.Int32
	var got models.Bundle
	s := NewScheduler(SchedulerConfig{
		Bundler:  bundler,
		Interval: 4,
		OnCycle: func(bundle models.Bundle, _ source.Frame) {
			cycles.Add(1)
			got = bundle
		},
	})

	drive(s, 4) // submits the job
	close(bundler.release)

	// Poll on the detection cadence until the result is collected.
	deadline := time.After(time.Second)
	for cycles.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("completed cycle never collected")
		default:
		}
		drive(s, 4)
		time.Sleep(time.Millisecond)
	}

	if cycles.Load() != 1 {
		t.Fatalf("cycle delivered %d times, want once", cycles.Load())
	}
	if len(got.Weapons) != 1 || got.Weapons[0].Label != "knife" {
		t.Fatalf("wrong bundle delivered: %+v", got)
	}
	if s.Cache().Len(models.KindWeapon) != 1 {
		t.Fatal("cycle result not inserted into the cache")
	}
}

func TestSchedulerToleratesDetectorFailure(t *testing.T) {
	bundler := newBlockingBundler()
	bundler.err = errors.New("model exploded")
	close(bundler.release)

	var cycles atomic.Int32
	var got models.Bundle
	s := NewScheduler(SchedulerConfig{
		Bundler:  bundler,
		Interval: 2,
		OnCycle: func(bundle models.Bundle, _ source.Frame) {
			cycles.Add(1)
			got = bundle
		},
	})

	deadline := time.After(time.Second)
	for cycles.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("failed cycle never surfaced")
		default:
		}
		drive(s, 2)
		time.Sleep(time.Millisecond)
	}

	if !got.Empty() {
		t.Fatalf("failed cycle delivered a non-empty bundle: %+v", got)
	}
	if s.Cache().Len(models.KindWeapon) != 0 {
		t.Fatal("failed cycle polluted the cache")
	}
}

// stubSource yields frames forever.
type stubSource struct {
	seq atomic.Uint64
}

func (s *stubSource) Read(ctx context.Context) (source.Frame, error) {
	if err := ctx.Err(); err != nil {
		return source.Frame{}, err
	}
	return frame(s.seq.Add(1)), nil
}

func (s *stubSource) Close() error { return nil }

// failingSource errors on the first read.
type failingSource struct{}

func (failingSource) Read(ctx context.Context) (source.Frame, error) {
	return source.Frame{}, errors.New("stream gone")
}

func (failingSource) Close() error { return nil }

func TestSchedulerStopTerminatesRun(t *testing.T) {
	bundler := newBlockingBundler()
	close(bundler.release)

	s := NewScheduler(SchedulerConfig{Source: &stubSource{}, Bundler: bundler, Interval: 4})

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("clean stop returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate after Stop")
	}
}

func TestSchedulerReturnsSourceError(t *testing.T) {
	bundler := newBlockingBundler()
	close(bundler.release)

	s := NewScheduler(SchedulerConfig{Source: failingSource{}, Bundler: bundler, Interval: 4})
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("source failure did not surface from Run")
	}
}
