package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/detect"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/observability"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
)

// CycleFunc receives each completed inference cycle exactly once, in
// completion order, on the scheduler goroutine. The frame is the most recent
// capture at collection time, for use as alert evidence.
type CycleFunc func(bundle models.Bundle, frame source.Frame)

// Sink receives every displayed frame with the overlay already rendered.
// Push must not block for long; slow consumers drop frames.
type Sink interface {
	Push(frame source.Frame)
}

// inferenceJob is the single-slot handle for an in-flight detection run.
// Written by the worker goroutine, read by the scheduler after done closes.
type inferenceJob struct {
	done   chan struct{}
	bundle models.Bundle
	err    error
}

// Scheduler owns the capture loop: it keeps display smooth regardless of
// inference latency by running at most one detection job at a time and
// rendering from the persistence cache on every frame.
type Scheduler struct {
	src      source.Source
	bundler  detect.Bundler
	cache    *Cache
	onCycle  CycleFunc
	sink     Sink
	interval int
	lifetime time.Duration

	running  atomic.Bool
	inflight *inferenceJob
	frames   uint64
	now      func() time.Time
}

// SchedulerConfig wires a Scheduler. OnCycle and Sink are optional.
type SchedulerConfig struct {
	Source      source.Source
	Bundler     detect.Bundler
	Interval    int           // frames between inference submissions
	BoxLifetime time.Duration // overlay persistence window
	OnCycle     CycleFunc
	Sink        Sink
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 4
	}
	lifetime := cfg.BoxLifetime
	if lifetime <= 0 {
		lifetime = 4 * time.Second
	}
	return &Scheduler{
		src:      cfg.Source,
		bundler:  cfg.Bundler,
		cache:    NewCache(),
		onCycle:  cfg.OnCycle,
		sink:     cfg.Sink,
		interval: interval,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Cache exposes the persistence cache for rendering and inspection. Call it
// only from the scheduler goroutine.
func (s *Scheduler) Cache() *Cache {
	return s.cache
}

// Run drives the capture loop until Stop is called, the context is
// cancelled, or a source read fails. The read error is returned so the owner
// can decide whether to reconnect; a clean Stop returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	for s.running.Load() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := s.src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || !s.running.Load() {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		s.frames++
		observability.FramesCaptured.Inc()
		s.Tick(frame)
	}

	return nil
}

// Tick processes one captured frame: poll/submit inference on the detection
// cadence, then purge, render and push. Exposed separately from Run so tests
// can drive the loop frame by frame.
func (s *Scheduler) Tick(frame source.Frame) {
	now := s.now()

	if s.frames%uint64(s.interval) == 0 {
		s.pollInflight(frame, now)
		if s.inflight == nil {
			s.submit(frame.Clone())
		}
	}

	s.cache.PurgeExpired(now, s.lifetime)

	if s.sink != nil {
		s.render(frame)
	}
}

// pollInflight collects a completed inference job without ever blocking on
// an unfinished one.
func (s *Scheduler) pollInflight(frame source.Frame, now time.Time) {
	job := s.inflight
	if job == nil {
		return
	}

	select {
	case <-job.done:
	default:
		return // still running; do not submit another
	}

	s.inflight = nil
	observability.DetectionCycles.Inc()

	bundle := job.bundle
	if job.err != nil {
		// A failed detector cycle degrades to an empty bundle; the loop
		// must keep going.
		slog.Warn("inference cycle failed", "error", job.err)
		bundle = models.Bundle{At: now}
	}

	for _, kind := range models.Kinds {
		if dets := bundle.ByKind(kind); len(dets) > 0 {
			s.cache.Insert(kind, dets, now)
		}
	}

	if s.onCycle != nil {
		s.onCycle(bundle, frame)
	}
}

// submit hands a private frame copy to the single-slot worker.
func (s *Scheduler) submit(frame source.Frame) {
	job := &inferenceJob{done: make(chan struct{})}
	s.inflight = job

	go func() {
		defer func() {
			if r := recover(); r != nil {
				job.err = fmt.Errorf("detector panic: %v", r)
			}
			close(job.done)
		}()
		job.bundle, job.err = s.bundler.Run(frame)
	}()
}

// render draws the cache contents over the frame and pushes it to the sink.
func (s *Scheduler) render(frame source.Frame) {
	annotated, err := renderOverlay(frame.Data, s.cache.Snapshot())
	if err != nil {
		slog.Debug("overlay render failed", "error", err)
		annotated = frame.Data
	}
	out := frame
	out.Data = annotated
	s.sink.Push(out)
}

// Stop requests loop termination. Safe to call from any goroutine; the loop
// exits within at most one frame read. Any in-flight inference job is
// abandoned and its late result discarded.
func (s *Scheduler) Stop() {
	s.running.Store(false)
}
