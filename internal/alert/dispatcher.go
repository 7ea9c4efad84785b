package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/notify"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/observability"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
)

// Recorder is the persistence collaborator: it creates the detection record
// and later flips its side-effect flags.
type Recorder interface {
	LogDetection(ctx context.Context, rec *models.DetectionRecord) error
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	MarkBeepPlayed(ctx context.Context, id uuid.UUID) error
}

// Mailer sends one alert email with an evidence attachment.
type Mailer interface {
	Send(ctx context.Context, subject, body string, attachment []byte, attachmentName string) error
}

// SnapshotStore persists the evidence frame so the API can serve it later.
type SnapshotStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Publisher fans a dispatched alert out to an event channel (NATS, MQTT).
type Publisher interface {
	PublishAlert(ctx context.Context, event models.AlertEvent) error
}

// Dispatcher converts confirmed threat signals into side effects: beep,
// email, database record, snapshot upload and event publish. Nothing in here
// may propagate an error back into the capture loop, and nothing but the
// cooldown gate runs synchronously with the caller.
type Dispatcher struct {
	recorder  Recorder
	mailer    Mailer
	player    Player
	snapshots SnapshotStore
	publisher Publisher

	userEmail string
	sessionID uuid.UUID
	cooldown  func(category models.Category) time.Duration

	// lastAlert is touched only from the scheduler goroutine (the thread
	// that drains inference results), so no lock is required.
	lastAlert map[models.Category]time.Time

	onDispatched func(category models.Category)
	now          func() time.Time
	wg           sync.WaitGroup
}

// Config wires a Dispatcher. Mailer, SnapshotStore and Publisher are
// optional; a nil collaborator disables that channel.
type Config struct {
	Recorder  Recorder
	Mailer    Mailer
	Player    Player
	Snapshots SnapshotStore
	Publisher Publisher

	UserEmail string
	SessionID uuid.UUID
	// Cooldown resolves the per-category suppression window.
	Cooldown func(category models.Category) time.Duration
	// OnDispatched runs synchronously after the cooldown gate admits a
	// signal (used to reset the weapon confirmation state).
	OnDispatched func(category models.Category)
}

func NewDispatcher(cfg Config) *Dispatcher {
	player := cfg.Player
	if player == nil {
		player = NewPlayer()
	}
	return &Dispatcher{
		recorder:     cfg.Recorder,
		mailer:       cfg.Mailer,
		player:       player,
		snapshots:    cfg.Snapshots,
		publisher:    cfg.Publisher,
		userEmail:    cfg.UserEmail,
		sessionID:    cfg.SessionID,
		cooldown:     cfg.Cooldown,
		lastAlert:    make(map[models.Category]time.Time),
		onDispatched: cfg.OnDispatched,
		now:          time.Now,
	}
}

// Dispatch handles one confirmed threat signal. It returns immediately after
// the cooldown check and kicking off the side effects; the return value
// reports whether the signal was admitted or dropped by the cooldown gate.
func (d *Dispatcher) Dispatch(ctx context.Context, sig models.ThreatSignal, evidence source.Frame) bool {
	now := sig.At
	if now.IsZero() {
		now = d.now()
	}

	if last, ok := d.lastAlert[sig.Category]; ok {
		if now.Sub(last) < d.cooldown(sig.Category) {
			observability.AlertsSuppressed.WithLabelValues(string(sig.Category)).Inc()
			return false
		}
	}
	// Set-before-dispatch: overlapping signals of the same category in the
	// same instant cannot double-fire.
	d.lastAlert[sig.Category] = now
	observability.AlertsDispatched.WithLabelValues(string(sig.Category)).Inc()

	if d.onDispatched != nil {
		d.onDispatched(sig.Category)
	}

	recordID := uuid.New()
	rec := &models.DetectionRecord{
		ID:          recordID,
		UserEmail:   d.userEmail,
		SessionID:   d.sessionID,
		Category:    sig.Category,
		Confidence:  sig.Confidence,
		Description: sig.Description,
		SnapshotKey: fmt.Sprintf("alerts/%s/%s.jpg", d.sessionID, recordID),
		CreatedAt:   now,
	}

	recorded := true
	if err := d.recorder.LogDetection(ctx, rec); err != nil {
		// Persistence failure must not block sound or email.
		slog.Error("log detection failed", "category", sig.Category, "error", err)
		recorded = false
	}

	slog.Warn("threat alert dispatched",
		"category", sig.Category,
		"confidence", sig.Confidence,
		"description", sig.Description,
	)

	// The side-effect goroutines only read immutable snapshots: the record
	// value, the message strings and a private frame copy.
	frame := evidence.Clone()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.playBeep(sig.Category, rec.ID, recorded)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(sig, *rec, frame, recorded)
	}()

	return true
}

// Drain waits for all in-flight side-effect goroutines. Used on shutdown and
// by tests; alerts are best-effort, so callers may bound this with a timeout.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

// playBeep plays the category pattern, falling back to the terminal bell
// when the audio backend fails, then marks the record.
func (d *Dispatcher) playBeep(category models.Category, recordID uuid.UUID, recorded bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tones := patternFor(category)
	if err := d.player.PlayPattern(ctx, tones); err != nil {
		slog.Warn("audio backend failed, using bell fallback", "category", category, "error", err)
		if err := (BellPlayer{}).PlayPattern(ctx, tones); err != nil {
			slog.Warn("bell fallback failed", "error", err)
		}
	}

	if recorded {
		if err := d.recorder.MarkBeepPlayed(ctx, recordID); err != nil {
			slog.Warn("mark beep played failed", "record", recordID, "error", err)
		}
	}
}

// deliver uploads the evidence snapshot, publishes the alert event and sends
// the email. All failures are logged and swallowed.
func (d *Dispatcher) deliver(sig models.ThreatSignal, rec models.DetectionRecord, frame source.Frame, recorded bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshotKey := rec.SnapshotKey
	if d.snapshots != nil && len(frame.Data) > 0 {
		if err := d.snapshots.PutObject(ctx, snapshotKey, frame.Data, "image/jpeg"); err != nil {
			slog.Warn("store evidence snapshot failed", "key", snapshotKey, "error", err)
			snapshotKey = ""
		}
	}

	if d.publisher != nil {
		event := models.AlertEvent{
			RecordID:    rec.ID,
			SessionID:   rec.SessionID,
			Category:    rec.Category,
			Confidence:  rec.Confidence,
			Description: rec.Description,
			SnapshotKey: snapshotKey,
			Timestamp:   rec.CreatedAt,
		}
		if err := d.publisher.PublishAlert(ctx, event); err != nil {
			slog.Warn("publish alert event failed", "category", rec.Category, "error", err)
		}
	}

	if d.mailer == nil {
		return
	}

	subject := fmt.Sprintf("SECURITY ALERT: %s", sig.Category)
	body := emailBody(sig, rec, d.userEmail)
	err := d.mailer.Send(ctx, subject, body, frame.Data, fmt.Sprintf("%s_evidence.jpg", sig.Category))
	if err != nil {
		cause := notify.Classify(err)
		observability.EmailFailures.WithLabelValues(cause).Inc()
		switch cause {
		case notify.CauseAuth:
			slog.Error("alert email rejected: credentials missing or invalid, check SSS_EMAIL/SSS_EMAIL_PASS",
				"category", rec.Category, "error", err)
		case notify.CauseNetwork:
			slog.Error("alert email failed: network error reaching SMTP server",
				"category", rec.Category, "error", err)
		default:
			slog.Error("alert email failed", "category", rec.Category, "error", err)
		}
		// No retry within this alert's lifecycle; the next occurrence after
		// cooldown is a fresh attempt.
		return
	}

	if recorded {
		if err := d.recorder.MarkEmailSent(ctx, rec.ID); err != nil {
			slog.Warn("mark email sent failed", "record", rec.ID, "error", err)
		}
	}
}

func emailBody(sig models.ThreatSignal, rec models.DetectionRecord, recipient string) string {
	return fmt.Sprintf(`SMART SURVEILLANCE SYSTEM - SECURITY ALERT

ALERT TYPE: %s
TIME: %s
DETECTION ID: %s

ALERT DETAILS:
%s

RECOMMENDED ACTIONS:
- Check the surveillance feed immediately
- Verify the threat level in the monitored area
- Contact security if necessary
- Review the attached evidence image

This alert was automatically sent to: %s
`,
		sig.Category,
		rec.CreatedAt.Format("2006-01-02 15:04:05"),
		rec.ID,
		sig.Description,
		recipient,
	)
}
