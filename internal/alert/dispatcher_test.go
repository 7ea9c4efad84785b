package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/notify"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/source"
)

type fakeRecorder struct {
	mu         sync.Mutex
	logErr     error
	records    []models.DetectionRecord
	emailSent  []uuid.UUID
	beepPlayed []uuid.UUID
}

func (r *fakeRecorder) LogDetection(ctx context.Context, rec *models.DetectionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logErr != nil {
		return r.logErr
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeRecorder) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emailSent = append(r.emailSent, id)
	return nil
}

func (r *fakeRecorder) MarkBeepPlayed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beepPlayed = append(r.beepPlayed, id)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent int
}

func (m *fakeMailer) Send(ctx context.Context, subject, body string, attachment []byte, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent++
	return nil
}

type silentPlayer struct{}

func (silentPlayer) PlayPattern(ctx context.Context, tones []Tone) error { return nil }

type fakePublisher struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (p *fakePublisher) PublishAlert(ctx context.Context, ev models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func signal(category models.Category, at time.Time) models.ThreatSignal {
	return models.ThreatSignal{
		Category:    category,
		Severity:    models.SeverityHigh,
		Confidence:  0.9,
		Description: fmt.Sprintf("%s detected", category),
		At:          at,
	}
}

func evidence() source.Frame {
	return source.Frame{Seq: 1, Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
}

func newTestDispatcher(rec *fakeRecorder, mailer Mailer, pub Publisher, cooldown time.Duration) *Dispatcher {
	return NewDispatcher(Config{
		Recorder:  rec,
		Mailer:    mailer,
		Player:    silentPlayer{},
		Publisher: pub,
		UserEmail: "owner@example.com",
		SessionID: uuid.New(),
		Cooldown:  func(models.Category) time.Duration { return cooldown },
	})
}

func TestDispatchCooldownSuppression(t *testing.T) {
	rec := &fakeRecorder{}
	d := newTestDispatcher(rec, nil, nil, 3*time.Second)
	base := time.Now()

	if !d.Dispatch(context.Background(), signal(models.CategoryCrowd, base), evidence()) {
		t.Fatal("first alert was suppressed")
	}
	if d.Dispatch(context.Background(), signal(models.CategoryCrowd, base.Add(time.Second)), evidence()) {
		t.Fatal("alert within cooldown was admitted")
	}
	if !d.Dispatch(context.Background(), signal(models.CategoryCrowd, base.Add(3100*time.Millisecond)), evidence()) {
		t.Fatal("alert after cooldown was suppressed")
	}

	d.Drain()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 2 {
		t.Fatalf("persisted %d records, want 2", len(rec.records))
	}
}

func TestDispatchCooldownIsPerCategory(t *testing.T) {
	rec := &fakeRecorder{}
	d := newTestDispatcher(rec, nil, nil, 3*time.Second)
	base := time.Now()

	d.Dispatch(context.Background(), signal(models.CategoryCrowd, base), evidence())
	if !d.Dispatch(context.Background(), signal(models.CategoryWeapon, base.Add(time.Second)), evidence()) {
		t.Fatal("weapon alert suppressed by crowd cooldown")
	}
	d.Drain()
}

func TestDispatchEmailAuthFailureStillBeepsAndRecords(t *testing.T) {
	rec := &fakeRecorder{}
	mailer := &fakeMailer{err: fmt.Errorf("login rejected: %w", notify.ErrAuth)}
	d := newTestDispatcher(rec, mailer, nil, 3*time.Second)

	if !d.Dispatch(context.Background(), signal(models.CategoryWeapon, time.Now()), evidence()) {
		t.Fatal("alert suppressed")
	}
	d.Drain()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(rec.records))
	}
	if len(rec.beepPlayed) != 1 {
		t.Fatal("beep was not marked despite email failure")
	}
	if len(rec.emailSent) != 0 {
		t.Fatal("email marked sent although delivery failed")
	}
}

func TestDispatchSurvivesRecorderFailure(t *testing.T) {
	rec := &fakeRecorder{logErr: errors.New("db down")}
	mailer := &fakeMailer{}
	d := newTestDispatcher(rec, mailer, nil, 3*time.Second)

	if !d.Dispatch(context.Background(), signal(models.CategoryCrowd, time.Now()), evidence()) {
		t.Fatal("persistence failure blocked the dispatch")
	}
	d.Drain()

	mailer.mu.Lock()
	sent := mailer.sent
	mailer.mu.Unlock()
	if sent != 1 {
		t.Fatalf("email sent %d times, want 1 despite recorder failure", sent)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	// No record exists, so neither flag update may run.
	if len(rec.beepPlayed) != 0 || len(rec.emailSent) != 0 {
		t.Fatal("flag updates ran for an unrecorded alert")
	}
}

func TestDispatchPublishesAlertEvent(t *testing.T) {
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	d := newTestDispatcher(rec, nil, pub, 3*time.Second)
	at := time.Now()

	d.Dispatch(context.Background(), signal(models.CategoryWeapon, at), evidence())
	d.Drain()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Category != models.CategoryWeapon {
		t.Errorf("event category = %s", ev.Category)
	}
	if ev.RecordID == uuid.Nil {
		t.Error("event carries no record id")
	}
	if !ev.Timestamp.Equal(at) {
		t.Errorf("event timestamp = %v, want %v", ev.Timestamp, at)
	}
}

func TestOnDispatchedRunsOnlyForAdmittedSignals(t *testing.T) {
	rec := &fakeRecorder{}
	var resets []models.Category
	d := NewDispatcher(Config{
		Recorder:  rec,
		Player:    silentPlayer{},
		SessionID: uuid.New(),
		Cooldown:  func(models.Category) time.Duration { return 3 * time.Second },
		OnDispatched: func(c models.Category) {
			resets = append(resets, c)
		},
	})
	base := time.Now()

	d.Dispatch(context.Background(), signal(models.CategoryWeapon, base), evidence())
	d.Dispatch(context.Background(), signal(models.CategoryWeapon, base.Add(time.Second)), evidence())
	d.Drain()

	if len(resets) != 1 || resets[0] != models.CategoryWeapon {
		t.Fatalf("onDispatched calls = %v, want exactly one weapon", resets)
	}
}

func TestBeepPatternsAreDistinctPerCategory(t *testing.T) {
	seen := map[string]models.Category{}
	for _, c := range []models.Category{
		models.CategoryWeapon, models.CategoryViolence, models.CategoryCrowd, models.CategoryBehavior,
	} {
		key := fmt.Sprintf("%v", patternFor(c))
		if prev, dup := seen[key]; dup {
			t.Errorf("categories %s and %s share a beep pattern", prev, c)
		}
		seen[key] = c
	}

	// Weapon pattern carries 5 audible tones.
	audible := 0
	for _, tone := range patternFor(models.CategoryWeapon) {
		if tone.Frequency != 0 {
			audible++
		}
	}
	if audible != 5 {
		t.Errorf("weapon pattern has %d audible tones, want 5", audible)
	}
}
