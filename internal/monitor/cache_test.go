package monitor

import (
	"testing"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

func det(label string) models.Detection {
	return models.Detection{Kind: models.KindWeapon, Label: label, Confidence: 0.9}
}

func TestCacheRetainsWithinLifetime(t *testing.T) {
	c := NewCache()
	base := time.Now()
	lifetime := 4 * time.Second

	c.Insert(models.KindWeapon, []models.Detection{det("knife")}, base)

	c.PurgeExpired(base.Add(3900*time.Millisecond), lifetime)
	if c.Len(models.KindWeapon) != 1 {
		t.Fatal("entry purged before its lifetime elapsed")
	}

	// Expiry is inclusive: an entry aged exactly lifetime is gone.
	c.PurgeExpired(base.Add(lifetime), lifetime)
	if c.Len(models.KindWeapon) != 0 {
		t.Fatal("entry survived past its lifetime")
	}
}

func TestCachePurgeIsIdempotent(t *testing.T) {
	c := NewCache()
	base := time.Now()
	lifetime := 4 * time.Second

	c.Insert(models.KindWeapon, []models.Detection{det("knife")}, base)
	c.Insert(models.KindPerson, []models.Detection{det("person"), det("person")}, base.Add(2*time.Second))

	at := base.Add(5 * time.Second)
	c.PurgeExpired(at, lifetime)
	weapons, people := c.Len(models.KindWeapon), c.Len(models.KindPerson)

	c.PurgeExpired(at, lifetime)
	if c.Len(models.KindWeapon) != weapons || c.Len(models.KindPerson) != people {
		t.Fatal("second purge at the same instant changed the cache")
	}
	if weapons != 0 || people != 2 {
		t.Fatalf("after purge: weapons=%d people=%d, want 0 and 2", weapons, people)
	}
}

func TestCacheEntriesExpireIndependently(t *testing.T) {
	c := NewCache()
	base := time.Now()
	lifetime := 4 * time.Second

	c.Insert(models.KindWeapon, []models.Detection{det("knife")}, base)
	c.Insert(models.KindWeapon, []models.Detection{det("gun")}, base.Add(3*time.Second))

	c.PurgeExpired(base.Add(5*time.Second), lifetime)
	snap := c.Snapshot()
	if len(snap[models.KindWeapon]) != 1 {
		t.Fatalf("want 1 surviving weapon entry, got %d", len(snap[models.KindWeapon]))
	}
	if snap[models.KindWeapon][0].Label != "gun" {
		t.Errorf("wrong entry survived: %s", snap[models.KindWeapon][0].Label)
	}
}

func TestSnapshotCopiesAreIndependent(t *testing.T) {
	c := NewCache()
	c.Insert(models.KindPerson, []models.Detection{det("person")}, time.Now())

	snap := c.Snapshot()
	snap[models.KindPerson][0].Label = "mutated"

	if got := c.Snapshot()[models.KindPerson][0].Label; got != "person" {
		t.Fatalf("mutating a snapshot leaked into the cache: %s", got)
	}
}
