package monitor

import (
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/observability"
)

type cachedDetection struct {
	det       models.Detection
	createdAt time.Time
}

// Cache smooths sparse, bursty detections into a continuously rendered
// overlay by retaining boxes for a fixed lifetime after the cycle that
// produced them. It is touched only from the scheduler goroutine, so no
// locking is needed.
type Cache struct {
	entries map[models.Kind][]cachedDetection
}

func NewCache() *Cache {
	return &Cache{entries: make(map[models.Kind][]cachedDetection)}
}

// Insert appends detections of one kind, each stamped with at. No
// deduplication is attempted: overlapping boxes from repeated detections of
// the same object expire quickly enough that the redundancy is only visual.
func (c *Cache) Insert(kind models.Kind, detections []models.Detection, at time.Time) {
	for _, det := range detections {
		c.entries[kind] = append(c.entries[kind], cachedDetection{det: det, createdAt: at})
	}
	observability.CacheSize.WithLabelValues(string(kind)).Set(float64(len(c.entries[kind])))
}

// PurgeExpired drops entries whose age has reached lifetime. O(current cache
// size); idempotent for a fixed now.
func (c *Cache) PurgeExpired(now time.Time, lifetime time.Duration) {
	for kind, entries := range c.entries {
		kept := entries[:0]
		for _, e := range entries {
			if now.Sub(e.createdAt) < lifetime {
				kept = append(kept, e)
			}
		}
		c.entries[kind] = kept
		observability.CacheSize.WithLabelValues(string(kind)).Set(float64(len(kept)))
	}
}

// Snapshot returns the current contents per kind for rendering. The returned
// slices are copies; mutating them does not affect the cache.
func (c *Cache) Snapshot() map[models.Kind][]models.Detection {
	out := make(map[models.Kind][]models.Detection, len(c.entries))
	for kind, entries := range c.entries {
		if len(entries) == 0 {
			continue
		}
		dets := make([]models.Detection, 0, len(entries))
		for _, e := range entries {
			dets = append(dets, e.det)
		}
		out[kind] = dets
	}
	return out
}

// Len reports the number of live entries for one kind.
func (c *Cache) Len(kind models.Kind) int {
	return len(c.entries[kind])
}
