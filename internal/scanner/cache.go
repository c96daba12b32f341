package scanner

import (
	"sync"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// cache holds the scanner's published snapshot. The scanner task is the
// sole writer; a single lock guards both the snapshot and its timestamp,
// and a read returns the slice by reference rather than a defensive copy
// — writers always publish a brand new slice, never mutate in place.
type cache struct {
	mu          sync.RWMutex
	snapshot    []domain.Opportunity
	publishedAt time.Time
}

func newCache() *cache {
	return &cache{}
}

func (c *cache) publish(opps []domain.Opportunity, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = opps
	c.publishedAt = now
}

// Snapshot returns the most recently published opportunities and reports
// whether they are within ttl of now. A stale snapshot is still returned
// so callers can decide for themselves whether to act on it; the spec's
// convention is for callers to simply skip opens on a stale cycle rather
// than block waiting for a fresh scan.
func (c *cache) Snapshot(now time.Time, ttl time.Duration) ([]domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fresh := !c.publishedAt.IsZero() && now.Sub(c.publishedAt) <= ttl
	return c.snapshot, fresh
}

// age reports how long ago the snapshot was published; zero if nothing
// has been published yet.
func (c *cache) age(now time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.publishedAt.IsZero() {
		return 0
	}
	return now.Sub(c.publishedAt)
}
