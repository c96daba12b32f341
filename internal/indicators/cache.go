package indicators

import (
	"sync"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// defaultCacheTTL is how long a cached snapshot is considered fresh
// enough for the monitor task to reuse without a recompute.
const defaultCacheTTL = 5 * time.Minute

// Cache holds the most recently computed snapshot per symbol, keyed by
// timeframe, so repeated reads within the same tick (or across the
// scanner and monitor tasks) don't force a recompute of the full
// candle window.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	symbol string
	tf     domain.Timeframe
}

type cacheEntry struct {
	snapshot  domain.IndicatorSnapshot
	updatedAt time.Time
}

// newCache creates an indicator result cache with the given freshness
// window; a zero ttl falls back to defaultCacheTTL.
func newCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{ttl: ttl, entries: make(map[cacheKey]cacheEntry)}
}

func (c *Cache) set(symbol string, tf domain.Timeframe, snap domain.IndicatorSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{symbol, tf}] = cacheEntry{snapshot: snap, updatedAt: time.Now()}
}

// get returns the cached snapshot for a symbol/timeframe pair, if one
// exists and is still within the freshness window.
func (c *Cache) get(symbol string, tf domain.Timeframe) (domain.IndicatorSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{symbol, tf}]
	if !ok || time.Since(e.updatedAt) > c.ttl {
		return domain.IndicatorSnapshot{}, false
	}
	return e.snapshot, true
}
