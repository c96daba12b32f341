package domain

import "time"

// Opportunity is a scanner result: a symbol with a fused signal, the
// indicator snapshot it was derived from, and an aggregate score.
type Opportunity struct {
	Symbol       string
	Signal       Signal
	Indicators   IndicatorSnapshot
	Score        float64
	DiscoveredAt time.Time
}

// Expired reports whether the opportunity is older than ttl relative to
// now. Consumers discard opportunities past the scanner's cache TTL
// (default 5 minutes) rather than act on stale scores.
func (o Opportunity) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.DiscoveredAt) > ttl
}
