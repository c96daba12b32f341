package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// debounceWindow is the interval within which two Open calls carrying the
// same idempotency fingerprint collapse into a single exchange submission.
const debounceWindow = time.Second

// orderFingerprintNamespace seeds the deterministic fingerprint UUIDs so
// they never collide with a random v4 identifier generated elsewhere.
var orderFingerprintNamespace = uuid.MustParse("6b7e9c1a-2f3d-4e5a-9c3b-1d8f6a2e0b4c")

// orderFingerprint derives a deterministic idempotency fingerprint for an
// order submission from the fields that define it economically. Unlike
// uuid.New's random identifiers (used elsewhere for request/session IDs),
// this one must reproduce the same value for the same submission so a
// retried or racing caller can be recognized as a duplicate.
func orderFingerprint(symbol string, side domain.Side, amount, entryPrice float64) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%.8f|%.8f", symbol, side, amount, entryPrice)
	return uuid.NewSHA1(orderFingerprintNamespace, []byte(name))
}

// debouncer suppresses a duplicate order submission carrying the same
// idempotency fingerprint within window of a prior one.
type debouncer struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[uuid.UUID]time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	if window <= 0 {
		window = debounceWindow
	}
	return &debouncer{window: window, seen: make(map[uuid.UUID]time.Time)}
}

// allow reports whether fp may proceed to the exchange: true the first
// time it's seen within the window, false for a duplicate inside it. Also
// sweeps entries older than window so seen never grows unbounded.
func (d *debouncer) allow(fp uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for k, t := range d.seen {
		if now.Sub(t) > d.window {
			delete(d.seen, k)
		}
	}
	if last, ok := d.seen[fp]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[fp] = now
	return true
}
