package gateway

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kestrelbot/perpagent/internal/metrics"
)

// Priority ranks a gateway call; lower rank preempts higher.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityNormal   Priority = 3
	PriorityLow      Priority = 4
)

const (
	criticalWaitPoll = 10 * time.Millisecond
	criticalWaitMax  = 5 * time.Second
)

// criticalGate tracks in-flight CRITICAL calls so non-CRITICAL callers can
// yield to them without blocking a CRITICAL call itself.
type criticalGate struct {
	inFlight atomic.Int32
}

// awaitClear waits up to criticalWaitMax, polling every criticalWaitPoll,
// for the in-flight CRITICAL counter to drop to zero. CRITICAL callers
// never call this.
func (g *criticalGate) awaitClear(ctx context.Context) {
	deadline := time.Now().Add(criticalWaitMax)
	for g.inFlight.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(criticalWaitPoll):
		}
	}
}

func (g *criticalGate) enter() {
	n := g.inFlight.Add(1)
	metrics.CriticalCallsInFlight.Set(float64(n))
}

func (g *criticalGate) exit() {
	n := g.inFlight.Add(-1)
	metrics.CriticalCallsInFlight.Set(float64(n))
}

// retryPolicy returns the attempt count and base backoff for a priority
// tier. CRITICAL gets more attempts with a shorter base so a close/cancel
// keeps trying fast; NORMAL/HIGH/LOW use the standard 3-attempt backoff.
func retryPolicy(p Priority) (attempts int, base time.Duration) {
	if p == PriorityCritical {
		return 6, 250 * time.Millisecond
	}
	return 3, time.Second
}
