package gateway

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Breaker trip thresholds: N consecutive failures opens for T seconds,
// with a single successful half-open probe closing it again.
const (
	breakerMinRequests   = 5
	breakerFailureRatio  = 1.0 // trips only when every request in the count window has failed, once min requests are seen
	breakerOpenTimeout   = 60 * time.Second
	breakerHalfOpenProbe = 1
	breakerCountInterval = 60 * time.Second
)

var (
	breakerMetricsOnce sync.Once
	breakerState       *prometheus.GaugeVec
)

func initBreakerMetrics() {
	breakerMetricsOnce.Do(func() {
		breakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perpagent_gateway_circuit_breaker_state",
				Help: "Gateway circuit breaker state per endpoint class (0=closed, 1=open, 2=half_open)",
			},
			[]string{"endpoint_class"},
		)
	})
}

// breakerRegistry lazily creates one circuit breaker per endpoint class
// (e.g. "create_order", "get_ticker", "get_ohlcv") so a burst of failures
// on one call type doesn't trip unrelated ones.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerRegistry() *breakerRegistry {
	initBreakerMetrics()
	return &breakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (r *breakerRegistry) get(endpointClass string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[endpointClass]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        endpointClass,
		MaxRequests: breakerHalfOpenProbe,
		Interval:    breakerCountInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= breakerMinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	r.breakers[endpointClass] = b
	return b
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// IsOpen reports whether the breaker for an endpoint class is currently
// open, without consuming a call slot.
func (r *breakerRegistry) IsOpen(endpointClass string) bool {
	return r.get(endpointClass).State() == gobreaker.StateOpen
}
