// Package metrics registers and serves the engine's Prometheus gauges:
// CRITICAL calls in flight, scanner cache age, open position count, and
// the daily-loss-limit ratio. Circuit breaker state is registered
// alongside the breaker itself in internal/gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CriticalCallsInFlight tracks how many PriorityCritical gateway calls
	// are currently executing, mirroring the gateway's own in-flight
	// counter used to gate non-critical callers.
	CriticalCallsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpagent_gateway_critical_calls_in_flight",
		Help: "Number of CRITICAL-priority gateway calls currently executing",
	})

	// ScannerCacheAgeSeconds tracks how stale the scanner's published
	// opportunity snapshot is.
	ScannerCacheAgeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpagent_scanner_cache_age_seconds",
		Help: "Seconds since the scanner last published a snapshot",
	})

	// OpenPositionCount tracks the number of currently open positions.
	OpenPositionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpagent_open_position_count",
		Help: "Number of currently open positions",
	})

	// DailyLossLimitRatio tracks the daily-loss accumulator as a fraction
	// of the configured daily loss limit; 1.0 means the limit is hit.
	DailyLossLimitRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpagent_daily_loss_limit_ratio",
		Help: "Daily realized loss as a fraction of the daily loss limit",
	})
)
