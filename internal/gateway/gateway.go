// Package gateway owns all network access to the exchange: authenticated
// trading calls and hybrid streaming+REST market data. The Gateway mutex
// guards the symbol metadata, ticker and candle caches; the CRITICAL
// in-flight count is a separate atomic counter and the circuit breaker
// registry has its own mutex, so these are not all under one lock.
// Callers may call it concurrently.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelbot/perpagent/internal/domain"
)

const (
	tickerFreshness = 10 * time.Second
	candleFreshness = 60 * time.Second
	staggerDelay    = 100 * time.Millisecond
)

// Gateway is the single process-wide owner of exchange network access.
type Gateway struct {
	mu sync.Mutex

	client   Client
	breakers *breakerRegistry
	gate     criticalGate

	metadata map[string]domain.SymbolMetadata // keyed by canonical symbol
	quote    string                           // e.g. "USDT", used for wire<->canonical round trips

	tickers map[string]cachedTicker // keyed by canonical symbol
	candles map[string]cachedCandles

	stream *streamState

	log zerolog.Logger
}

type cachedTicker struct {
	ticker    Ticker
	updatedAt time.Time
}

type cachedCandles struct {
	candles   []domain.Candle
	updatedAt time.Time
}

// Config configures a new Gateway.
type Config struct {
	Client           Client
	Quote            string // e.g. "USDT"
	EnableWebsocket  bool
}

// New constructs a Gateway. When cfg.EnableWebsocket is true, callers must
// also call Start to begin the streaming session.
func New(cfg Config, logger zerolog.Logger) *Gateway {
	g := &Gateway{
		client:   cfg.Client,
		breakers: newBreakerRegistry(),
		metadata: make(map[string]domain.SymbolMetadata),
		quote:    cfg.Quote,
		tickers:  make(map[string]cachedTicker),
		candles:  make(map[string]cachedCandles),
		log:      logger.With().Str("component", "gateway").Logger(),
	}
	if cfg.EnableWebsocket {
		g.stream = newStreamState()
	}
	return g
}

// call is the universal wrapper every public gateway method is dispatched
// through: it enforces priority preemption, drives the circuit breaker,
// and retries with tier-appropriate backoff.
func (g *Gateway) call(ctx context.Context, op string, p Priority, endpointClass string, fn func(ctx context.Context) error) error {
	if p != PriorityCritical {
		g.gate.awaitClear(ctx)
	} else {
		g.gate.enter()
		defer g.gate.exit()
	}

	breaker := g.breakers.get(endpointClass)

	if p != PriorityCritical && g.breakers.IsOpen(endpointClass) {
		return domain.NewExchangeError(domain.ErrKindTransient, op, "", fmt.Errorf("circuit breaker open for %s", endpointClass))
	}

	attempts, base := retryPolicy(p)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var err error
		if p == PriorityCritical && g.breakers.IsOpen(endpointClass) {
			// gobreaker's Execute returns ErrOpenState without invoking fn
			// while open; CRITICAL must still reach the exchange so a
			// position can always be closed, so it bypasses Execute here
			// instead of being short-circuited like every other priority.
			err = fn(ctx)
		} else {
			_, err = breaker.Execute(func() (interface{}, error) {
				return nil, fn(ctx)
			})
		}
		if err == nil {
			return nil
		}

		classified := classify(op, "", err)
		if classified.Kind == domain.ErrKindNoPositionToClose {
			g.log.Debug().Str("op", op).Msg("no position to close, treating as success")
			return nil
		}
		if !classified.Retryable() {
			return classified
		}
		lastErr = classified

		if attempt < attempts-1 {
			delay := base * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

// Stagger runs fn once per item with a 100ms delay between submissions,
// smoothing peak request rate inside a single scan batch.
func Stagger[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T)) {
	for i, item := range items {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(staggerDelay):
			}
		}
		fn(ctx, item)
	}
}
