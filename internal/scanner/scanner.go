// Package scanner produces a ranked list of trading opportunities by
// fanning a bounded worker pool out across every actively traded symbol,
// scoring each one, and publishing the top N under a single-writer cache.
package scanner

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
	"github.com/kestrelbot/perpagent/internal/indicators"
	"github.com/kestrelbot/perpagent/internal/signals"
)

// Gateway is the subset of *gateway.Gateway the scanner depends on.
type Gateway interface {
	ListActiveSymbols(ctx context.Context) ([]gateway.SymbolSummary, error)
	GetOHLCV(ctx context.Context, symbol, interval string, limit int, p gateway.Priority) ([]domain.Candle, error)
}

// indicatorComputer is the subset of *indicators.Service the scanner
// depends on, narrowed so tests can supply a deterministic fake.
type indicatorComputer interface {
	Compute(symbol string, tf domain.Timeframe, candles []domain.Candle) (domain.IndicatorSnapshot, error)
}

// signalFuser is the subset of *signals.Engine the scanner depends on.
type signalFuser interface {
	Fuse(snap domain.IndicatorSnapshot, mtf signals.MTFLabels) domain.Signal
}

// Service runs periodic scan cycles and publishes ranked opportunities.
type Service struct {
	gw         Gateway
	indicators indicatorComputer
	engine     signalFuser
	cfg        Config
	cache      *cache
	log        zerolog.Logger
}

// New constructs a scanner Service.
func New(gw Gateway, indicatorSvc *indicators.Service, engine *signals.Engine, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		gw:         gw,
		indicators: indicatorSvc,
		engine:     engine,
		cfg:        cfg.withDefaults(),
		cache:      newCache(),
		log:        logger.With().Str("component", "scanner").Logger(),
	}
}

// Snapshot returns the current opportunity list and whether it is still
// within the configured cache TTL.
func (s *Service) Snapshot(now time.Time) ([]domain.Opportunity, bool) {
	return s.cache.Snapshot(now, s.cfg.CacheTTL)
}

// CacheAge reports how long ago the published snapshot was refreshed, for
// metrics export.
func (s *Service) CacheAge(now time.Time) time.Duration {
	return s.cache.age(now)
}

// Run drives the periodic scan loop until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one scan: list, filter, fan out, score, rank, publish.
// Per-symbol failures are logged and skipped; the cycle overall is bounded
// by cfg.BatchTimeout and falls back to whatever results completed.
func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	symbols, err := s.gw.ListActiveSymbols(cycleCtx)
	if err != nil {
		s.log.Warn().Err(err).Msg("scan cycle: failed to list active symbols, skipping")
		return
	}

	candidates := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym.QuoteVolume24h < s.cfg.VolumeFloor {
			continue
		}
		candidates = append(candidates, sym.Symbol)
	}

	results := s.scanAll(cycleCtx, candidates)

	var opps []domain.Opportunity
	for _, r := range results {
		if r == nil || r.Action == domain.ActionHold {
			continue
		}
		opps = append(opps, *r)
	}

	sort.Slice(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })
	if len(opps) > s.cfg.TopN {
		opps = opps[:s.cfg.TopN]
	}

	s.cache.publish(opps, time.Now())
	s.log.Info().
		Int("candidates", len(candidates)).
		Int("opportunities", len(opps)).
		Dur("elapsed", time.Since(start)).
		Msg("scan cycle complete")
}

// scanAll fans the candidate list out across a bounded worker pool and
// collects results; a worker that errors or times out contributes nil
// rather than aborting its peers.
func (s *Service) scanAll(ctx context.Context, symbols []string) []*domain.Opportunity {
	results := make([]*domain.Opportunity, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			workerCtx, cancel := context.WithTimeout(gctx, s.cfg.WorkerTimeout)
			defer cancel()

			opp, err := s.scanSymbol(workerCtx, symbol)
			if err != nil {
				s.log.Debug().Err(err).Str("symbol", symbol).Msg("scan symbol failed, skipping")
				return nil
			}
			results[i] = opp
			return nil
		})
	}
	_ = g.Wait() // workers never return non-nil errors; failures are swallowed per-symbol

	return results
}

// scanSymbol fetches candles, computes indicators, fuses a signal, and
// scores the result for one symbol. 1h data is required; 4h/1d are
// best-effort and simply fall back to a HOLD trend label when
// unavailable, which applyMultiTimeframe treats as non-conflicting.
func (s *Service) scanSymbol(ctx context.Context, symbol string) (*domain.Opportunity, error) {
	candles1h, err := s.gw.GetOHLCV(ctx, symbol, string(domain.Timeframe1h), 200, gateway.PriorityNormal)
	if err != nil {
		return nil, err
	}
	if len(candles1h) < s.cfg.MinCandles {
		return nil, nil
	}

	snap1h, err := s.indicators.Compute(symbol, domain.Timeframe1h, candles1h)
	if err != nil {
		return nil, err
	}

	mtf := signals.MTFLabels{FourHour: domain.ActionHold, OneDay: domain.ActionHold}
	if candles4h, err := s.gw.GetOHLCV(ctx, symbol, string(domain.Timeframe4h), 200, gateway.PriorityNormal); err == nil && len(candles4h) >= s.cfg.MinCandles {
		if snap4h, err := s.indicators.Compute(symbol, domain.Timeframe4h, candles4h); err == nil {
			mtf.FourHour = signals.TrendLabel(snap4h)
		}
	}
	if candles1d, err := s.gw.GetOHLCV(ctx, symbol, string(domain.Timeframe1d), 200, gateway.PriorityNormal); err == nil && len(candles1d) >= s.cfg.MinCandles {
		if snap1d, err := s.indicators.Compute(symbol, domain.Timeframe1d, candles1d); err == nil {
			mtf.OneDay = signals.TrendLabel(snap1d)
		}
	}

	sig := s.engine.Fuse(snap1h, mtf)
	if sig.Action == domain.ActionHold {
		return nil, nil
	}

	sc := score(scoreInputs{
		confidence:      sig.Confidence,
		volumeRatio:     snap1h.VolumeRatio,
		mtfAligned:      mtf.FourHour == sig.Action || mtf.OneDay == sig.Action,
		proximityToSR:   proximityToSR(snap1h, sig.Action),
		riskRewardRatio: riskRewardEstimate(snap1h, sig.Action),
		volatilityPct:   volatilityPercent(snap1h),
	})

	return &domain.Opportunity{
		Symbol:       symbol,
		Signal:       sig,
		Indicators:   snap1h,
		Score:        sc,
		DiscoveredAt: time.Now(),
	}, nil
}

// proximityToSR scores how close price sits to the favorable Bollinger
// band edge for the signaled side: 1.0 means right at the edge, 0.0 means
// at the opposite edge.
func proximityToSR(snap domain.IndicatorSnapshot, action domain.Action) float64 {
	if snap.BBUpper == snap.BBLower {
		return 0
	}
	pos := (snap.CurrentPrice - snap.BBLower) / (snap.BBUpper - snap.BBLower)
	if action == domain.ActionBuy {
		return clamp01(1 - pos)
	}
	return clamp01(pos)
}

// riskRewardEstimate approximates a reward/risk ratio using the distance
// to the opposite Bollinger band as the target and one ATR as the stop,
// the same proxy the position manager later replaces with actual stop
// placement.
func riskRewardEstimate(snap domain.IndicatorSnapshot, action domain.Action) float64 {
	if snap.ATR <= 0 {
		return 0
	}
	var target float64
	if action == domain.ActionBuy {
		target = snap.BBUpper - snap.CurrentPrice
	} else {
		target = snap.CurrentPrice - snap.BBLower
	}
	if target <= 0 {
		return 0
	}
	ratio := target / snap.ATR
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return 0
	}
	return ratio
}

// volatilityPercent expresses ATR as a percent of price, the scoring
// formula's volatility_penalty term.
func volatilityPercent(snap domain.IndicatorSnapshot) float64 {
	if snap.CurrentPrice <= 0 {
		return 0
	}
	return snap.ATR / snap.CurrentPrice * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
