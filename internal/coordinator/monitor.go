package coordinator

import (
	"context"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/position"
)

// monitorTask runs the per-position update cycle continuously, throttled
// per symbol to cfg.PositionUpdateInterval. A single symbol's failure is
// logged and skipped so it never stalls the others.
func (c *Coordinator) monitorTask(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		for _, symbol := range c.pos.Symbols() {
			p, ok := c.pos.Get(symbol)
			if !ok {
				continue
			}
			if now.Sub(p.LastUpdateAt) < c.cfg.PositionUpdateInterval {
				continue
			}

			mc := c.marketContext(symbol)
			ev, err := c.pos.UpdateCycle(ctx, symbol, mc)
			if err != nil {
				c.log.Warn().Err(err).Str("symbol", symbol).Msg("update cycle failed, skipping this tick")
				continue
			}
			if ev == nil {
				continue
			}
			c.onExit(*ev, p)
		}

		time.Sleep(c.cfg.LiveLoopInterval)
	}
}

// marketContext pulls the most recent indicator snapshot for a symbol so
// the monitor's trailing and ATR-target logic doesn't need to recompute
// indicators on every 1-second tick. It first checks the scanner's
// ranked top-N opportunity list (cheapest, already in hand); for a held
// position that has since fallen out of the top-N, it falls back to the
// indicator service's own per-symbol cache, which every scan cycle
// populates for every candidate it looked at, not just the ranked ones.
func (c *Coordinator) marketContext(symbol string) position.MarketContext {
	opps, _ := c.scan.Snapshot(time.Now())
	for _, o := range opps {
		if o.Symbol != symbol {
			continue
		}
		return marketContextFromSnapshot(o.Indicators)
	}

	if c.ind != nil {
		if snap, ok := c.ind.Cached(symbol, domain.Timeframe1h); ok {
			return marketContextFromSnapshot(snap)
		}
	}

	return position.MarketContext{}
}

func marketContextFromSnapshot(ind domain.IndicatorSnapshot) position.MarketContext {
	var atrPct float64
	if ind.CurrentPrice > 0 {
		atrPct = ind.ATR / ind.CurrentPrice * 100
	}
	return position.MarketContext{
		ATR:        ind.ATR,
		ATRValid:   ind.ATRValid,
		ATRPercent: atrPct,
		Regime:     ind.Regime,
	}
}

// onExit records a closed position's outcome with the risk service so
// governance (streaks, daily loss accumulation) stays current.
func (c *Coordinator) onExit(ev position.ExitEvent, p domain.Position) {
	if !ev.Closed {
		return
	}
	notional := p.EntryPrice * p.Amount
	pnlUSD := ev.RealizedROI * notional / p.Leverage
	c.risk.RecordOutcome(domain.TradeOutcome{
		Symbol:       ev.Symbol,
		Win:          ev.RealizedROI > 0,
		PnLUSD:       pnlUSD,
		LeveragedROI: ev.RealizedROI,
		ClosedAt:     time.Now(),
	})
	c.log.Info().
		Str("symbol", ev.Symbol).
		Str("reason", string(ev.Reason)).
		Float64("realized_roi", ev.RealizedROI).
		Msg("position closed")
}
