package coordinator

import (
	"context"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
	"github.com/kestrelbot/perpagent/internal/position"
	"github.com/kestrelbot/perpagent/internal/risk"
)

// staleOpportunity is how old a cached opportunity may be before the main
// task skips it; a skipped opportunity is not re-scanned or re-confirmed.
const staleOpportunity = 30 * time.Second

// mainTask runs the open-new-positions loop at live_loop_interval, acting
// once per check_interval on the scanner's ranked opportunity list.
func (c *Coordinator) mainTask(ctx context.Context, meta map[string]domain.SymbolMetadata) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		due := time.Since(c.lastCheck) >= c.cfg.CheckInterval
		if due {
			c.lastCheck = time.Now()
		}
		c.mu.Unlock()

		if due {
			c.runCheckCycle(ctx, meta)
		}

		time.Sleep(c.cfg.LiveLoopInterval)
	}
}

func (c *Coordinator) runCheckCycle(ctx context.Context, meta map[string]domain.SymbolMetadata) {
	opps, _ := c.scan.Snapshot(time.Now())
	if len(opps) == 0 {
		return
	}

	for _, opp := range opps {
		if c.risk.KillSwitchArmed() {
			return
		}
		if c.pos.Count() >= c.cfg.MaxOpenPositions {
			return
		}
		if _, open := c.pos.Get(opp.Symbol); open {
			continue
		}

		if time.Since(opp.DiscoveredAt) > staleOpportunity {
			c.log.Debug().Str("symbol", opp.Symbol).Msg("opportunity stale, skipping without re-scan")
			continue
		}

		group := domain.ClassifyGroup(gateway.BaseAsset(opp.Symbol))
		groupCounts := c.groupCounts()
		gate := c.risk.Gate(group, groupCounts, false)
		if !gate.Allowed {
			c.log.Debug().Str("symbol", opp.Symbol).Str("reason", gate.Reason).Msg("open gated")
			continue
		}

		if err := c.openFromOpportunity(ctx, opp, meta[opp.Symbol]); err != nil {
			c.log.Warn().Err(err).Str("symbol", opp.Symbol).Msg("failed to open position")
		}
	}
}

func (c *Coordinator) groupCounts() map[domain.SymbolGroup]int {
	counts := make(map[domain.SymbolGroup]int)
	for _, symbol := range c.pos.Symbols() {
		counts[domain.ClassifyGroup(gateway.BaseAsset(symbol))]++
	}
	return counts
}

// openFromOpportunity sizes and opens a position from a ranked scanner
// result: leverage from the eight-factor model, amount from the
// risk-budget sizing formula, stop/target from the clamped-percentage
// formula.
func (c *Coordinator) openFromOpportunity(ctx context.Context, opp domain.Opportunity, meta domain.SymbolMetadata) error {
	balance, err := c.gw.GetBalance(ctx)
	if err != nil {
		return err
	}

	side := domain.SideLong
	if opp.Signal.Action == domain.ActionSell {
		side = domain.SideShort
	}

	ind := opp.Indicators
	volPct := 0.0
	if ind.CurrentPrice > 0 {
		volPct = ind.ATR / ind.CurrentPrice * 100
	}
	momentumPct := ind.ROC

	leverage := risk.ComputeLeverage(risk.LeverageInputs{
		VolatilityPct:   volPct,
		DefaultLeverage: c.cfg.LeverageDefault,
		Confidence:      opp.Signal.Confidence,
		MomentumPct:     momentumPct,
		ADX:             ind.ADX,
		Regime:          ind.Regime,
	})

	entry := ind.CurrentPrice
	stop, target := risk.InitialStopTarget(side, entry, risk.BaseStopDistance(), 1.8)

	sizing := c.risk.Sizing(risk.SizingInputs{
		Balance:             balance.AvailableMargin,
		RiskPerTrade:        c.cfg.RiskPerTrade,
		Confidence:          opp.Signal.Confidence,
		Entry:               entry,
		StopLoss:            stop,
		ContractSize:        meta.ContractSize,
		LotSize:             meta.LotSize,
		MinAmount:           meta.MinAmount,
		MaxAmount:           meta.MaxAmount,
		MaxPositionNotional: c.cfg.MaxPositionNotional,
	}, 0, 0)

	if sizing.Skip {
		c.log.Debug().Str("symbol", opp.Symbol).Msg("sized amount below exchange minimum, skipping")
		return nil
	}

	_, err = c.pos.Open(ctx, position.OpenRequest{
		Symbol:     opp.Symbol,
		Side:       side,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Amount:     sizing.AmountContracts,
		Leverage:   leverage,
		Confidence: opp.Signal.Confidence,
		Meta:       meta,
	})
	return err
}
