package position

import (
	"context"
	"math"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
	"github.com/kestrelbot/perpagent/internal/risk"
)

// UpdateCycle runs one monitor-tick pass for a single position: breakeven
// arm, trailing stop, take-profit extension guard, partial exits, and the
// priority-ordered exit checks. A live-ticker read failure logs and skips
// this position entirely — it never substitutes entry price, since doing
// so would suppress stop-loss triggers during a transient outage.
func (m *Manager) UpdateCycle(ctx context.Context, symbol string, mc MarketContext) (*ExitEvent, error) {
	lock := m.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.get(symbol)
	if !ok {
		return nil, nil
	}

	ticker, err := m.gw.GetTicker(ctx, symbol, gateway.PriorityHigh)
	if err != nil {
		m.log.Warn().Err(err).Str("symbol", symbol).Msg("live ticker read failed, skipping position this tick")
		return nil, nil
	}
	price := ticker.Price

	pnl := p.PnLFraction(price)
	leveragedROI := pnl * p.Leverage
	p.UpdateExcursionAnchors(price)
	p.MarkPriceLast = price
	p.LastUpdateAt = time.Now()

	m.armBreakeven(p, pnl)
	m.updateTrailingStop(p, price, pnl, mc)
	m.extendTakeProfit(p, price, mc)

	if ev, err := m.evaluatePartialExits(ctx, p, pnl); err != nil {
		m.log.Warn().Err(err).Str("symbol", symbol).Msg("partial exit order failed")
	} else if ev != nil {
		return ev, nil
	}

	return m.evaluateExitChecks(ctx, p, price, pnl, leveragedROI, mc)
}

// armBreakeven moves the stop to entry, once, when pnl crosses the arm
// threshold and the stop has not already been brought to or past entry.
func (m *Manager) armBreakeven(p *domain.Position, pnl float64) {
	if pnl <= m.cfg.BreakevenArmPnL {
		return
	}
	switch p.Side {
	case domain.SideLong:
		if p.StopLoss < p.EntryPrice {
			p.TightenStop(p.EntryPrice)
		}
	case domain.SideShort:
		if p.StopLoss > p.EntryPrice {
			p.TightenStop(p.EntryPrice)
		}
	}
}

// trailingDistance computes the adaptive percentage trailing distance:
// base 1%, doubled above 5% realized volatility, reduced 20% once pnl
// exceeds 20%, clamped to [1%, 6%].
func (m *Manager) trailingDistance(pnl float64, mc MarketContext) float64 {
	d := m.cfg.TrailingBase
	if mc.ATRPercent/100 > m.cfg.TrailingHighVolFloor {
		d *= m.cfg.TrailingHighVolMult
	}
	if pnl > m.cfg.TrailingProfitFloor {
		d *= m.cfg.TrailingProfitMult
	}
	if d < m.cfg.TrailingMin {
		d = m.cfg.TrailingMin
	}
	if d > m.cfg.TrailingMax {
		d = m.cfg.TrailingMax
	}
	return d
}

// updateTrailingStop computes both the percentage-based and (when ATR is
// available) Chandelier stop candidates and applies whichever is more
// protective, but only if it tightens the existing stop.
func (m *Manager) updateTrailingStop(p *domain.Position, price, pnl float64, mc MarketContext) {
	d := m.trailingDistance(pnl, mc)

	var pctStop float64
	switch p.Side {
	case domain.SideLong:
		pctStop = p.HighestPrice * (1 - d)
	case domain.SideShort:
		pctStop = p.LowestPrice * (1 + d)
	}

	newStop := pctStop
	if mc.ATRValid {
		k := risk.ChandelierK(mc.Regime)
		var anchor float64
		if p.Side == domain.SideLong {
			anchor = p.HighestPrice
		} else {
			anchor = p.LowestPrice
		}
		chandelier := risk.ChandelierStop(p.Side, anchor, mc.ATR, k)
		newStop = risk.TighterStop(p.Side, pctStop, chandelier)
	}

	p.TightenStop(newStop)
}

// takeProfitRiskReward is the risk/reward multiple used to recompute a
// candidate take-profit distance from the current ATR, matching the
// multiple used for the initial target at open time.
const takeProfitRiskReward = 1.8

// extendTakeProfit recomputes a candidate take-profit from the live ATR
// and current price, scaled by the same risk/reward multiple used at
// open time, and applies it only if CanExtendTakeProfit accepts it:
// progress toward the initial TP is still below the freeze threshold,
// and the new distance from price is no wider than the existing one.
func (m *Manager) extendTakeProfit(p *domain.Position, price float64, mc MarketContext) {
	if !mc.ATRValid || mc.ATR <= 0 || price <= 0 {
		return
	}
	atrPct := risk.ClampStopDistance(mc.ATR / price)
	tpDistancePct := risk.TakeProfitDistance(atrPct, takeProfitRiskReward)

	var candidate float64
	switch p.Side {
	case domain.SideLong:
		candidate = price * (1 + tpDistancePct)
	case domain.SideShort:
		candidate = price * (1 - tpDistancePct)
	}

	if domain.CanExtendTakeProfit(p, price, candidate, m.cfg.TakeProfitFreezeProgress) {
		p.TakeProfit = candidate
	}
}

// evaluatePartialExits issues a reduce-only CRITICAL order for the next
// unclaimed partial-exit tier once pnl crosses its threshold.
func (m *Manager) evaluatePartialExits(ctx context.Context, p *domain.Position, pnl float64) (*ExitEvent, error) {
	if p.PartialExitsTaken >= len(m.cfg.PartialExitLevels) {
		return nil, nil
	}
	level := m.cfg.PartialExitLevels[p.PartialExitsTaken]
	if pnl < level {
		return nil, nil
	}
	fraction := m.cfg.PartialExitFractions[p.PartialExitsTaken]

	ev, err := m.closeFraction(ctx, p, fraction, p.MarkPriceLast, domain.ExitPartial)
	if err != nil {
		return nil, err
	}
	p.PartialExitsTaken++
	return &ev, nil
}

// evaluateExitChecks runs the six priority-ordered exit conditions; the
// first match fires and the rest are skipped.
func (m *Manager) evaluateExitChecks(ctx context.Context, p *domain.Position, price, pnl, leveragedROI float64, mc MarketContext) (*ExitEvent, error) {
	if m.killSwitchArmed() {
		ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitKillSwitch)
		return &ev, err
	}

	if reason := domain.EmergencyStopReason(leveragedROI, mc.Regime); reason != "" {
		ev, err := m.closeFraction(ctx, p, 1.0, price, reason)
		return &ev, err
	}

	held := time.Since(p.OpenedAt)
	if held >= m.cfg.HardCapHold {
		ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitTimeStagnant)
		return &ev, err
	}
	if held >= m.cfg.MaxHold && math.Abs(pnl) < m.cfg.StagnantPnL {
		ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitTimeStagnant)
		return &ev, err
	}

	if m.cfg.EnableATRTargets && mc.ATRValid && p.ATRTargetsTaken < len(m.cfg.ATRTargetLevels) {
		target := m.cfg.ATRTargetLevels[p.ATRTargetsTaken]
		reached := false
		switch p.Side {
		case domain.SideLong:
			reached = price >= p.EntryPrice+target*mc.ATR
		case domain.SideShort:
			reached = price <= p.EntryPrice-target*mc.ATR
		}
		if reached {
			fraction := m.cfg.ATRTargetFractions[p.ATRTargetsTaken]
			reason := atrTargetReason(p.ATRTargetsTaken)
			ev, err := m.closeFraction(ctx, p, fraction, price, reason)
			if err != nil {
				return nil, err
			}
			p.ATRTargetsTaken++
			return &ev, nil
		}
	}

	switch p.Side {
	case domain.SideLong:
		if price <= p.StopLoss {
			ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitStopLoss)
			return &ev, err
		}
	case domain.SideShort:
		if price >= p.StopLoss {
			ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitStopLoss)
			return &ev, err
		}
	}

	tol := m.cfg.TakeProfitTolerance
	switch p.Side {
	case domain.SideLong:
		if price >= p.TakeProfit*(1-tol) {
			ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitTakeProfit)
			return &ev, err
		}
	case domain.SideShort:
		if price <= p.TakeProfit*(1+tol) {
			ev, err := m.closeFraction(ctx, p, 1.0, price, domain.ExitTakeProfit)
			return &ev, err
		}
	}

	return nil, nil
}

func atrTargetReason(tier int) domain.ExitReason {
	switch tier {
	case 0:
		return domain.ExitATRTarget1
	case 1:
		return domain.ExitATRTarget2
	default:
		return domain.ExitATRTarget3
	}
}
