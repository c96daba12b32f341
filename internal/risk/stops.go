package risk

import (
	"math"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// BaseStopDistance returns the clamped percentage stop distance: 0.8%
// nominal, bounded to [0.6%, 1.5%].
func BaseStopDistance() float64 {
	return 0.008
}

// ClampStopDistance bounds a percentage stop distance to [0.6%, 1.5%].
func ClampStopDistance(pct float64) float64 {
	if pct < 0.006 {
		return 0.006
	}
	if pct > 0.015 {
		return 0.015
	}
	return pct
}

// TakeProfitDistance scales the stop distance by a risk/reward multiple
// in [1.6, 2.0].
func TakeProfitDistance(stopDistance, riskReward float64) float64 {
	if riskReward < 1.6 {
		riskReward = 1.6
	}
	if riskReward > 2.0 {
		riskReward = 2.0
	}
	return stopDistance * riskReward
}

// InitialStopTarget computes the entry-time stop-loss and take-profit
// prices for a side, from clamped percentage distances.
func InitialStopTarget(side domain.Side, entry, stopDistancePct, riskReward float64) (stop, target float64) {
	stopDistancePct = ClampStopDistance(stopDistancePct)
	tpDistancePct := TakeProfitDistance(stopDistancePct, riskReward)

	switch side {
	case domain.SideLong:
		return entry * (1 - stopDistancePct), entry * (1 + tpDistancePct)
	default:
		return entry * (1 + stopDistancePct), entry * (1 - tpDistancePct)
	}
}

// ChandelierK picks the ATR multiplier by market regime, within [1.5, 3.0]:
// widest (3.0) when trending, tightest (1.5) when ranging, 2.2 otherwise.
// It does not read volatility directly.
func ChandelierK(regime domain.Regime) float64 {
	switch regime {
	case domain.RegimeTrending:
		return 3.0
	case domain.RegimeRanging:
		return 1.5
	default:
		return 2.2
	}
}

// ChandelierStop computes the ATR-anchored trailing stop candidate for a
// side. highestOrLowest is HighestPrice for long, LowestPrice for short.
func ChandelierStop(side domain.Side, highestOrLowest, atr, k float64) float64 {
	switch side {
	case domain.SideLong:
		return highestOrLowest - k*atr
	default:
		return highestOrLowest + k*atr
	}
}

// TighterStop returns whichever of the percentage-based and Chandelier
// stop candidates is more protective for the side (closer to price in
// the safe direction never tightens past current; the caller still runs
// it through Position.CanTightenStop before applying).
func TighterStop(side domain.Side, pctStop, chandelierStop float64) float64 {
	switch side {
	case domain.SideLong:
		return math.Max(pctStop, chandelierStop)
	default:
		return math.Min(pctStop, chandelierStop)
	}
}
