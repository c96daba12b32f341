package risk

import "github.com/kestrelbot/perpagent/internal/domain"

// volatilityTiers maps ATR-as-percent-of-price bands to a base leverage,
// high volatility buying less leverage.
var volatilityTiers = []struct {
	maxVolPct float64
	leverage  float64
}{
	{1.5, 16},
	{2.5, 12},
	{3.5, 9},
	{4.5, 7},
	{6.0, 5},
	{8.0, 4},
	{1e9, 3},
}

func volatilityBase(volPct float64) float64 {
	for _, tier := range volatilityTiers {
		if volPct <= tier.maxVolPct {
			return tier.leverage
		}
	}
	return 3
}

// LeverageInputs carries the eight factors that adjust the volatility-tier
// base leverage.
type LeverageInputs struct {
	VolatilityPct   float64 // ATR / price * 100
	DefaultLeverage float64 // used when VolatilityPct is zero/unavailable

	Confidence    float64
	MomentumPct   float64 // absolute 10-bar rate of change, percent
	ADX           float64
	Regime        domain.Regime
	WinStreak     int
	LossStreak    int
	RecentWinRate float64 // over rolling window, fraction
	Drawdown      float64 // fraction
}

// ComputeLeverage derives the per-trade leverage from an eight-factor
// adjustment atop a volatility-tier base, clamped to [3, 20].
func ComputeLeverage(in LeverageInputs) float64 {
	base := in.DefaultLeverage
	if in.VolatilityPct > 0 {
		base = volatilityBase(in.VolatilityPct)
	}
	if base <= 0 {
		base = 5
	}

	adj := 0.0

	switch {
	case in.Confidence > 0.80:
		adj += 3
	case in.Confidence < 0.62:
		adj -= 3
	}

	absMom := in.MomentumPct
	if absMom < 0 {
		absMom = -absMom
	}
	switch {
	case absMom > 3.0:
		adj += 2
	case absMom < 0.5:
		adj -= 2
	}

	switch {
	case in.ADX > 30:
		adj += 2
	case in.ADX < 15:
		adj -= 2
	}

	switch in.Regime {
	case domain.RegimeTrending:
		adj += 2
	case domain.RegimeRanging:
		adj -= 2
	}

	switch {
	case in.WinStreak >= 5:
		adj += 3
	case in.WinStreak >= 3:
		adj += 1
	}

	switch {
	case in.LossStreak >= 5:
		adj -= 3
	case in.LossStreak >= 3:
		adj -= 1
	}

	switch {
	case in.RecentWinRate >= 0.70:
		adj += 2
	case in.RecentWinRate <= 0.30:
		adj -= 2
	}

	switch {
	case in.Drawdown >= 0.20:
		adj -= 10
	case in.Drawdown >= 0.15:
		adj -= 5
	case in.Drawdown >= 0.10:
		adj -= 2
	}

	result := base + adj
	if result < 3 {
		result = 3
	}
	if result > 20 {
		result = 20
	}
	return result
}
