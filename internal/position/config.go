package position

import "time"

// Config controls the position manager's update-cycle thresholds. Zero
// values fall back to the defaults below.
type Config struct {
	BreakevenArmPnL float64 // default 0.008

	TrailingBase        float64 // default 0.01
	TrailingMin          float64 // default 0.01
	TrailingMax          float64 // default 0.06
	TrailingHighVolMult  float64 // default 2.0, applied when realized vol > 5%
	TrailingHighVolFloor float64 // default 0.05 (5%)
	TrailingProfitMult   float64 // default 0.8, applied when pnl > 20%
	TrailingProfitFloor  float64 // default 0.20

	TakeProfitFreezeProgress float64 // default 0.70

	PartialExitLevels    [3]float64 // default 0.015, 0.03, 0.05
	PartialExitFractions [3]float64 // default 0.30, 0.30, 0.20

	MaxHold     time.Duration // default 48h
	HardCapHold time.Duration // default 72h
	StagnantPnL float64       // default 0.02

	EnableATRTargets bool
	ATRTargetLevels  [3]float64 // multiples of ATR: default 1, 2, 3
	ATRTargetFractions [3]float64 // default 0.25, 0.25, 0.50

	TakeProfitTolerance float64 // default 1e-5
}

func (c Config) withDefaults() Config {
	if c.BreakevenArmPnL == 0 {
		c.BreakevenArmPnL = 0.008
	}
	if c.TrailingBase == 0 {
		c.TrailingBase = 0.01
	}
	if c.TrailingMin == 0 {
		c.TrailingMin = 0.01
	}
	if c.TrailingMax == 0 {
		c.TrailingMax = 0.06
	}
	if c.TrailingHighVolMult == 0 {
		c.TrailingHighVolMult = 2.0
	}
	if c.TrailingHighVolFloor == 0 {
		c.TrailingHighVolFloor = 0.05
	}
	if c.TrailingProfitMult == 0 {
		c.TrailingProfitMult = 0.8
	}
	if c.TrailingProfitFloor == 0 {
		c.TrailingProfitFloor = 0.20
	}
	if c.TakeProfitFreezeProgress == 0 {
		c.TakeProfitFreezeProgress = 0.70
	}
	if c.PartialExitLevels == ([3]float64{}) {
		c.PartialExitLevels = [3]float64{0.015, 0.03, 0.05}
	}
	if c.PartialExitFractions == ([3]float64{}) {
		c.PartialExitFractions = [3]float64{0.30, 0.30, 0.20}
	}
	if c.MaxHold == 0 {
		c.MaxHold = 48 * time.Hour
	}
	if c.HardCapHold == 0 {
		c.HardCapHold = 72 * time.Hour
	}
	if c.StagnantPnL == 0 {
		c.StagnantPnL = 0.02
	}
	if c.ATRTargetLevels == ([3]float64{}) {
		c.ATRTargetLevels = [3]float64{1, 2, 3}
	}
	if c.ATRTargetFractions == ([3]float64{}) {
		c.ATRTargetFractions = [3]float64{0.25, 0.25, 0.50}
	}
	if c.TakeProfitTolerance == 0 {
		c.TakeProfitTolerance = 1e-5
	}
	return c
}
