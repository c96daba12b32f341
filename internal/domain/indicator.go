package domain

import "math"

// Regime is a qualitative label of market structure, derived from ADX and
// Bollinger Band width.
type Regime string

const (
	RegimeTrending Regime = "trending"
	RegimeRanging  Regime = "ranging"
	RegimeNeutral  Regime = "neutral"
)

// IndicatorSnapshot holds the full derived indicator set for a symbol at a
// point in time.
type IndicatorSnapshot struct {
	Symbol    string
	Timeframe Timeframe

	EMAFast float64
	EMASlow float64

	MACDLine      float64
	MACDSignal    float64
	MACDHistogram float64
	// MACDHistogramPrev supports the "rising"/"falling" histogram tests
	// the signal fusion table requires.
	MACDHistogramPrev float64

	RSI     float64
	RSIPrev float64

	StochK    float64
	StochD    float64
	StochIsNaN bool

	BBUpper  float64
	BBMiddle float64
	BBLower  float64
	BBWidth  float64
	// BBWidthPrev supports "width expanding" tests.
	BBWidthPrev float64

	ATR      float64
	ATRValid bool // true once >=14 bars of True Range are available

	ADX float64

	VolumeRatio float64 // current volume / 20-bar mean
	VWAP        float64
	Momentum    float64
	ROC         float64

	Regime Regime

	CurrentPrice float64
	CurrentHigh  float64
	CurrentLow   float64
}

// IsNaN reports whether v should be treated as an underfilled-window NaN
// contribution (dropped silently, never a zero vote).
func IsNaN(v float64) bool {
	return math.IsNaN(v)
}

// DeriveRegime classifies market structure from ADX and Bollinger width.
func DeriveRegime(adx, bbWidthPct float64) Regime {
	switch {
	case adx >= 25 && bbWidthPct >= 4.0:
		return RegimeTrending
	case adx < 18 && bbWidthPct < 3.0:
		return RegimeRanging
	default:
		return RegimeNeutral
	}
}
