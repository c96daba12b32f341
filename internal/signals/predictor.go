// Package signals fuses an indicator snapshot into a directional Signal
// via weighted voting, with optional multi-timeframe adjustment and ML
// confirmation.
package signals

import "github.com/kestrelbot/perpagent/internal/domain"

// Predictor is an opaque ML confirmation interface with a single predict
// method. Training and feature engineering are out of scope here; this
// engine only consumes a trained model's verdict.
type Predictor interface {
	// Ready reports whether the predictor has a usable model loaded.
	Ready() bool
	// Predict returns the predicted action and its probability.
	Predict(features []float64) (domain.Action, float64)
}

// NopPredictor is always unready; used when no ML model is configured.
type NopPredictor struct{}

func (NopPredictor) Ready() bool { return false }
func (NopPredictor) Predict([]float64) (domain.Action, float64) {
	return domain.ActionHold, 0
}

// StaticPredictor returns a fixed answer; useful for tests and for wiring
// a deterministic confirmation stage before a real model exists.
type StaticPredictor struct {
	Action domain.Action
	Prob   float64
}

func (s StaticPredictor) Ready() bool { return true }
func (s StaticPredictor) Predict([]float64) (domain.Action, float64) {
	return s.Action, s.Prob
}

// FeatureVector builds the opaque feature slice passed to Predict from an
// indicator snapshot. The exact feature engineering is an implementation
// detail of whichever model is plugged in; this is a reasonable default
// ordering (EMA spread, MACD histogram, RSI, stochastic, BB position, ADX,
// volume ratio).
func FeatureVector(snap domain.IndicatorSnapshot) []float64 {
	bbPos := 0.0
	if snap.BBUpper != snap.BBLower {
		bbPos = (snap.CurrentPrice - snap.BBLower) / (snap.BBUpper - snap.BBLower)
	}
	return []float64{
		snap.EMAFast - snap.EMASlow,
		snap.MACDHistogram,
		snap.RSI,
		snap.StochK - snap.StochD,
		bbPos,
		snap.ADX,
		snap.VolumeRatio,
	}
}
