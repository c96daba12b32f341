// Package indicators derives an IndicatorSnapshot from a candle window.
// Computation is vectorized and never performs I/O; callers own fetching
// the candle data.
package indicators

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// Periods configures the lookback windows used by each indicator.
// NewService replaces the whole struct with DefaultPeriods() when EMASlow
// is zero; other zero fields are not defaulted one by one.
type Periods struct {
	EMAFast     int
	EMASlow     int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	RSI         int
	StochK      int
	StochD      int
	BollingerN  int
	BollingerK  float64
	ATR         int
	ADX         int
	VolumeMean  int
}

// DefaultPeriods returns the conventional lookback windows (12/26/9 MACD,
// 14 RSI/ATR/ADX, 20 Bollinger).
func DefaultPeriods() Periods {
	return Periods{
		EMAFast: 12, EMASlow: 26,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		RSI:        14,
		StochK:     14, StochD: 3,
		BollingerN: 20, BollingerK: 2.0,
		ATR: 14,
		ADX: 14,
		VolumeMean: 20,
	}
}

// Service computes indicator snapshots and caches the most recent one
// per symbol/timeframe, safe for concurrent use by multiple scanner
// workers and the monitor task.
type Service struct {
	periods Periods
	cache   *Cache
	log     zerolog.Logger
}

// NewService creates an indicator service with the given periods. Passing
// a zero-value Periods uses DefaultPeriods().
func NewService(periods Periods, logger zerolog.Logger) *Service {
	if periods.EMASlow == 0 {
		periods = DefaultPeriods()
	}
	return &Service{periods: periods, cache: newCache(0), log: logger.With().Str("component", "indicators").Logger()}
}

// Cached returns the most recently computed snapshot for a symbol at a
// given timeframe, if the scanner (or a prior monitor tick) computed one
// recently enough to still be fresh. It lets the monitor task's ATR/ADX
// reads reuse the scanner's own indicator pass instead of recomputing a
// full window every 1-second tick.
func (s *Service) Cached(symbol string, tf domain.Timeframe) (domain.IndicatorSnapshot, bool) {
	return s.cache.get(symbol, tf)
}

// Compute derives the full IndicatorSnapshot for a symbol from its most
// recent candle window. It requires at least domain.MinCandlesForIndicators
// candles; callers are expected to have already enforced that floor, but
// Compute re-validates defensively.
func (s *Service) Compute(symbol string, tf domain.Timeframe, candles []domain.Candle) (domain.IndicatorSnapshot, error) {
	if len(candles) < domain.MinCandlesForIndicators {
		return domain.IndicatorSnapshot{}, fmt.Errorf("indicators: need >= %d candles, got %d", domain.MinCandlesForIndicators, len(candles))
	}

	closes := domain.Closes(candles)
	highs := domain.Highs(candles)
	lows := domain.Lows(candles)
	volumes := domain.Volumes(candles)

	snap := domain.IndicatorSnapshot{
		Symbol:       symbol,
		Timeframe:    tf,
		CurrentPrice: closes[len(closes)-1],
		CurrentHigh:  highs[len(highs)-1],
		CurrentLow:   lows[len(lows)-1],
	}

	snap.EMAFast = emaSeries(closes, s.periods.EMAFast)[len(closes)-1]
	snap.EMASlow = emaSeries(closes, s.periods.EMASlow)[len(closes)-1]

	macdLine, macdSignal := macdSeries(closes, s.periods.MACDFast, s.periods.MACDSlow, s.periods.MACDSignal)
	n := len(macdLine)
	if n >= 1 {
		snap.MACDLine = macdLine[n-1]
		snap.MACDSignal = macdSignal[n-1]
		snap.MACDHistogram = snap.MACDLine - snap.MACDSignal
	}
	if n >= 2 {
		snap.MACDHistogramPrev = macdLine[n-2] - macdSignal[n-2]
	}

	rsiValues := rsiSeries(closes, s.periods.RSI)
	if len(rsiValues) >= 1 {
		snap.RSI = rsiValues[len(rsiValues)-1]
	}
	if len(rsiValues) >= 2 {
		snap.RSIPrev = rsiValues[len(rsiValues)-2]
	}

	k, d, ok := stochasticSeries(highs, lows, closes, s.periods.StochK, s.periods.StochD)
	if ok {
		snap.StochK = k
		snap.StochD = d
	} else {
		snap.StochIsNaN = true
	}

	upper, middle, lower, width, widthPrev := bollingerSeries(closes, s.periods.BollingerN, s.periods.BollingerK)
	snap.BBUpper, snap.BBMiddle, snap.BBLower = upper, middle, lower
	snap.BBWidth, snap.BBWidthPrev = width, widthPrev

	atr, atrOK := atrSeries(highs, lows, closes, s.periods.ATR)
	snap.ATR = atr
	snap.ATRValid = atrOK

	snap.ADX = adx(highs, lows, closes, s.periods.ADX)

	snap.VolumeRatio = volumeRatio(volumes, s.periods.VolumeMean)
	snap.VWAP = vwap(highs, lows, closes, volumes)
	snap.Momentum, snap.ROC = momentumAndROC(closes)

	snap.Regime = domain.DeriveRegime(snap.ADX, snap.BBWidth)

	s.log.Debug().
		Str("symbol", symbol).
		Float64("rsi", snap.RSI).
		Float64("adx", snap.ADX).
		Str("regime", string(snap.Regime)).
		Msg("indicator snapshot computed")

	s.cache.set(symbol, tf, snap)
	return snap, nil
}
