package signals

import (
	"github.com/rs/zerolog"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// vote is one indicator family's contribution to the buy/sell tally.
type vote struct {
	family string
	weight float64
	side   domain.Action // ActionBuy, ActionSell, or ActionHold for no vote
}

// Engine fuses indicator snapshots into a trading Signal.
type Engine struct {
	predictor   Predictor
	minMLConf   float64
	requireML   bool
	log         zerolog.Logger
}

// Config controls optional ML confirmation behavior.
type Config struct {
	Predictor      Predictor
	RequireMLModel bool
	MinMLConfidence float64
}

// NewEngine builds a signal fusion engine. A nil Predictor is replaced
// with NopPredictor so ML confirmation is simply skipped.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	p := cfg.Predictor
	if p == nil {
		p = NopPredictor{}
	}
	minConf := cfg.MinMLConfidence
	if minConf == 0 {
		minConf = 0.65
	}
	return &Engine{
		predictor: p,
		minMLConf: minConf,
		requireML: cfg.RequireMLModel,
		log:       logger.With().Str("component", "signals").Logger(),
	}
}

// MTFLabels carries the higher-timeframe trend labels used for the
// multi-timeframe confidence adjustment.
type MTFLabels struct {
	FourHour domain.Action
	OneDay   domain.Action
}

// Fuse computes the weighted-vote signal for a 1h snapshot, applies the
// multi-timeframe adjustment, and (optionally) ML confirmation.
func (e *Engine) Fuse(snap domain.IndicatorSnapshot, mtf MTFLabels) domain.Signal {
	votes := castVotes(snap)

	var buyScore, sellScore float64
	reasons := map[string]string{}
	for _, v := range votes {
		switch v.side {
		case domain.ActionBuy:
			buyScore += v.weight
			reasons[v.family] = "buy"
		case domain.ActionSell:
			sellScore += v.weight
			reasons[v.family] = "sell"
		}
		// ActionHold (NaN/underfilled) contributes nothing and is never
		// counted as a vote for the opposite side.
	}

	if buyScore == sellScore {
		sig := domain.HoldSignal("equal_signals", "balanced")
		e.log.Debug().Str("symbol", snap.Symbol).Msg("equal buy/sell signals, holding")
		return sig
	}

	var action domain.Action
	var winning, total float64
	if buyScore > sellScore {
		action = domain.ActionBuy
	} else {
		action = domain.ActionSell
	}
	winning = absDiff(buyScore, sellScore)
	total = buyScore + sellScore
	confidence := 0.0
	if total > 0 {
		confidence = winning / total
	}

	confidence, minFloor := applyMultiTimeframe(action, confidence, mtf, domain.MinConfidenceFloor(snap.Regime))

	if confidence < minFloor {
		return domain.HoldSignal("below_confidence_floor", "regime-adjusted threshold not met")
	}

	sig := domain.Signal{Action: action, Confidence: confidence, Reasons: reasons}

	sig = e.applyMLConfirmation(sig, snap)

	return sig
}

// castVotes evaluates the per-family weighted voting table.
func castVotes(s domain.IndicatorSnapshot) []vote {
	var votes []vote

	// Trend: fast EMA vs slow EMA. We don't carry a full EMA history, so
	// a crossover test on the latest values stands in for "both rising".
	if s.EMAFast > s.EMASlow {
		votes = append(votes, vote{"trend", 1.0, domain.ActionBuy})
	} else if s.EMAFast < s.EMASlow {
		votes = append(votes, vote{"trend", 1.0, domain.ActionSell})
	}

	// MACD: histogram sign and direction vs previous bar.
	if s.MACDHistogram > 0 && s.MACDHistogram > s.MACDHistogramPrev {
		votes = append(votes, vote{"macd", 1.0, domain.ActionBuy})
	} else if s.MACDHistogram < 0 && s.MACDHistogram < s.MACDHistogramPrev {
		votes = append(votes, vote{"macd", 1.0, domain.ActionSell})
	}

	// RSI: crossing up from <30 or down from >70. RSI == 30.0 exactly
	// does NOT count as oversold.
	if s.RSIPrev < 30 && s.RSI >= 30 && s.RSIPrev < 30.0 {
		votes = append(votes, vote{"rsi", 0.8, domain.ActionBuy})
	} else if s.RSIPrev > 70 && s.RSI <= 70 {
		votes = append(votes, vote{"rsi", 0.8, domain.ActionSell})
	}

	// Stochastic: NaN (underfilled window) is skipped entirely.
	if !s.StochIsNaN {
		if s.StochK < 20 && s.StochK > s.StochD {
			votes = append(votes, vote{"stochastic", 0.6, domain.ActionBuy})
		} else if s.StochK > 80 && s.StochK < s.StochD {
			votes = append(votes, vote{"stochastic", 0.6, domain.ActionSell})
		}
	}

	// Bollinger position: near lower band with expanding width -> buy;
	// near upper band -> sell.
	if s.BBUpper != s.BBLower {
		pos := (s.CurrentPrice - s.BBLower) / (s.BBUpper - s.BBLower)
		expanding := s.BBWidth > s.BBWidthPrev
		if pos <= 0.1 && expanding {
			votes = append(votes, vote{"bollinger", 0.6, domain.ActionBuy})
		} else if pos >= 0.9 {
			votes = append(votes, vote{"bollinger", 0.6, domain.ActionSell})
		}
	}

	// Volume confirmation: supports whichever side already has more
	// votes so far (applied last, reading the running tally).
	if s.VolumeRatio > 1.5 {
		buy, sell := tally(votes)
		if buy > sell {
			votes = append(votes, vote{"volume", 0.5, domain.ActionBuy})
		} else if sell > buy {
			votes = append(votes, vote{"volume", 0.5, domain.ActionSell})
		}
	}

	return votes
}

func tally(votes []vote) (buy, sell float64) {
	for _, v := range votes {
		switch v.side {
		case domain.ActionBuy:
			buy += v.weight
		case domain.ActionSell:
			sell += v.weight
		}
	}
	return buy, sell
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// applyMultiTimeframe adjusts confidence against higher-timeframe trend
// labels: alignment boosts confidence up to 1.20x (capped at 1.0);
// conflict multiplies both confidence AND the minimum-confidence floor by
// 0.7 so the penalty cannot inconsistently reject a still-valid signal.
func applyMultiTimeframe(action domain.Action, confidence float64, mtf MTFLabels, baseFloor float64) (adjConfidence, adjFloor float64) {
	aligned := (mtf.FourHour == action || mtf.FourHour == domain.ActionHold) &&
		(mtf.OneDay == action || mtf.OneDay == domain.ActionHold) &&
		(mtf.FourHour == action || mtf.OneDay == action)
	conflicting := (mtf.FourHour != domain.ActionHold && mtf.FourHour != action) ||
		(mtf.OneDay != domain.ActionHold && mtf.OneDay != action)

	switch {
	case aligned && !conflicting:
		boosted := confidence * 1.20
		if boosted > 1.0 {
			boosted = 1.0
		}
		return boosted, baseFloor
	case conflicting:
		return confidence * 0.7, baseFloor * 0.7
	default:
		return confidence, baseFloor
	}
}

// applyMLConfirmation consults the configured ML predictor, if ready, and
// adjusts or vetoes the technical signal based on its verdict.
func (e *Engine) applyMLConfirmation(sig domain.Signal, snap domain.IndicatorSnapshot) domain.Signal {
	if !e.predictor.Ready() {
		if e.requireML {
			return domain.HoldSignal("ml_model_required", "no model ready and require_ml_model is set")
		}
		return sig
	}

	mlAction, prob := e.predictor.Predict(FeatureVector(snap))

	opposite := mlAction != sig.Action && mlAction != domain.ActionHold
	switch {
	case opposite && prob >= 0.75:
		return domain.HoldSignal("ml_strong_disagreement", "ml predictor opposes with high probability")
	case opposite:
		sig.Confidence *= 0.8
	case mlAction == sig.Action:
		boosted := sig.Confidence * 1.10
		if boosted > 1.0 {
			boosted = 1.0
		}
		sig.Confidence = boosted
	}

	if prob < e.minMLConf && mlAction == sig.Action {
		// Agreement but low conviction: leave confidence as computed,
		// the regime floor already gated entry before this stage ran.
		e.log.Debug().Str("symbol", snap.Symbol).Float64("ml_prob", prob).Msg("ml confirmation below min confidence, proceeding on technical signal")
	}

	return sig
}
