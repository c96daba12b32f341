package signals

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelbot/perpagent/internal/domain"
)

func newTestEngine() *Engine {
	return NewEngine(Config{}, zerolog.Nop())
}

func TestCastVotes_WeightedVoteTable(t *testing.T) {
	cases := []struct {
		name string
		snap domain.IndicatorSnapshot
		want []vote
	}{
		{
			name: "trend buy on EMA fast above slow",
			snap: domain.IndicatorSnapshot{EMAFast: 101, EMASlow: 100},
			want: []vote{{"trend", 1.0, domain.ActionBuy}},
		},
		{
			name: "trend sell on EMA fast below slow",
			snap: domain.IndicatorSnapshot{EMAFast: 99, EMASlow: 100},
			want: []vote{{"trend", 1.0, domain.ActionSell}},
		},
		{
			name: "macd buy on rising positive histogram",
			snap: domain.IndicatorSnapshot{MACDHistogram: 0.5, MACDHistogramPrev: 0.3},
			want: []vote{{"macd", 1.0, domain.ActionBuy}},
		},
		{
			name: "macd sell on falling negative histogram",
			snap: domain.IndicatorSnapshot{MACDHistogram: -0.5, MACDHistogramPrev: -0.3},
			want: []vote{{"macd", 1.0, domain.ActionSell}},
		},
		{
			name: "stochastic buy on oversold cross with K above D",
			snap: domain.IndicatorSnapshot{StochK: 15, StochD: 10},
			want: []vote{{"stochastic", 0.6, domain.ActionBuy}},
		},
		{
			name: "stochastic sell on overbought cross with K below D",
			snap: domain.IndicatorSnapshot{StochK: 85, StochD: 90},
			want: []vote{{"stochastic", 0.6, domain.ActionSell}},
		},
		{
			name: "stochastic skipped entirely when underfilled",
			snap: domain.IndicatorSnapshot{StochK: 15, StochD: 10, StochIsNaN: true},
			want: nil,
		},
		{
			name: "bollinger buy near lower band while expanding",
			snap: domain.IndicatorSnapshot{BBUpper: 110, BBLower: 100, CurrentPrice: 100.5, BBWidth: 10, BBWidthPrev: 8},
			want: []vote{{"bollinger", 0.6, domain.ActionBuy}},
		},
		{
			name: "bollinger sell near upper band",
			snap: domain.IndicatorSnapshot{BBUpper: 110, BBLower: 100, CurrentPrice: 109.5, BBWidth: 8, BBWidthPrev: 10},
			want: []vote{{"bollinger", 0.6, domain.ActionSell}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, castVotes(tc.snap))
		})
	}
}

// TestCastVotes_RSIBoundaryExactThirtyDoesNotCountAsOversold verifies the
// RSI oversold-recovery vote requires the PREVIOUS bar to have been
// strictly below 30: a previous RSI of exactly 30.0 must not fire the
// buy vote, while 29.9 must.
func TestCastVotes_RSIBoundaryExactThirtyDoesNotCountAsOversold(t *testing.T) {
	exactThirty := domain.IndicatorSnapshot{RSIPrev: 30.0, RSI: 31.0}
	assert.Empty(t, castVotes(exactThirty), "RSIPrev == 30.0 exactly must not count as oversold")

	justBelow := domain.IndicatorSnapshot{RSIPrev: 29.9, RSI: 30.0}
	assert.Equal(t, []vote{{"rsi", 0.8, domain.ActionBuy}}, castVotes(justBelow), "RSIPrev == 29.9 must count as oversold and fire the crossing-up vote")
}

func TestCastVotes_VolumeConfirmsWhicheverSideIsAheadSoFar(t *testing.T) {
	buySide := domain.IndicatorSnapshot{EMAFast: 101, EMASlow: 100, VolumeRatio: 2.0}
	votes := castVotes(buySide)
	require.Len(t, votes, 2)
	assert.Equal(t, vote{"volume", 0.5, domain.ActionBuy}, votes[1])

	sellSide := domain.IndicatorSnapshot{EMAFast: 99, EMASlow: 100, VolumeRatio: 2.0}
	votes = castVotes(sellSide)
	require.Len(t, votes, 2)
	assert.Equal(t, vote{"volume", 0.5, domain.ActionSell}, votes[1])
}

func TestFuse_EqualBuySellScoresHolds(t *testing.T) {
	e := newTestEngine()
	// trend votes buy at weight 1.0, macd votes sell at weight 1.0: a
	// genuine tie between two active families, not merely an absence of
	// votes.
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100,
		MACDHistogram: -0.5, MACDHistogramPrev: -0.3,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionHold, OneDay: domain.ActionHold})
	assert.Equal(t, domain.ActionHold, sig.Action)
	assert.Equal(t, 0.0, sig.Confidence)
	assert.Contains(t, sig.Reasons, "equal_signals")
}

func TestFuse_BelowConfidenceFloorHolds(t *testing.T) {
	e := newTestEngine()
	// trend votes buy at weight 1.0, stochastic votes sell at weight 0.6:
	// confidence = (1.0-0.6)/(1.0+0.6) = 0.25, under every regime floor.
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100,
		StochK: 85, StochD: 90,
		Regime: domain.RegimeRanging,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionHold, OneDay: domain.ActionHold})
	assert.Equal(t, domain.ActionHold, sig.Action)
	assert.Contains(t, sig.Reasons, "below_confidence_floor")
}

func TestFuse_AlignedMultiTimeframeBoostsConfidenceAboveFloor(t *testing.T) {
	e := newTestEngine()
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100, MACDHistogram: 0.5, MACDHistogramPrev: 0.3,
		Regime: domain.RegimeTrending,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionBuy, OneDay: domain.ActionBuy})
	require.Equal(t, domain.ActionBuy, sig.Action)
	assert.Equal(t, 1.0, sig.Confidence)
}

func TestFuse_ConflictingMultiTimeframePenalizesBothConfidenceAndFloor(t *testing.T) {
	e := newTestEngine()
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100, MACDHistogram: 0.5, MACDHistogramPrev: 0.3,
		Regime: domain.RegimeTrending,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionSell, OneDay: domain.ActionHold})
	// Unpenalized confidence is 1.0 (two unanimous votes); with the 0.7x
	// conflict penalty applied to both confidence and the 0.65 floor, the
	// signal must still clear (0.7 > 0.455) and act.
	require.Equal(t, domain.ActionBuy, sig.Action)
	assert.InDelta(t, 0.7, sig.Confidence, 1e-9)
}

func TestFuse_MLStrongDisagreementVetoesSignal(t *testing.T) {
	e := NewEngine(Config{Predictor: StaticPredictor{Action: domain.ActionSell, Prob: 0.9}}, zerolog.Nop())
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100, MACDHistogram: 0.5, MACDHistogramPrev: 0.3,
		Regime: domain.RegimeTrending,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionBuy, OneDay: domain.ActionBuy})
	assert.Equal(t, domain.ActionHold, sig.Action)
	assert.Contains(t, sig.Reasons, "ml_strong_disagreement")
}

func TestFuse_MLAgreementBoostsConfidence(t *testing.T) {
	e := NewEngine(Config{Predictor: StaticPredictor{Action: domain.ActionBuy, Prob: 0.9}}, zerolog.Nop())
	// Same conflicting-MTF setup as the penalty test above, so the
	// pre-ML confidence is known to land at 0.7; agreement then boosts
	// it by 1.10x.
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100, MACDHistogram: 0.5, MACDHistogramPrev: 0.3,
		Regime: domain.RegimeTrending,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionSell, OneDay: domain.ActionHold})
	require.Equal(t, domain.ActionBuy, sig.Action)
	assert.InDelta(t, 0.77, sig.Confidence, 1e-9)
}

func TestFuse_RequireMLModelHoldsWhenNoModelReady(t *testing.T) {
	e := NewEngine(Config{RequireMLModel: true}, zerolog.Nop())
	snap := domain.IndicatorSnapshot{
		EMAFast: 101, EMASlow: 100, MACDHistogram: 0.5, MACDHistogramPrev: 0.3,
		Regime: domain.RegimeTrending,
	}
	sig := e.Fuse(snap, MTFLabels{FourHour: domain.ActionBuy, OneDay: domain.ActionBuy})
	assert.Equal(t, domain.ActionHold, sig.Action)
	assert.Contains(t, sig.Reasons, "ml_model_required")
}

func TestTrendLabel_RequiresEMAAndMACDAgreement(t *testing.T) {
	assert.Equal(t, domain.ActionBuy, TrendLabel(domain.IndicatorSnapshot{EMAFast: 101, EMASlow: 100, MACDHistogram: 0.1}))
	assert.Equal(t, domain.ActionSell, TrendLabel(domain.IndicatorSnapshot{EMAFast: 99, EMASlow: 100, MACDHistogram: -0.1}))
	assert.Equal(t, domain.ActionHold, TrendLabel(domain.IndicatorSnapshot{EMAFast: 101, EMASlow: 100, MACDHistogram: -0.1}))
}
