package risk

import "math"

// MinOutcomesForKelly is the minimum number of recorded outcomes before
// the adaptive Kelly override is trusted over the static sizing formula.
const MinOutcomesForKelly = 20

// KellyInputs summarizes the recorded trade history the adaptive fraction
// needs.
type KellyInputs struct {
	WinRate        float64 // historical, full ring
	RecentWinRate  float64 // rolling recent window
	AvgWin         float64
	AvgLoss        float64 // positive magnitude
	WinStreak      int
	LossStreak     int
	OutcomeCount   int
}

// AdaptiveKellyRiskPct returns the overridden risk_per_trade fraction, or
// ok=false when there isn't enough history yet (fewer than
// MinOutcomesForKelly recorded outcomes) and the caller should keep using
// the static sizing formula's risk_per_trade.
func AdaptiveKellyRiskPct(in KellyInputs) (riskPct float64, ok bool) {
	if in.OutcomeCount < MinOutcomesForKelly || in.AvgLoss <= 0 {
		return 0, false
	}

	p := in.WinRate
	w := in.AvgWin
	l := in.AvgLoss

	k := (p*w - (1-p)*l) / l
	if k < 0 {
		k = 0
	}

	fraction := adaptiveFraction(in.WinRate, in.RecentWinRate)

	switch {
	case in.LossStreak >= 3:
		fraction *= 0.7
	case in.WinStreak >= 5:
		fraction *= 1.1
		if fraction > 0.65 {
			fraction = 0.65
		}
	}

	riskPct = k * fraction
	if riskPct < 0.005 {
		riskPct = 0.005
	}
	if riskPct > 0.035 {
		riskPct = 0.035
	}
	return riskPct, true
}

// adaptiveFraction scales the Kelly fraction within [0.4, 0.65] based on a
// consistency score between historical and recent-window win rates: the
// closer recent performance tracks the historical baseline, the larger
// the fraction used.
func adaptiveFraction(historical, recent float64) float64 {
	diff := math.Abs(historical - recent)
	// diff of 0 -> max fraction; diff >= 0.3 -> min fraction.
	consistency := 1 - diff/0.3
	if consistency < 0 {
		consistency = 0
	}
	if consistency > 1 {
		consistency = 1
	}
	return 0.4 + consistency*0.25
}
