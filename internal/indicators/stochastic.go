package indicators

// stochasticSeries computes %K (fast, raw) and %D (SMA of %K) manually,
// the same way ADX is hand-rolled in this package, since
// cinar/indicator/v2 does not expose a stochastic oscillator in the
// pinned version. Returns ok=false when the window is underfilled, which
// callers treat as a dropped contribution rather than a zero vote.
func stochasticSeries(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d float64, ok bool) {
	n := len(closes)
	if kPeriod < 1 || n < kPeriod+dPeriod {
		return 0, 0, false
	}

	kValues := make([]float64, 0, n-kPeriod+1)
	for i := kPeriod - 1; i < n; i++ {
		hh, ll := highs[i], lows[i]
		for j := i - kPeriod + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			kValues = append(kValues, 50)
			continue
		}
		kValues = append(kValues, (closes[i]-ll)/(hh-ll)*100)
	}

	if len(kValues) < dPeriod {
		return 0, 0, false
	}

	k = kValues[len(kValues)-1]

	sum := 0.0
	for i := len(kValues) - dPeriod; i < len(kValues); i++ {
		sum += kValues[i]
	}
	d = sum / float64(dPeriod)

	return k, d, true
}
