package indicators

// volumeRatio is current volume divided by the mean of the trailing
// `period` bars.
func volumeRatio(volumes []float64, period int) float64 {
	n := len(volumes)
	if n == 0 {
		return 0
	}
	if n <= period {
		period = n - 1
		if period <= 0 {
			return 1
		}
	}

	sum := 0.0
	for i := n - 1 - period; i < n-1; i++ {
		sum += volumes[i]
	}
	mean := sum / float64(period)
	if mean == 0 {
		return 1
	}
	return volumes[n-1] / mean
}

// vwap computes the volume-weighted average price over the full window
// using typical price (H+L+C)/3, the conventional approximation when tick
// data isn't available.
func vwap(highs, lows, closes, volumes []float64) float64 {
	var pvSum, vSum float64
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		pvSum += typical * volumes[i]
		vSum += volumes[i]
	}
	if vSum == 0 {
		return 0
	}
	return pvSum / vSum
}

// momentumAndROC returns simple 10-bar momentum (price difference) and
// rate-of-change (percentage), both standard lookbacks for these
// indicators.
func momentumAndROC(closes []float64) (momentum, roc float64) {
	const lookback = 10
	n := len(closes)
	if n <= lookback {
		return 0, 0
	}
	prior := closes[n-1-lookback]
	current := closes[n-1]
	momentum = current - prior
	if prior != 0 {
		roc = (current - prior) / prior * 100
	}
	return momentum, roc
}
