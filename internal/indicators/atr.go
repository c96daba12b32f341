package indicators

// atrSeries computes the Average True Range using Wilder's smoothing, the
// same manual style as the ADX computation in this package, since
// cinar/indicator/v2 does not expose ATR in the pinned version. valid
// reports whether at least 14 bars of true range were available, the
// threshold used elsewhere to prefer a Chandelier trailing stop over a
// flat percentage one.
func atrSeries(highs, lows, closes []float64, period int) (atr float64, valid bool) {
	n := len(closes)
	if period < 1 || n < period+1 {
		return 0, false
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(highs[i], lows[i], closes[i-1])
	}

	smoothed := smoothWilder(tr, period)
	atr = smoothed[n-1]

	return atr, n-1 >= 14
}

func trueRange(high, low, prevClose float64) float64 {
	a := high - low
	b := absf(high - prevClose)
	c := absf(low - prevClose)
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// smoothWilder applies Wilder's smoothing, shared by atr and adx.
func smoothWilder(data []float64, period int) []float64 {
	n := len(data)
	result := make([]float64, n)
	if n < period {
		return result
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		result[i] = (result[i-1]*float64(period-1) + data[i]) / float64(period)
	}
	return result
}
