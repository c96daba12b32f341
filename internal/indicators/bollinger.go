package indicators

import "github.com/cinar/indicator/v2/volatility"

// bollingerSeries returns the most recent upper/middle/lower band values
// plus the current and previous band-width percentage, used by callers to
// detect a widening band.
func bollingerSeries(closes []float64, period int, _ float64) (upper, middle, lower, width, widthPrev float64) {
	if period < 2 || period > len(closes) {
		return 0, 0, 0, 0, 0
	}

	in := make(chan float64, len(closes))
	for _, c := range closes {
		in <- c
	}
	close(in)

	bb := volatility.NewBollingerBandsWithPeriod[float64](period)
	lowerChan, middleChan, upperChan := bb.Compute(in)

	var lowers, middles, uppers []float64
	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lowers = append(lowers, l)
		middles = append(middles, m)
		uppers = append(uppers, u)
	}

	n := len(middles)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	widthAt := func(i int) float64 {
		if middles[i] == 0 {
			return 0
		}
		return (uppers[i] - lowers[i]) / middles[i] * 100
	}

	upper, middle, lower = uppers[n-1], middles[n-1], lowers[n-1]
	width = widthAt(n - 1)
	if n >= 2 {
		widthPrev = widthAt(n - 2)
	} else {
		widthPrev = width
	}
	return upper, middle, lower, width, widthPrev
}
