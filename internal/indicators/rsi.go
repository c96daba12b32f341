package indicators

import "github.com/cinar/indicator/v2/momentum"

// rsiSeries computes the RSI series using cinar/indicator's channel
// pipeline.
func rsiSeries(closes []float64, period int) []float64 {
	if period < 1 || period > len(closes) {
		return nil
	}

	in := make(chan float64, len(closes))
	for _, c := range closes {
		in <- c
	}
	close(in)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	out := rsi.Compute(in)

	var values []float64
	for v := range out {
		values = append(values, v)
	}
	return values
}
