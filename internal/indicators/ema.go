package indicators

import "github.com/cinar/indicator/v2/trend"

// emaSeries computes the exponential moving average over the full series
// using cinar/indicator's channel pipeline.
func emaSeries(closes []float64, period int) []float64 {
	if period < 1 || period > len(closes) {
		return []float64{0}
	}

	in := make(chan float64, len(closes))
	for _, c := range closes {
		in <- c
	}
	close(in)

	ema := trend.NewEmaWithPeriod[float64](period)
	out := ema.Compute(in)

	var values []float64
	for v := range out {
		values = append(values, v)
	}
	if len(values) == 0 {
		return []float64{0}
	}
	return values
}
