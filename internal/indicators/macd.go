package indicators

import "github.com/cinar/indicator/v2/trend"

// macdSeries computes the MACD line and signal line series, mirroring the
// teacher's CalculateMACD (internal/indicators/macd.go).
func macdSeries(closes []float64, fast, slow, signal int) (macdLine, signalLine []float64) {
	if fast < 1 || slow < 1 || signal < 1 || fast >= slow || len(closes) < slow+signal {
		return nil, nil
	}

	in := make(chan float64, len(closes))
	for _, c := range closes {
		in <- c
	}
	close(in)

	macd := trend.NewMacdWithPeriod[float64](fast, slow, signal)
	macdChan, signalChan := macd.Compute(in)

	for {
		m, mok := <-macdChan
		sg, sok := <-signalChan
		if !mok || !sok {
			break
		}
		macdLine = append(macdLine, m)
		signalLine = append(signalLine, sg)
	}
	return macdLine, signalLine
}
