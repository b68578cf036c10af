package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const DefaultConfidence = 0.95

// ConfidenceInterval returns the Student-t interval of the standard error of
// the sample mean, centred on zero, so lower == -upper and upper serves as a
// +/- margin around a separately computed mean.
//
// The standard deviation is the population one (ddof=0). With fewer than two
// samples the interval is undefined and both bounds are NaN.
func ConfidenceInterval(samples []float64, confidence float64) (float64, float64) {
	n := len(samples)
	if n < 2 || confidence <= 0 || confidence >= 1 {
		return math.NaN(), math.NaN()
	}

	s := math.Sqrt(stat.PopVariance(samples, nil))
	se := s / math.Sqrt(float64(n))

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	h := t.Quantile(0.5+confidence/2) * se

	return -h, h
}

type Summary struct {
	N         int
	Mean      float64
	HalfWidth float64
}

// Summarize computes the mean and the 95% half-width of the samples.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{Mean: math.NaN(), HalfWidth: math.NaN()}
	}
	_, h := ConfidenceInterval(samples, DefaultConfidence)
	return Summary{
		N:         len(samples),
		Mean:      stat.Mean(samples, nil),
		HalfWidth: h,
	}
}
