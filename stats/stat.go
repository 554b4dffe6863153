// Package stats holds the small statistical helpers the forecast model needs for its
// confidence intervals.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidConfidence = errors.New("confidence level must be within (0, 1)")

// ZScore returns the two-sided standard normal quantile for the confidence level, e.g. 1.959964
// for 0.95.
func ZScore(confidence float64) (float64, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("got %f, %w", confidence, ErrInvalidConfidence)
	}
	return distuv.UnitNormal.Quantile(0.5 + confidence/2.0), nil
}

// RunningVariance accumulates a sample variance one value at a time using Welford's method
type RunningVariance struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`
}

// NewRunningVariance seeds the accumulator with an initial batch of values
func NewRunningVariance(x []float64) RunningVariance {
	if len(x) == 0 {
		return RunningVariance{}
	}
	mean, variance := stat.MeanVariance(x, nil)
	m2 := 0.0
	if len(x) > 1 {
		m2 = variance * float64(len(x)-1)
	}
	return RunningVariance{
		N:    len(x),
		Mean: mean,
		M2:   m2,
	}
}

func (r *RunningVariance) Add(x float64) {
	r.N++
	delta := x - r.Mean
	r.Mean += delta / float64(r.N)
	r.M2 += delta * (x - r.Mean)
}

// Variance is the unbiased sample variance, 0 with fewer than two values
func (r RunningVariance) Variance() float64 {
	if r.N < 2 {
		return 0
	}
	return math.Max(r.M2/float64(r.N-1), 0)
}
