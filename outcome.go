package demandcast

import (
	"math"
	"time"

	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/score"
	"github.com/aouyang1/go-demandcast/timedataset"
)

// Outcome is everything a run hands to its sink
type Outcome struct {
	RunID string `json:"run_id"`

	// Evaluation compares the forecast over the holdout span against the holdout values. It is
	// nil when there is no holdout.
	Evaluation *score.Report `json:"evaluation,omitempty"`
	Model      forecast.Model `json:"model"`

	T        []time.Time      `json:"time"`
	Forecast *forecast.Result `json:"forecast"`

	// Actual holds the observed value at each forecast time and NaN where none was observed
	Actual []float64 `json:"-"`
}

// HasActual reports whether any forecast time has an observed value
func (o *Outcome) HasActual() bool {
	for _, v := range o.Actual {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// forecastTimes returns the n times following last spaced by interval
func forecastTimes(last time.Time, interval time.Duration, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 1; i <= n; i++ {
		t = append(t, last.Add(time.Duration(i)*interval))
	}
	return t
}

// alignActual looks up the observed value at each time
func alignActual(t []time.Time, obs []timedataset.Observation) []float64 {
	byTime := make(map[int64]float64, len(obs))
	for _, o := range obs {
		byTime[o.Time.UnixNano()] = o.Value
	}
	actual := make([]float64, len(t))
	for i, ct := range t {
		v, ok := byTime[ct.UnixNano()]
		if !ok {
			v = math.NaN()
		}
		actual[i] = v
	}
	return actual
}
