// Package timedataset holds the ordered observations a forecast is trained and evaluated on.
package timedataset

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"
)

var (
	ErrInvalidData        = errors.New("invalid data")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from time data")
	ErrDatasetLenMismatch = fmt.Errorf("time feature has a different length than observations, %w", ErrInvalidData)
)

// MinObservations is the fewest observations a Buffer can be loaded from
const MinObservations = 2

// Observation is a single dated value. Year is the partition key the data source resolves for
// each row, e.g. 0 for the first year of history and 1 for the second.
type Observation struct {
	Time  time.Time `json:"time"`
	Year  float64   `json:"year"`
	Value float64   `json:"value"`
}

// Buffer stores observations in strictly increasing time order. A Buffer never shares its
// backing slice with the caller.
type Buffer struct {
	obs []Observation
}

// Load validates and copies the input observations into a new Buffer.
func Load(obs []Observation) (*Buffer, error) {
	if len(obs) < MinObservations {
		return nil, fmt.Errorf(
			"need at least %d observations, but got %d, %w",
			MinObservations, len(obs), ErrInvalidData,
		)
	}

	for i := range obs {
		if !Finite(obs[i].Value) {
			return nil, fmt.Errorf("non-finite value %f at %d, %w", obs[i].Value, i, ErrInvalidData)
		}
		if i > 0 && !obs[i].Time.After(obs[i-1].Time) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrInvalidData)
		}
	}

	dst := make([]Observation, len(obs))
	copy(dst, obs)
	return &Buffer{obs: dst}, nil
}

// Finite reports whether v is neither NaN nor an infinity
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FromSeries builds a Buffer from parallel time and value slices. The year of each observation
// is counted from the year of the first timestamp.
func FromSeries(t []time.Time, y []float64) (*Buffer, error) {
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}
	if len(t) == 0 {
		return Load(nil)
	}

	startYear := t[0].Year()
	obs := make([]Observation, 0, len(t))
	for i := range t {
		obs = append(obs, Observation{
			Time:  t[i],
			Year:  float64(t[i].Year() - startYear),
			Value: y[i],
		})
	}
	return Load(obs)
}

// Split partitions the buffer with the predicate. Observations the predicate accepts go to
// train and the rest to holdout, both in their original order. Either side may be empty.
func (b *Buffer) Split(pred func(Observation) bool) (*Buffer, *Buffer) {
	train := &Buffer{obs: make([]Observation, 0, len(b.obs))}
	holdout := &Buffer{obs: make([]Observation, 0)}
	for _, o := range b.obs {
		if pred(o) {
			train.obs = append(train.obs, o)
			continue
		}
		holdout.obs = append(holdout.obs, o)
	}
	return train, holdout
}

// Values lazily yields the observed values in time order. The sequence can be ranged over
// any number of times.
func (b *Buffer) Values() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for _, o := range b.obs {
			if !yield(o.Value) {
				return
			}
		}
	}
}

// Slice materializes the observed values into a new slice
func (b *Buffer) Slice() []float64 {
	y := make([]float64, 0, len(b.obs))
	for v := range b.Values() {
		y = append(y, v)
	}
	return y
}

// Times returns a copy of the observation times
func (b *Buffer) Times() TimeSlice {
	t := make([]time.Time, 0, len(b.obs))
	for _, o := range b.obs {
		t = append(t, o.Time)
	}
	return TimeSlice(t)
}

// Observations returns a copy of the stored observations
func (b *Buffer) Observations() []Observation {
	dst := make([]Observation, len(b.obs))
	copy(dst, b.obs)
	return dst
}

func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.obs)
}

func (b *Buffer) At(i int) Observation {
	return b.obs[i]
}

// Last returns the most recent observation and false if the buffer is empty
func (b *Buffer) Last() (Observation, bool) {
	if b.Len() == 0 {
		return Observation{}, false
	}
	return b.obs[len(b.obs)-1], true
}
