// Package report renders the outcome of a forecast run for people and machines
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/event"
	"github.com/rickar/cal/v2"
)

var ErrNoOutcome = errors.New("no outcome to report")

// Row is a single forecast step
type Row struct {
	Time     time.Time `json:"time"`
	Actual   *float64  `json:"actual,omitempty"`
	Lower    float64   `json:"lower"`
	Forecast float64   `json:"forecast"`
	Upper    float64   `json:"upper"`
	Holiday  string    `json:"holiday,omitempty"`
}

// Rows lays out the forecast one step per row annotated with any holiday falling on that step.
// Unobserved actual values are left nil.
func Rows(out *demandcast.Outcome, holidays ...*cal.Holiday) ([]Row, error) {
	if out == nil || out.Forecast == nil {
		return nil, ErrNoOutcome
	}
	if len(out.T) != out.Forecast.Len() {
		return nil, fmt.Errorf(
			"forecast has %d steps but %d times, %w",
			out.Forecast.Len(), len(out.T), ErrNoOutcome,
		)
	}
	if len(out.T) == 0 {
		return []Row{}, nil
	}

	calendar := event.NewCalendar(out.T[0], out.T[len(out.T)-1], holidays...)

	rows := make([]Row, 0, len(out.T))
	for i, t := range out.T {
		row := Row{
			Time:     t,
			Lower:    out.Forecast.Lower[i],
			Forecast: out.Forecast.Point[i],
			Upper:    out.Forecast.Upper[i],
		}
		if i < len(out.Actual) && !math.IsNaN(out.Actual[i]) {
			actual := out.Actual[i]
			row.Actual = &actual
		}
		if name, ok := calendar.Lookup(t); ok {
			row.Holiday = name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Multi fans an outcome out to every sink in order and stops at the first failure
type Multi []demandcast.Sink

func (m Multi) Emit(ctx context.Context, out *demandcast.Outcome) error {
	for i, sink := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Emit(ctx, out); err != nil {
			return fmt.Errorf("unable to emit to sink %d, %w", i, err)
		}
	}
	return nil
}
