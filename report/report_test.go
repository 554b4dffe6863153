package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/score"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func testOutcome() *demandcast.Outcome {
	start := time.Date(2012, 12, 23, 0, 0, 0, 0, time.UTC)
	t := make([]time.Time, 5)
	for i := range t {
		t[i] = start.AddDate(0, 0, i)
	}
	return &demandcast.Outcome{
		RunID:      "run-1",
		Evaluation: &score.Report{MAE: 1.5, RMSE: 2.0, MAPE: 0.1},
		Model: forecast.Model{
			TrainEndTime:   start.AddDate(0, 0, -1),
			LastTime:       start.AddDate(0, 0, -1),
			Interval:       24 * time.Hour,
			Window:         []float64{1, 2, 3},
			Reconstruction: []float64{1.1, 1.9, 3.0},
		},
		T: t,
		Forecast: &forecast.Result{
			Point: []float64{10, 11, 12, 13, 14},
			Lower: []float64{-5, 1, 2, 3, 4},
			Upper: []float64{20, 21, 22, 23, 24},
		},
		Actual: []float64{9, math.NaN(), 12.5, math.NaN(), math.NaN()},
	}
}

func TestRows(t *testing.T) {
	out := testOutcome()

	rows, err := Rows(out)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	require.NotNil(t, rows[0].Actual)
	assert.Equal(t, 9.0, *rows[0].Actual)
	assert.Nil(t, rows[1].Actual)
	assert.Equal(t, -5.0, rows[0].Lower)
	assert.Equal(t, "", rows[0].Holiday)
	assert.Equal(t, "Christmas_Day_2012", rows[2].Holiday)

	testData := map[string]struct {
		out *demandcast.Outcome
	}{
		"nil outcome": {},
		"no forecast": {out: &demandcast.Outcome{}},
		"misaligned times": {
			out: &demandcast.Outcome{
				T:        out.T[:2],
				Forecast: out.Forecast,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Rows(td.out)
			assert.ErrorIs(t, err, ErrNoOutcome)
		})
	}
}

func TestConsole(t *testing.T) {
	testData := map[string]struct {
		opt      *ConsoleOptions
		contains []string
		missing  []string
	}{
		"default floor": {
			contains: []string{"run-1", "MAE: 1.500", "2012-12-25", "Christmas_Day_2012", "0.00", "12.50"},
			missing:  []string{"-5.00"},
		},
		"raised floor": {
			opt:      &ConsoleOptions{Floor: 3},
			contains: []string{"3.00"},
			missing:  []string{"-5.00"},
		},
		"no floor": {
			opt:      &ConsoleOptions{NoFloor: true},
			contains: []string{"-5.00"},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			out := testOutcome()
			require.NoError(t, NewConsole(&buf, td.opt).Emit(context.Background(), out))

			text := buf.String()
			for _, s := range td.contains {
				assert.Contains(t, text, s)
			}
			for _, s := range td.missing {
				assert.NotContains(t, text, s)
			}
			assert.Equal(t, -5.0, out.Forecast.Lower[0])
		})
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSON(&buf, "  ").Emit(context.Background(), testOutcome()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.NotNil(t, doc.Evaluation)
	assert.Equal(t, 1.5, doc.Evaluation.MAE)
	require.Len(t, doc.Rows, 5)
	require.NotNil(t, doc.Rows[2].Actual)
	assert.Equal(t, 12.5, *doc.Rows[2].Actual)
	assert.Nil(t, doc.Rows[3].Actual)
	assert.Equal(t, "Christmas_Day_2012", doc.Rows[2].Holiday)
	assert.NotContains(t, buf.String(), "NaN")
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	h := NewHTML("")
	require.NoError(t, h.Render(&buf, testOutcome()))

	page := buf.String()
	assert.Contains(t, page, "Demand Forecast")
	assert.Contains(t, page, "Model Fit")
	assert.Contains(t, page, "2012-12-27")

	path := filepath.Join(t.TempDir(), "forecast.html")
	require.NoError(t, NewHTML(path).Emit(context.Background(), testOutcome()))

	err := NewHTML(filepath.Join(t.TempDir(), "missing", "forecast.html")).Emit(context.Background(), testOutcome())
	assert.Error(t, err)
}

func TestWindowTimes(t *testing.T) {
	out := testOutcome()
	times := windowTimes(out)
	require.Len(t, times, 3)
	assert.Equal(t, out.Model.LastTime, times[2])
	assert.Equal(t, out.Model.LastTime.AddDate(0, 0, -2), times[0])
}

type failSink struct {
	calls int
	err   error
}

func (f *failSink) Emit(ctx context.Context, out *demandcast.Outcome) error {
	f.calls++
	return f.err
}

func TestMulti(t *testing.T) {
	first, second := &failSink{}, &failSink{}
	require.NoError(t, Multi{first, second}.Emit(context.Background(), testOutcome()))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	failing, skipped := &failSink{err: errBoom}, &failSink{}
	err := Multi{failing, skipped}.Emit(context.Background(), testOutcome())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, skipped.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Multi{&failSink{}}.Emit(ctx, testOutcome())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf, nil).Emit(context.Background(), testOutcome()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// run, times, holdout, header, and one row per step
	assert.Len(t, lines, 4+5)
}
