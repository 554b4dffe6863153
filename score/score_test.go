package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	testData := map[string]struct {
		actual   []float64
		forecast []float64
		expected Report
		err      error
	}{
		"perfect": {
			actual:   []float64{1, 2, 3},
			forecast: []float64{1, 2, 3},
			expected: Report{},
		},
		"zero actuals": {
			actual:   []float64{0, 0},
			forecast: []float64{1, 3},
			expected: Report{MAE: 2.0, RMSE: math.Sqrt(5.0)},
		},
		"percent error": {
			actual:   []float64{10, 20},
			forecast: []float64{11, 18},
			expected: Report{MAE: 1.5, RMSE: math.Sqrt(2.5), MAPE: 0.1},
		},
		"length mismatch": {
			actual:   []float64{1, 2},
			forecast: []float64{1},
			err:      ErrResLenMismatch,
		},
		"empty actual": {
			forecast: []float64{1},
			err:      ErrResLenMismatch,
		},
		"both empty": {
			err: ErrResLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Evaluate(td.actual, td.forecast)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, td.expected.MAE, res.MAE, 1e-12)
			assert.InDelta(t, td.expected.RMSE, res.RMSE, 1e-12)
			assert.InDelta(t, td.expected.MAPE, res.MAPE, 1e-12)
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	actual := []float64{0, 0}
	forecast := []float64{1, 3}
	_, err := Evaluate(actual, forecast)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, actual)
	assert.Equal(t, []float64{1, 3}, forecast)
}
