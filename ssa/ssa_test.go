package ssa

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sineSeries(n int, period, amp, offset float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = offset + amp*math.Sin(2.0*math.Pi*float64(i)/period)
	}
	return y
}

func noiseSeries(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, n)
	for i := range y {
		y[i] = rng.NormFloat64()
	}
	return y
}

func TestEmbed(t *testing.T) {
	testData := map[string]struct {
		series []float64
		window int
		rows   int
		cols   int
		err    error
	}{
		"window below minimum": {
			series: []float64{1, 2, 3},
			window: 1,
			err:    ErrInvalidConfig,
		},
		"window equal to series length": {
			series: []float64{1, 2, 3},
			window: 3,
			err:    ErrInvalidConfig,
		},
		"window longer than series": {
			series: []float64{1, 2, 3},
			window: 5,
			err:    ErrInvalidConfig,
		},
		"valid": {
			series: sineSeries(30, 7, 1, 0),
			window: 7,
			rows:   7,
			cols:   24,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := Embed(td.series, td.window)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			r, c := x.Dims()
			assert.Equal(t, td.rows, r)
			assert.Equal(t, td.cols, c)
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					assert.Equal(t, td.series[i+j], x.At(i, j))
				}
			}
		})
	}
}

func TestOrderComponents(t *testing.T) {
	testData := map[string]struct {
		vals     []float64
		expected []int
	}{
		"ascending":     {vals: []float64{1, 2, 3}, expected: []int{2, 1, 0}},
		"ties by index": {vals: []float64{-2, 1, 2}, expected: []int{0, 2, 1}},
		"all equal":     {vals: []float64{1, 1, 1}, expected: []int{0, 1, 2}},
		"empty":         {vals: []float64{}, expected: []int{}},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, orderComponents(td.vals))
		})
	}
}

func TestDecompose(t *testing.T) {
	testData := map[string]struct {
		series []float64
		window int
		rank   int
		err    error
	}{
		"rank zero": {
			series: sineSeries(30, 7, 1, 0),
			window: 7,
			rank:   0,
			err:    ErrInvalidConfig,
		},
		"rank above window": {
			series: sineSeries(30, 7, 1, 0),
			window: 7,
			rank:   8,
			err:    ErrInvalidConfig,
		},
		"constant series asking for two components": {
			series: sineSeries(30, 7, 0, 5),
			window: 7,
			rank:   2,
			err:    ErrDegenerate,
		},
		"all zeros": {
			series: make([]float64, 30),
			window: 7,
			rank:   1,
			err:    ErrDegenerate,
		},
		"sine wave rank two": {
			series: sineSeries(30, 7, 1, 0),
			window: 7,
			rank:   2,
		},
		"noise full rank": {
			series: noiseSeries(30, 3),
			window: 7,
			rank:   7,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := Embed(td.series, td.window)
			require.NoError(t, err)

			b, err := Decompose(x, td.rank)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.rank, b.Rank())
			assert.Equal(t, td.window, b.Window())

			// descending magnitude
			for i := 1; i < b.Rank(); i++ {
				assert.GreaterOrEqual(t, math.Abs(b.Values[i-1]), math.Abs(b.Values[i]))
			}

			// orthonormal columns
			var gram mat.Dense
			gram.Mul(b.Vectors.T(), b.Vectors)
			for i := 0; i < td.rank; i++ {
				for j := 0; j < td.rank; j++ {
					expected := 0.0
					if i == j {
						expected = 1.0
					}
					assert.InDelta(t, expected, gram.At(i, j), 1e-9)
				}
			}
		})
	}
}

func TestSelectRank(t *testing.T) {
	testData := map[string]struct {
		series   []float64
		energy   float64
		maxRank  int
		expected int
		err      error
	}{
		"constant": {
			series:   sineSeries(30, 7, 0, 5),
			energy:   0.95,
			maxRank:  6,
			expected: 1,
		},
		"sine wave": {
			series:   sineSeries(40, 7, 1, 0),
			energy:   0.99,
			maxRank:  6,
			expected: 2,
		},
		"level with sine wave": {
			series:   sineSeries(40, 7, 1, 5),
			energy:   0.95,
			maxRank:  6,
			expected: 3,
		},
		"level with sine wave capped": {
			series:   sineSeries(40, 7, 1, 5),
			energy:   0.95,
			maxRank:  2,
			expected: 2,
		},
		"capped": {
			series:   noiseSeries(40, 7),
			energy:   1.0,
			maxRank:  3,
			expected: 3,
		},
		"all zeros": {
			series:  make([]float64, 30),
			energy:  0.95,
			maxRank: 6,
			err:     ErrDegenerate,
		},
		"invalid energy": {
			series:  sineSeries(30, 7, 1, 0),
			energy:  0,
			maxRank: 6,
			err:     ErrInvalidConfig,
		},
		"invalid max rank": {
			series:  sineSeries(30, 7, 1, 0),
			energy:  0.9,
			maxRank: 0,
			err:     ErrInvalidConfig,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := Embed(td.series, 7)
			require.NoError(t, err)

			rank, err := SelectRank(x, td.energy, td.maxRank)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, rank)
		})
	}
}

func TestRecurrenceCoefficients(t *testing.T) {
	testData := map[string]struct {
		series []float64
		rank   int
	}{
		"constant":  {series: sineSeries(30, 7, 0, 5), rank: 1},
		"sine wave": {series: sineSeries(30, 7, 3, 0), rank: 2},
		"linear trend": {
			series: func() []float64 {
				y := make([]float64, 30)
				for i := range y {
					y[i] = 2.0 + 0.5*float64(i)
				}
				return y
			}(),
			rank: 2,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := Embed(td.series, 7)
			require.NoError(t, err)
			b, err := Decompose(x, td.rank)
			require.NoError(t, err)

			coef, err := RecurrenceCoefficients(b)
			require.NoError(t, err)
			require.Len(t, coef, 6)

			// a series lying in the subspace is reproduced exactly by its recurrence
			for i := 6; i < len(td.series); i++ {
				assert.InDelta(t, td.series[i], Next(coef, td.series[:i]), 1e-8)
			}
		})
	}
}

func TestRecurrenceCoefficientsConstant(t *testing.T) {
	x, err := Embed(sineSeries(30, 7, 0, 5), 7)
	require.NoError(t, err)
	b, err := Decompose(x, 1)
	require.NoError(t, err)

	coef, err := RecurrenceCoefficients(b)
	require.NoError(t, err)
	for _, c := range coef {
		assert.InDelta(t, 1.0/6.0, c, 1e-12)
	}
}

func TestRecurrenceCoefficientsVertical(t *testing.T) {
	x, err := Embed(noiseSeries(30, 11), 7)
	require.NoError(t, err)
	b, err := Decompose(x, 7)
	require.NoError(t, err)

	_, err = RecurrenceCoefficients(b)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = RecurrenceCoefficients(&Basis{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDeterminism(t *testing.T) {
	series := noiseSeries(60, 5)
	for i := range series {
		series[i] += 10 * math.Sin(2*math.Pi*float64(i)/7)
	}

	fit := func() []float64 {
		x, err := Embed(series, 7)
		require.NoError(t, err)
		b, err := Decompose(x, 3)
		require.NoError(t, err)
		coef, err := RecurrenceCoefficients(b)
		require.NoError(t, err)
		return coef
	}
	assert.InDeltaSlice(t, fit(), fit(), 1e-9)
}

func TestReconstruct(t *testing.T) {
	series := sineSeries(30, 7, 2, 1)
	x, err := Embed(series, 7)
	require.NoError(t, err)
	b, err := Decompose(x, 3)
	require.NoError(t, err)

	recon, err := Reconstruct(series, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, series, recon, 1e-9)

	_, err = Reconstruct(series[:5], b)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDrift(t *testing.T) {
	series := sineSeries(30, 7, 2, 0)
	x, err := Embed(series, 7)
	require.NoError(t, err)
	b, err := Decompose(x, 2)
	require.NoError(t, err)

	inside, err := Drift(series[10:17], b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, inside, 1e-9)

	zero, err := Drift(make([]float64, 7), b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)

	outside, err := Drift([]float64{1, -1, 1, -1, 1, -1, 1}, b)
	require.NoError(t, err)
	assert.Greater(t, outside, 0.5)

	_, err = Drift([]float64{1, 2}, b)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
