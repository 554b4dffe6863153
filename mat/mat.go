// Package mat builds the gonum matrices used by the spectral decomposition
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch    = errors.New("column size mismatch")
	ErrEmptyMatrix    = errors.New("matrix has no elements")
	ErrWindowTooWide  = errors.New("window is not narrower than the series")
	ErrWindowTooSmall = errors.New("window must be at least one")
)

// NewDenseFromArray creates a dense matrix from a slice of rows
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if m == 0 || n <= 0 {
		return nil, ErrEmptyMatrix
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// NewHankel lays out every length window lag vector of the series as a column. The
// resulting matrix is window x (len(series)-window+1) and constant along anti-diagonals.
func NewHankel(series []float64, window int) (*mat.Dense, error) {
	if window < 1 {
		return nil, ErrWindowTooSmall
	}
	if window >= len(series) {
		return nil, fmt.Errorf("window %d with series length %d, %w", window, len(series), ErrWindowTooWide)
	}

	k := len(series) - window + 1
	data := make([]float64, window*k)
	for i := 0; i < window; i++ {
		copy(data[i*k:(i+1)*k], series[i:i+k])
	}
	return mat.NewDense(window, k, data), nil
}

// DiagonalAverage maps a window x k matrix back to a series of length window+k-1 by
// averaging each anti-diagonal.
func DiagonalAverage(x mat.Matrix) []float64 {
	l, k := x.Dims()
	n := l + k - 1
	sums := make([]float64, n)
	counts := make([]float64, n)
	for i := 0; i < l; i++ {
		for j := 0; j < k; j++ {
			sums[i+j] += x.At(i, j)
			counts[i+j]++
		}
	}
	for i := range sums {
		sums[i] /= counts[i]
	}
	return sums
}
