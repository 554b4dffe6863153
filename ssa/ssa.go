// Package ssa implements the singular spectrum analysis steps used for forecasting: embedding a
// series into a trajectory matrix, eigen-decomposing its lag covariance, and deriving the
// linear recurrence that extrapolates the signal subspace.
package ssa

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aouyang1/go-demandcast/floatsunrolled"
	mat_ "github.com/aouyang1/go-demandcast/mat"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidConfig = errors.New("invalid decomposition configuration")
	ErrDegenerate    = errors.New("degenerate decomposition")
)

const (
	// MinWindow is the smallest embedding dimension that yields a recurrence
	MinWindow = 2

	// RankTolerance is the fraction of the largest eigenvalue magnitude below which an
	// eigenvalue is treated as zero
	RankTolerance = 1e-10

	// VerticalityTolerance keeps 1-ν² away from zero in the recurrence normalization
	VerticalityTolerance = 1e-9
)

// Basis is the retained signal subspace. Vectors holds one unit eigenvector per column,
// ordered by descending eigenvalue magnitude to match Values.
type Basis struct {
	Vectors *mat.Dense
	Values  []float64
}

// Window is the embedding dimension of the basis
func (b *Basis) Window() int {
	if b == nil || b.Vectors == nil {
		return 0
	}
	r, _ := b.Vectors.Dims()
	return r
}

// Rank is the number of retained components
func (b *Basis) Rank() int {
	if b == nil {
		return 0
	}
	return len(b.Values)
}

// Embed builds the window x (len(series)-window+1) trajectory matrix whose columns are the
// overlapping lag vectors of the series.
func Embed(series []float64, window int) (*mat.Dense, error) {
	if window < MinWindow {
		return nil, fmt.Errorf("window of %d is less than %d, %w", window, MinWindow, ErrInvalidConfig)
	}
	if window >= len(series) {
		return nil, fmt.Errorf(
			"window of %d must be less than series length of %d, %w",
			window, len(series), ErrInvalidConfig,
		)
	}
	return mat_.NewHankel(series, window)
}

// orderComponents returns eigenvalue indices sorted by descending magnitude. Equal magnitudes
// keep their original index order.
func orderComponents(vals []float64) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return math.Abs(vals[order[i]]) > math.Abs(vals[order[j]])
	})
	return order
}

// spectrum eigen-decomposes the lag covariance X*X'/K and returns the eigenvalues with their
// eigenvectors as columns, ordered by descending magnitude.
func spectrum(x mat.Matrix) ([]float64, *mat.Dense, error) {
	l, k := x.Dims()
	if l == 0 || k == 0 {
		return nil, nil, fmt.Errorf("empty trajectory matrix, %w", ErrInvalidConfig)
	}

	var cov mat.SymDense
	cov.SymOuterK(1.0/float64(k), x)

	var es mat.EigenSym
	if ok := es.Factorize(&cov, true); !ok {
		return nil, nil, fmt.Errorf("eigen decomposition did not converge, %w", ErrDegenerate)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	order := orderComponents(vals)
	sortedVals := make([]float64, l)
	sortedVecs := mat.NewDense(l, l, nil)
	col := make([]float64, l)
	for dst, src := range order {
		sortedVals[dst] = vals[src]
		mat.Col(col, src, &vecs)
		sortedVecs.SetCol(dst, col)
	}
	return sortedVals, sortedVecs, nil
}

// numNonZero counts the eigenvalues that are not negligible relative to the largest
func numNonZero(vals []float64) int {
	if len(vals) == 0 {
		return 0
	}
	maxAbs := math.Abs(vals[0])
	if maxAbs == 0 {
		return 0
	}
	var cnt int
	for _, v := range vals {
		if math.Abs(v) > maxAbs*RankTolerance {
			cnt++
		}
	}
	return cnt
}

// Decompose keeps the top rank eigen components of the trajectory matrix lag covariance.
func Decompose(x mat.Matrix, rank int) (*Basis, error) {
	l, _ := x.Dims()
	if rank < 1 || rank > l {
		return nil, fmt.Errorf("rank of %d must be within [1, %d], %w", rank, l, ErrInvalidConfig)
	}

	vals, vecs, err := spectrum(x)
	if err != nil {
		return nil, err
	}

	if nz := numNonZero(vals); nz < rank {
		return nil, fmt.Errorf("requested rank %d but matrix has rank %d, %w", rank, nz, ErrDegenerate)
	}

	return &Basis{
		Vectors: mat.DenseCopyOf(vecs.Slice(0, l, 0, rank)),
		Values:  vals[:rank:rank],
	}, nil
}

// SelectRank keeps the leading component and adds the smallest number of following components
// that hold at least the energy share of the spectrum left after the leading one, capped by
// maxRank and the numerical rank of the matrix. The leading component of an uncentered series is
// its level.
func SelectRank(x mat.Matrix, energy float64, maxRank int) (int, error) {
	if !(energy > 0 && energy <= 1) {
		return 0, fmt.Errorf("energy share of %f must be within (0, 1], %w", energy, ErrInvalidConfig)
	}
	if maxRank < 1 {
		return 0, fmt.Errorf("max rank of %d is less than 1, %w", maxRank, ErrInvalidConfig)
	}

	vals, _, err := spectrum(x)
	if err != nil {
		return 0, err
	}
	nz := numNonZero(vals)
	if nz == 0 {
		return 0, fmt.Errorf("trajectory matrix is all zeros, %w", ErrDegenerate)
	}

	var rest float64
	for i := 1; i < nz; i++ {
		rest += math.Abs(vals[i])
	}
	if rest == 0 {
		return 1, nil
	}

	rank := nz
	var cum float64
	for i := 1; i < nz; i++ {
		cum += math.Abs(vals[i])
		if cum >= energy*rest {
			rank = i + 1
			break
		}
	}
	return min(rank, maxRank), nil
}

// RecurrenceCoefficients derives the linear recurrence of the basis subspace. The returned
// window-1 coefficients are ordered oldest lag first so that the next value is their dot product
// with the previous window-1 values in time order.
func RecurrenceCoefficients(b *Basis) ([]float64, error) {
	l := b.Window()
	if l < MinWindow || b.Rank() == 0 {
		return nil, fmt.Errorf("basis window %d rank %d, %w", l, b.Rank(), ErrInvalidConfig)
	}

	var nu2 float64
	for i := 0; i < b.Rank(); i++ {
		pi := b.Vectors.At(l-1, i)
		nu2 += pi * pi
	}
	if nu2 >= 1-VerticalityTolerance {
		return nil, fmt.Errorf("verticality coefficient %f too close to 1, %w", nu2, ErrDegenerate)
	}

	coef := make([]float64, l-1)
	for i := 0; i < b.Rank(); i++ {
		pi := b.Vectors.At(l-1, i)
		for j := 0; j < l-1; j++ {
			coef[j] += pi * b.Vectors.At(j, i)
		}
	}
	floats.Scale(1.0/(1.0-nu2), coef)
	return coef, nil
}

// Next applies the recurrence to the tail of history to produce the following value. History
// must hold at least len(coef) values.
func Next(coef, history []float64) float64 {
	return floatsunrolled.Dot(coef, history[len(history)-len(coef):])
}

// Reconstruct projects the series trajectory matrix onto the basis and diagonally averages
// the result back into a series of the same length.
func Reconstruct(series []float64, b *Basis) ([]float64, error) {
	x, err := Embed(series, b.Window())
	if err != nil {
		return nil, err
	}

	var coords, proj mat.Dense
	coords.Mul(b.Vectors.T(), x)
	proj.Mul(b.Vectors, &coords)
	return mat_.DiagonalAverage(&proj), nil
}

// Drift is the share of the lag vector energy lying outside the basis subspace. It is 0 for a
// lag vector fully explained by the basis and for an all zero vector.
func Drift(lag []float64, b *Basis) (float64, error) {
	if len(lag) != b.Window() {
		return 0, fmt.Errorf("lag vector of length %d for window %d, %w", len(lag), b.Window(), ErrInvalidConfig)
	}
	norm2 := floatsunrolled.Dot(lag, lag)
	if norm2 == 0 {
		return 0, nil
	}

	x := mat.NewVecDense(len(lag), append([]float64(nil), lag...))
	var coords, proj mat.VecDense
	coords.MulVec(b.Vectors.T(), x)
	proj.MulVec(b.Vectors, &coords)

	resid := floatsunrolled.SubTo(nil, lag, proj.RawVector().Data)
	return floatsunrolled.Dot(resid, resid) / norm2, nil
}
