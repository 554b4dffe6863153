// Package forecast fits a singular spectrum analysis model on a univariate series and produces
// recurrent forecasts with normal confidence intervals.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-demandcast/score"
	"github.com/aouyang1/go-demandcast/ssa"
	"github.com/aouyang1/go-demandcast/stats"
	"github.com/aouyang1/go-demandcast/timedataset"
)

var (
	ErrUnfit             = errors.New("forecast has not been fit yet")
	ErrInsufficientData  = errors.New("insufficient training data")
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

	ErrInvalidConfig = ssa.ErrInvalidConfig
	ErrDegenerate    = ssa.ErrDegenerate
)

// State tracks the lifecycle of a Forecast
type State int

const (
	StateUnfit State = iota
	StateFitted
	StateCheckpointed
)

func (s State) String() string {
	switch s {
	case StateUnfit:
		return "unfit"
	case StateFitted:
		return "fitted"
	case StateCheckpointed:
		return "checkpointed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Forecast is a singular spectrum analysis model over the most recent SeriesLength values of a
// series. A Forecast is not safe for concurrent use; callers must serialize Fit, Update,
// Predict, and Checkpoint.
type Forecast struct {
	opt   *Options
	state State

	basis *ssa.Basis
	coef  []float64

	window []float64 // most recent SeriesLength observed values
	recon  []float64 // rank reduced reconstruction of window

	residual stats.RunningVariance

	trainEndTime     time.Time
	lastTime         time.Time
	interval         time.Duration
	scores           *score.Report
	redecompositions int
}

// New creates a new unfit forecast with the given options. If none are provided, a default
// is used
func New(opt *Options) (*Forecast, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	o := *opt
	return &Forecast{opt: &o}, nil
}

func (f *Forecast) fitted() bool {
	return f != nil && (f.state == StateFitted || f.state == StateCheckpointed)
}

// decompose embeds the window and derives the basis and recurrence. In automatic rank mode a
// vertical basis is retried with one fewer component until rank 1.
func (f *Forecast) decompose(window []float64) (*ssa.Basis, []float64, error) {
	x, err := ssa.Embed(window, f.opt.WindowSize)
	if err != nil {
		return nil, nil, err
	}

	auto := f.opt.Rank == 0
	rank := f.opt.Rank
	if auto {
		rank, err = ssa.SelectRank(x, f.opt.EnergyThreshold, f.opt.WindowSize-1)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to select rank, %w", err)
		}
	}

	for {
		basis, err := ssa.Decompose(x, rank)
		if err != nil {
			return nil, nil, err
		}
		coef, err := ssa.RecurrenceCoefficients(basis)
		if err == nil {
			return basis, coef, nil
		}
		if !auto || rank <= 1 || !errors.Is(err, ssa.ErrDegenerate) {
			return nil, nil, err
		}
		rank--
	}
}

// Fit decomposes the most recent SeriesLength training values and estimates the residual
// variance from one step ahead errors over the most recent TrainSize values.
func (f *Forecast) Fit(train *timedataset.Buffer) error {
	if f == nil || f.opt == nil {
		return ErrUnfit
	}
	if train.Len() < f.opt.SeriesLength {
		return fmt.Errorf(
			"got %d training points but need %d, %w",
			train.Len(), f.opt.SeriesLength, ErrInsufficientData,
		)
	}

	y := train.Slice()
	window := make([]float64, f.opt.SeriesLength)
	copy(window, y[len(y)-f.opt.SeriesLength:])

	basis, coef, err := f.decompose(window)
	if err != nil {
		return fmt.Errorf("unable to decompose training window, %w", err)
	}

	recon, err := ssa.Reconstruct(window, basis)
	if err != nil {
		return fmt.Errorf("unable to reconstruct training window, %w", err)
	}

	span := y
	if f.opt.TrainSize > 0 && f.opt.TrainSize < len(y) {
		span = y[len(y)-f.opt.TrainSize:]
	}
	lag := f.opt.WindowSize - 1
	actual := span[lag:]
	predicted := make([]float64, 0, len(actual))
	errs := make([]float64, 0, len(actual))
	for t := lag; t < len(span); t++ {
		yhat := ssa.Next(coef, span[:t])
		predicted = append(predicted, yhat)
		errs = append(errs, span[t]-yhat)
	}

	scores, err := score.Evaluate(actual, predicted)
	if err != nil {
		return fmt.Errorf("unable to score training fit, %w", err)
	}

	last, _ := train.Last()
	interval, err := train.Times().EstimateFreq()
	if err != nil {
		return fmt.Errorf("unable to infer sampling interval, %w", err)
	}

	f.basis = basis
	f.coef = coef
	f.window = window
	f.recon = recon
	f.residual = stats.NewRunningVariance(errs)
	f.scores = &scores
	f.trainEndTime = last.Time
	f.lastTime = last.Time
	f.interval = interval
	f.redecompositions = 0
	f.state = StateFitted
	return nil
}

// Update folds a new observation into the model. The one step ahead error of the observation
// updates the residual variance and the retained window shifts by one. The basis is kept
// unless the newest lag vector drifts outside it by more than DriftThreshold, in which case
// the window is decomposed from scratch.
func (f *Forecast) Update(obs timedataset.Observation) error {
	if !f.fitted() {
		return ErrUnfit
	}
	if !timedataset.Finite(obs.Value) {
		return fmt.Errorf(
			"observation at %s has non-finite value %f, %w",
			obs.Time, obs.Value, timedataset.ErrInvalidData,
		)
	}
	if !obs.Time.After(f.lastTime) {
		return fmt.Errorf(
			"observation at %s is not after %s, %w",
			obs.Time, f.lastTime, timedataset.ErrInvalidData,
		)
	}

	residual := f.residual
	residual.Add(obs.Value - ssa.Next(f.coef, f.window))

	window := make([]float64, len(f.window))
	copy(window, f.window[1:])
	window[len(window)-1] = obs.Value

	basis, coef := f.basis, f.coef
	drift, err := ssa.Drift(window[len(window)-f.opt.WindowSize:], basis)
	if err != nil {
		return fmt.Errorf("unable to compute drift, %w", err)
	}
	redecomposed := drift > f.opt.DriftThreshold
	if redecomposed {
		basis, coef, err = f.decompose(window)
		if err != nil {
			return fmt.Errorf("unable to re-decompose window, %w", err)
		}
	}

	recon, err := ssa.Reconstruct(window, basis)
	if err != nil {
		return fmt.Errorf("unable to reconstruct window, %w", err)
	}

	f.basis = basis
	f.coef = coef
	f.window = window
	f.recon = recon
	f.residual = residual
	f.lastTime = obs.Time
	if redecomposed {
		f.redecompositions++
	}
	f.state = StateFitted
	return nil
}

// Predict recurrently forecasts horizon steps past the retained window. The step k interval
// is point ± z*sqrt(k*residual variance) with z from the configured confidence level.
func (f *Forecast) Predict(horizon int) (*Result, error) {
	if !f.fitted() {
		return nil, ErrUnfit
	}
	if horizon < 1 {
		return nil, fmt.Errorf("horizon of %d is less than 1, %w", horizon, ErrInvalidConfig)
	}

	z, err := stats.ZScore(f.opt.ConfidenceLevel)
	if err != nil {
		return nil, fmt.Errorf("unable to compute z score, %w", err)
	}
	variance := f.residual.Variance()

	lag := len(f.coef)
	history := make([]float64, lag, lag+horizon)
	copy(history, f.recon[len(f.recon)-lag:])

	res := &Result{
		Point: make([]float64, horizon),
		Lower: make([]float64, horizon),
		Upper: make([]float64, horizon),
	}
	for k := 1; k <= horizon; k++ {
		yhat := ssa.Next(f.coef, history)
		history = append(history, yhat)

		margin := z * math.Sqrt(float64(k)*variance)
		res.Point[k-1] = yhat
		res.Lower[k-1] = yhat - margin
		res.Upper[k-1] = yhat + margin
	}
	return res, nil
}

// State returns the lifecycle state of the forecast
func (f *Forecast) State() State {
	if f == nil {
		return StateUnfit
	}
	return f.state
}

// Options returns a copy of the forecast options
func (f *Forecast) Options() Options {
	if f == nil || f.opt == nil {
		return Options{}
	}
	return *f.opt
}

// Coefficients returns the recurrence coefficients ordered oldest lag first
func (f *Forecast) Coefficients() []float64 {
	if f == nil {
		return nil
	}
	return append([]float64(nil), f.coef...)
}

// Eigenvalues returns the eigenvalues of the retained components
func (f *Forecast) Eigenvalues() []float64 {
	if f == nil || f.basis == nil {
		return nil
	}
	return append([]float64(nil), f.basis.Values...)
}

func (f *Forecast) Rank() int {
	if f == nil {
		return 0
	}
	return f.basis.Rank()
}

// ResidualVariance is the sample variance of the one step ahead errors seen so far
func (f *Forecast) ResidualVariance() float64 {
	if f == nil {
		return 0
	}
	return f.residual.Variance()
}

// Window returns a copy of the retained values
func (f *Forecast) Window() []float64 {
	if f == nil {
		return nil
	}
	return append([]float64(nil), f.window...)
}

func (f *Forecast) TrainEndTime() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.trainEndTime
}

// LastTime is the time of the most recent value in the retained window
func (f *Forecast) LastTime() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.lastTime
}

// Interval is the sampling interval inferred from the training times
func (f *Forecast) Interval() time.Duration {
	if f == nil {
		return 0
	}
	return f.interval
}

// Scores returns the in-sample one step ahead scores from the fit
func (f *Forecast) Scores() score.Report {
	if f == nil || f.scores == nil {
		return score.Report{}
	}
	return *f.scores
}

// Redecompositions counts the updates that re-decomposed the window since the fit
func (f *Forecast) Redecompositions() int {
	if f == nil {
		return 0
	}
	return f.redecompositions
}
