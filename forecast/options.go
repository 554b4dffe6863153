package forecast

import (
	"fmt"
	"io"

	"github.com/aouyang1/go-demandcast/forecast/util"
	"github.com/aouyang1/go-demandcast/ssa"
)

const (
	DefaultWindowSize      = 7
	DefaultSeriesLength    = 30
	DefaultTrainSize       = 365
	DefaultHorizon         = 7
	DefaultConfidenceLevel = 0.95
	DefaultEnergyThreshold = 0.95

	// DefaultDriftThreshold is the share of the newest lag vector energy that may fall outside
	// the fitted subspace before an update re-decomposes the window
	DefaultDriftThreshold = 0.1
)

// Options configures the embedding, training span, and forecast interval of a model.
type Options struct {
	// WindowSize is the embedding dimension of the trajectory matrix
	WindowSize int `json:"window_size"`

	// SeriesLength is the number of most recent values retained and decomposed
	SeriesLength int `json:"series_length"`

	// TrainSize is the number of most recent training values used to estimate the residual
	// variance. Zero uses every training value.
	TrainSize int `json:"train_size"`

	Horizon         int     `json:"horizon"`
	ConfidenceLevel float64 `json:"confidence_level"`

	// Rank is the number of eigen components kept. Zero keeps the leading component plus the
	// fewest following components holding EnergyThreshold of the remaining spectrum.
	Rank            int     `json:"rank"`
	EnergyThreshold float64 `json:"energy_threshold"`

	DriftThreshold float64 `json:"drift_threshold"`
}

// NewDefaultOptions returns options for daily data with a weekly embedding window
func NewDefaultOptions() *Options {
	return &Options{
		WindowSize:      DefaultWindowSize,
		SeriesLength:    DefaultSeriesLength,
		TrainSize:       DefaultTrainSize,
		Horizon:         DefaultHorizon,
		ConfidenceLevel: DefaultConfidenceLevel,
		EnergyThreshold: DefaultEnergyThreshold,
		DriftThreshold:  DefaultDriftThreshold,
	}
}

// Validate checks the relationships between the window, series length, training size, and
// horizon.
func (o *Options) Validate() error {
	if o == nil {
		return fmt.Errorf("no options, %w", ErrInvalidConfig)
	}
	if o.WindowSize < ssa.MinWindow {
		return fmt.Errorf("window size of %d is less than %d, %w", o.WindowSize, ssa.MinWindow, ErrInvalidConfig)
	}
	if o.SeriesLength <= o.WindowSize {
		return fmt.Errorf(
			"series length of %d must be greater than window size of %d, %w",
			o.SeriesLength, o.WindowSize, ErrInvalidConfig,
		)
	}
	if o.TrainSize != 0 && o.TrainSize < o.SeriesLength {
		return fmt.Errorf(
			"train size of %d must be at least the series length of %d, %w",
			o.TrainSize, o.SeriesLength, ErrInvalidConfig,
		)
	}
	if o.Horizon < 1 {
		return fmt.Errorf("horizon of %d is less than 1, %w", o.Horizon, ErrInvalidConfig)
	}
	if !(o.ConfidenceLevel > 0 && o.ConfidenceLevel < 1) {
		return fmt.Errorf("confidence level of %f must be within (0, 1), %w", o.ConfidenceLevel, ErrInvalidConfig)
	}
	if o.Rank < 0 || o.Rank >= o.WindowSize {
		return fmt.Errorf("rank of %d must be within [0, %d), %w", o.Rank, o.WindowSize, ErrInvalidConfig)
	}
	if o.Rank == 0 && !(o.EnergyThreshold > 0 && o.EnergyThreshold <= 1) {
		return fmt.Errorf("energy threshold of %f must be within (0, 1], %w", o.EnergyThreshold, ErrInvalidConfig)
	}
	if o.DriftThreshold < 0 {
		return fmt.Errorf("drift threshold of %f is negative, %w", o.DriftThreshold, ErrInvalidConfig)
	}
	return nil
}

func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	rank := "auto"
	if o.Rank > 0 {
		rank = fmt.Sprintf("%d", o.Rank)
	}
	if _, err := fmt.Fprintf(w, "%s%sWindow: %d    Series Length: %d    Train Size: %d\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		o.WindowSize, o.SeriesLength, o.TrainSize); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sHorizon: %d    Confidence: %.3f    Rank: %s    Drift Threshold: %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		o.Horizon, o.ConfidenceLevel, rank, o.DriftThreshold)
	return err
}
