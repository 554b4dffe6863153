package demandcast

import (
	"fmt"

	"github.com/aouyang1/go-demandcast/datasource"
	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultSplitYear trains on the first year of history and holds out the rest
	DefaultSplitYear = 1.0

	DefaultCheckpointDest = "rentals-ssa.ckpt"
)

// Options configures a forecast run
type Options struct {
	Forecast *forecast.Options `json:"forecast"`
	Query    datasource.Query  `json:"query"`

	// SplitYear partitions observations. Years before it train the model and the remaining
	// years are held out for evaluation.
	SplitYear float64 `json:"split_year"`

	CheckpointDest string `json:"checkpoint_dest"`

	// UpdateWithHoldout streams the holdout through the model after evaluation so the final
	// forecast starts after the most recent observation instead of after the training span
	UpdateWithHoldout bool `json:"update_with_holdout"`

	Logger  *zap.Logger      `json:"-"`
	Metrics *metrics.Metrics `json:"-"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Forecast:       forecast.NewDefaultOptions(),
		SplitYear:      DefaultSplitYear,
		CheckpointDest: DefaultCheckpointDest,
	}
}

func (o *Options) Validate() error {
	if o.Forecast == nil {
		return fmt.Errorf("no forecast options, %w", forecast.ErrInvalidConfig)
	}
	if err := o.Forecast.Validate(); err != nil {
		return err
	}
	if o.CheckpointDest == "" {
		return fmt.Errorf("no checkpoint destination, %w", forecast.ErrInvalidConfig)
	}
	if !o.Query.From.IsZero() && !o.Query.To.IsZero() && !o.Query.From.Before(o.Query.To) {
		return fmt.Errorf("query from %s is not before to %s, %w", o.Query.From, o.Query.To, forecast.ErrInvalidConfig)
	}
	return nil
}
