// Package demandcast runs the demand forecasting pipeline: load observations, fit a singular
// spectrum analysis model on the training years, evaluate it on the holdout, checkpoint it, and
// emit a forecast with confidence bounds.
package demandcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-demandcast/datasource"
	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/score"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoSource = errors.New("no data source")
	ErrNoStore  = errors.New("no checkpoint store")
	ErrNoSink   = errors.New("no output sink")
)

// Source supplies observations for the query range
type Source interface {
	Load(ctx context.Context, q datasource.Query) ([]timedataset.Observation, error)
}

// Store persists opaque checkpoint blobs by destination
type Store interface {
	Write(ctx context.Context, blob []byte, dest string) error
	Read(ctx context.Context, dest string) ([]byte, error)
}

// Sink receives the outcome of a run
type Sink interface {
	Emit(ctx context.Context, out *Outcome) error
}

// Runner wires a source, a checkpoint store, and a sink around a forecast model. A Runner
// builds a new model per call and may be reused sequentially.
type Runner struct {
	opt    *Options
	src    Source
	store  Store
	sink   Sink
	logger *zap.Logger
}

// New creates a runner with the given options. If none are provided, a default is used.
func New(opt *Options, src Source, store Store, sink Sink) (*Runner, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate options, %w", err)
	}
	if src == nil {
		return nil, ErrNoSource
	}
	if store == nil {
		return nil, ErrNoStore
	}
	if sink == nil {
		return nil, ErrNoSink
	}

	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		opt:    opt,
		src:    src,
		store:  store,
		sink:   sink,
		logger: logger,
	}, nil
}

// Run trains, evaluates, checkpoints, and forecasts in one pass
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))

	out, err := r.run(ctx, logger, runID)
	redecompositions := 0
	if out != nil {
		redecompositions = out.Model.Redecompositions
	}
	r.opt.Metrics.ObserveRun(err, time.Now(), redecompositions)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *Runner) run(ctx context.Context, logger *zap.Logger, runID string) (*Outcome, error) {
	obs, err := r.src.Load(ctx, r.opt.Query)
	if err != nil {
		return nil, fmt.Errorf("unable to load observations, %w", err)
	}
	buf, err := timedataset.Load(obs)
	if err != nil {
		return nil, fmt.Errorf("unable to load series buffer, %w", err)
	}

	train, holdout := buf.Split(func(o timedataset.Observation) bool {
		return o.Year < r.opt.SplitYear
	})
	times := buf.Times()
	logger.Info("loaded observations",
		zap.Int("observations", buf.Len()),
		zap.Time("start", times.StartTime()),
		zap.Time("end", times.EndTime()),
		zap.Int("train_points", train.Len()),
		zap.Int("holdout_points", holdout.Len()),
		zap.Float64("split_year", r.opt.SplitYear),
	)

	f, err := forecast.New(r.opt.Forecast)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast, %w", err)
	}
	fitStart := time.Now()
	if err := f.Fit(train); err != nil {
		return nil, fmt.Errorf("unable to fit forecast, %w", err)
	}
	fitDur := time.Since(fitStart)
	r.opt.Metrics.ObserveFit(fitDur, train.Len(), f.Rank(), f.ResidualVariance())
	logger.Info("fit forecast",
		zap.Duration("fit_duration", fitDur),
		zap.Int("rank", f.Rank()),
		zap.Float64("residual_variance", f.ResidualVariance()),
		zap.Time("train_end", f.TrainEndTime()),
	)

	var evaluation *score.Report
	if holdout.Len() > 0 {
		res, err := f.Predict(holdout.Len())
		if err != nil {
			return nil, fmt.Errorf("unable to forecast holdout, %w", err)
		}
		report, err := score.Evaluate(holdout.Slice(), res.Point)
		if err != nil {
			return nil, fmt.Errorf("unable to evaluate holdout, %w", err)
		}
		evaluation = &report
		r.opt.Metrics.ObserveHoldout(report.MAE, report.RMSE, report.MAPE)
		logger.Info("evaluated holdout",
			zap.Int("holdout_points", holdout.Len()),
			zap.Float64("mae", report.MAE),
			zap.Float64("rmse", report.RMSE),
			zap.Float64("mape", report.MAPE),
		)
	} else {
		logger.Warn("no holdout observations, skipping evaluation")
	}

	blob, err := f.Checkpoint()
	if err != nil {
		return nil, fmt.Errorf("unable to checkpoint forecast, %w", err)
	}
	if err := r.store.Write(ctx, blob, r.opt.CheckpointDest); err != nil {
		return nil, fmt.Errorf("unable to write checkpoint, %w", err)
	}
	logger.Info("wrote checkpoint",
		zap.String("dest", r.opt.CheckpointDest),
		zap.Int("bytes", len(blob)),
	)

	if r.opt.UpdateWithHoldout {
		for _, o := range holdout.Observations() {
			if err := f.Update(o); err != nil {
				return nil, fmt.Errorf("unable to update forecast at %s, %w", o.Time, err)
			}
		}
		logger.Info("updated forecast with holdout",
			zap.Int("updates", holdout.Len()),
			zap.Int("redecompositions", f.Redecompositions()),
		)
	}

	out, err := r.predict(f, runID)
	if err != nil {
		return nil, err
	}
	out.Evaluation = evaluation
	out.Actual = alignActual(out.T, holdout.Observations())

	if err := r.sink.Emit(ctx, out); err != nil {
		return nil, fmt.Errorf("unable to emit outcome, %w", err)
	}
	logger.Info("emitted forecast",
		zap.Int("horizon", out.Forecast.Len()),
		zap.Time("forecast_start", out.T[0]),
	)
	return out, nil
}

// Forecast restores the checkpointed model and forecasts without retraining
func (r *Runner) Forecast(ctx context.Context) (*Outcome, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))

	blob, err := r.store.Read(ctx, r.opt.CheckpointDest)
	if err != nil {
		return nil, fmt.Errorf("unable to read checkpoint, %w", err)
	}
	f, err := forecast.Restore(blob)
	if err != nil {
		return nil, fmt.Errorf("unable to restore forecast, %w", err)
	}
	logger.Info("restored checkpoint",
		zap.String("dest", r.opt.CheckpointDest),
		zap.Time("last_time", f.LastTime()),
	)

	out, err := r.predict(f, runID)
	if err != nil {
		return nil, err
	}
	out.Actual = alignActual(out.T, nil)

	if err := r.sink.Emit(ctx, out); err != nil {
		return nil, fmt.Errorf("unable to emit outcome, %w", err)
	}
	return out, nil
}

func (r *Runner) predict(f *forecast.Forecast, runID string) (*Outcome, error) {
	horizon := f.Options().Horizon
	res, err := f.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast, %w", err)
	}
	model, err := f.Model()
	if err != nil {
		return nil, fmt.Errorf("unable to snapshot model, %w", err)
	}
	return &Outcome{
		RunID:    runID,
		Model:    model,
		T:        forecastTimes(f.LastTime(), f.Interval(), horizon),
		Forecast: res,
	}, nil
}
