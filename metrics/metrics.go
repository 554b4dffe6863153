// Package metrics records forecast run gauges on a private prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gauges describing the most recent forecast run
type Metrics struct {
	registry *prometheus.Registry

	HoldoutMAE       prometheus.Gauge
	HoldoutRMSE      prometheus.Gauge
	HoldoutMAPE      prometheus.Gauge
	ResidualVariance prometheus.Gauge
	Rank             prometheus.Gauge
	Redecompositions prometheus.Gauge
	TrainPoints      prometheus.Gauge
	FitDuration      prometheus.Gauge
	LastRun          prometheus.Gauge
	Runs             *prometheus.CounterVec
}

// New creates and registers all metrics on a new registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HoldoutMAE: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_holdout_mae",
			Help: "Mean absolute error of the forecast over the holdout span",
		}),
		HoldoutRMSE: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_holdout_rmse",
			Help: "Root mean squared error of the forecast over the holdout span",
		}),
		HoldoutMAPE: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_holdout_mape",
			Help: "Mean absolute percent error of the forecast over the holdout span",
		}),
		ResidualVariance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_residual_variance",
			Help: "Variance of the one step ahead training errors",
		}),
		Rank: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_rank",
			Help: "Number of eigen components retained by the model",
		}),
		Redecompositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_redecompositions",
			Help: "Updates that re-decomposed the retained window",
		}),
		TrainPoints: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_train_points",
			Help: "Observations in the training partition",
		}),
		FitDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_fit_duration_seconds",
			Help: "Wall time spent fitting the model",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_runs_total",
				Help: "Forecast runs by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObserveFit(d time.Duration, trainPoints, rank int, residualVariance float64) {
	if m == nil {
		return
	}
	m.FitDuration.Set(d.Seconds())
	m.TrainPoints.Set(float64(trainPoints))
	m.Rank.Set(float64(rank))
	m.ResidualVariance.Set(residualVariance)
}

func (m *Metrics) ObserveHoldout(mae, rmse, mape float64) {
	if m == nil {
		return
	}
	m.HoldoutMAE.Set(mae)
	m.HoldoutRMSE.Set(rmse)
	m.HoldoutMAPE.Set(mape)
}

// ObserveRun counts the run as ok or error and stamps the finish time
func (m *Metrics) ObserveRun(err error, finished time.Time, redecompositions int) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Runs.WithLabelValues(result).Inc()
	m.LastRun.Set(float64(finished.Unix()))
	m.Redecompositions.Set(float64(redecompositions))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry in the text exposition format for the node exporter
// textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
