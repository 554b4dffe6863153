// Package config loads the command line configuration from a yaml file and DEMANDCAST_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/datasource"
	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/metrics"
	"go.uber.org/zap"
)

var (
	ErrUnknownSource = errors.New("unknown source kind")
	ErrUnknownReport = errors.New("unknown report format")
	ErrMissingField  = errors.New("missing config field")
)

const (
	SourceDuckDB    = "duckdb"
	SourcePostgres  = "postgres"
	SourceCSV       = "csv"
	SourceSimulated = "simulated"

	ReportConsole = "console"
	ReportJSON    = "json"
	ReportHTML    = "html"
)

type Config struct {
	Source     SourceConfig     `mapstructure:"source"`
	Model      ModelConfig      `mapstructure:"model"`
	Split      SplitConfig      `mapstructure:"split"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Report     ReportConfig     `mapstructure:"report"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// SourceConfig picks where observations are loaded from. From and To are dates bounding the
// query, either may be empty.
type SourceConfig struct {
	Kind        string `mapstructure:"kind"`
	DSN         string `mapstructure:"dsn"`
	Path        string `mapstructure:"path"`
	Table       string `mapstructure:"table"`
	TimeColumn  string `mapstructure:"time_column"`
	YearColumn  string `mapstructure:"year_column"`
	ValueColumn string `mapstructure:"value_column"`
	From        string `mapstructure:"from"`
	To          string `mapstructure:"to"`
}

type ModelConfig struct {
	WindowSize      int     `mapstructure:"window_size"`
	SeriesLength    int     `mapstructure:"series_length"`
	TrainSize       int     `mapstructure:"train_size"`
	Horizon         int     `mapstructure:"horizon"`
	ConfidenceLevel float64 `mapstructure:"confidence_level"`
	Rank            int     `mapstructure:"rank"`
	EnergyThreshold float64 `mapstructure:"energy_threshold"`
	DriftThreshold  float64 `mapstructure:"drift_threshold"`
}

type SplitConfig struct {
	Year              float64 `mapstructure:"year"`
	UpdateWithHoldout bool    `mapstructure:"update_with_holdout"`
}

// CheckpointConfig locates the store by uri and the blob within it by dest
type CheckpointConfig struct {
	URI  string `mapstructure:"uri"`
	Dest string `mapstructure:"dest"`
}

type ReportConfig struct {
	Formats  []string `mapstructure:"formats"`
	Floor    float64  `mapstructure:"floor"`
	NoFloor  bool     `mapstructure:"no_floor"`
	HTMLPath string   `mapstructure:"html_path"`
	Indent   string   `mapstructure:"indent"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig names the node exporter textfile written after each command. Empty disables
// it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// DefaultConfig forecasts the simulated rentals and checkpoints to the working directory
func DefaultConfig() *Config {
	tbl := datasource.NewDefaultTableOptions()
	fc := forecast.NewDefaultOptions()
	return &Config{
		Source: SourceConfig{
			Kind:        SourceSimulated,
			Table:       tbl.Table,
			TimeColumn:  tbl.TimeColumn,
			YearColumn:  tbl.YearColumn,
			ValueColumn: tbl.ValueColumn,
		},
		Model: ModelConfig{
			WindowSize:      fc.WindowSize,
			SeriesLength:    fc.SeriesLength,
			TrainSize:       fc.TrainSize,
			Horizon:         fc.Horizon,
			ConfidenceLevel: fc.ConfidenceLevel,
			Rank:            fc.Rank,
			EnergyThreshold: fc.EnergyThreshold,
			DriftThreshold:  fc.DriftThreshold,
		},
		Split: SplitConfig{
			Year: demandcast.DefaultSplitYear,
		},
		Checkpoint: CheckpointConfig{
			URI:  ".",
			Dest: demandcast.DefaultCheckpointDest,
		},
		Report: ReportConfig{
			Formats:  []string{ReportConsole},
			HTMLPath: "forecast.html",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceSimulated:
	case SourceDuckDB, SourcePostgres:
		if c.Source.DSN == "" {
			return fmt.Errorf("source.dsn for %s, %w", c.Source.Kind, ErrMissingField)
		}
	case SourceCSV:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path for csv, %w", ErrMissingField)
		}
	default:
		return fmt.Errorf("%q, %w", c.Source.Kind, ErrUnknownSource)
	}
	if err := c.TableOptions().Validate(); err != nil {
		return fmt.Errorf("unable to validate source table, %w", err)
	}
	if c.Checkpoint.URI == "" {
		return fmt.Errorf("checkpoint.uri, %w", ErrMissingField)
	}
	for _, format := range c.Report.Formats {
		if !slices.Contains([]string{ReportConsole, ReportJSON, ReportHTML}, format) {
			return fmt.Errorf("%q, %w", format, ErrUnknownReport)
		}
	}
	if slices.Contains(c.Report.Formats, ReportHTML) && c.Report.HTMLPath == "" {
		return fmt.Errorf("report.html_path, %w", ErrMissingField)
	}

	// the runner checks the rest
	opt, err := c.Options(nil, nil)
	if err != nil {
		return err
	}
	return opt.Validate()
}

func (c *Config) TableOptions() *datasource.TableOptions {
	return &datasource.TableOptions{
		Table:       c.Source.Table,
		TimeColumn:  c.Source.TimeColumn,
		YearColumn:  c.Source.YearColumn,
		ValueColumn: c.Source.ValueColumn,
	}
}

func (c *Config) ForecastOptions() *forecast.Options {
	return &forecast.Options{
		WindowSize:      c.Model.WindowSize,
		SeriesLength:    c.Model.SeriesLength,
		TrainSize:       c.Model.TrainSize,
		Horizon:         c.Model.Horizon,
		ConfidenceLevel: c.Model.ConfidenceLevel,
		Rank:            c.Model.Rank,
		EnergyThreshold: c.Model.EnergyThreshold,
		DriftThreshold:  c.Model.DriftThreshold,
	}
}

// Query parses the source date bounds
func (c *Config) Query() (datasource.Query, error) {
	var q datasource.Query
	var err error
	if c.Source.From != "" {
		if q.From, err = time.Parse(time.DateOnly, c.Source.From); err != nil {
			return q, fmt.Errorf("unable to parse source.from, %w", err)
		}
	}
	if c.Source.To != "" {
		if q.To, err = time.Parse(time.DateOnly, c.Source.To); err != nil {
			return q, fmt.Errorf("unable to parse source.to, %w", err)
		}
	}
	return q, nil
}

// Options builds the runner options with the given logger and metrics, either may be nil
func (c *Config) Options(logger *zap.Logger, m *metrics.Metrics) (*demandcast.Options, error) {
	q, err := c.Query()
	if err != nil {
		return nil, err
	}
	return &demandcast.Options{
		Forecast:          c.ForecastOptions(),
		Query:             q,
		SplitYear:         c.Split.Year,
		CheckpointDest:    c.Checkpoint.Dest,
		UpdateWithHoldout: c.Split.UpdateWithHoldout,
		Logger:            logger,
		Metrics:           m,
	}, nil
}
