package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "DEMANDCAST"

// Load reads the yaml file at path over the defaults, then applies DEMANDCAST_ environment
// overrides such as DEMANDCAST_MODEL_HORIZON. An empty path looks for demandcast.yaml in the
// working directory and falls back to defaults when none is found.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("demandcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config, %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so environment overrides apply even when the file omits it
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.dsn", d.Source.DSN)
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("source.table", d.Source.Table)
	v.SetDefault("source.time_column", d.Source.TimeColumn)
	v.SetDefault("source.year_column", d.Source.YearColumn)
	v.SetDefault("source.value_column", d.Source.ValueColumn)
	v.SetDefault("source.from", d.Source.From)
	v.SetDefault("source.to", d.Source.To)

	v.SetDefault("model.window_size", d.Model.WindowSize)
	v.SetDefault("model.series_length", d.Model.SeriesLength)
	v.SetDefault("model.train_size", d.Model.TrainSize)
	v.SetDefault("model.horizon", d.Model.Horizon)
	v.SetDefault("model.confidence_level", d.Model.ConfidenceLevel)
	v.SetDefault("model.rank", d.Model.Rank)
	v.SetDefault("model.energy_threshold", d.Model.EnergyThreshold)
	v.SetDefault("model.drift_threshold", d.Model.DriftThreshold)

	v.SetDefault("split.year", d.Split.Year)
	v.SetDefault("split.update_with_holdout", d.Split.UpdateWithHoldout)

	v.SetDefault("checkpoint.uri", d.Checkpoint.URI)
	v.SetDefault("checkpoint.dest", d.Checkpoint.Dest)

	v.SetDefault("report.formats", d.Report.Formats)
	v.SetDefault("report.floor", d.Report.Floor)
	v.SetDefault("report.no_floor", d.Report.NoFloor)
	v.SetDefault("report.html_path", d.Report.HTMLPath)
	v.SetDefault("report.indent", d.Report.Indent)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}
