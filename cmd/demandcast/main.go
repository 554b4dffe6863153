package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/config"
	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/logging"
	"github.com/aouyang1/go-demandcast/metrics"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cpuProfile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "demandcast",
		Short: "Seasonal demand forecasting with singular spectrum analysis",
		Long: `Trains a singular spectrum analysis model on the training years of a rental series,
scores it on the held out years, checkpoints it, and prints a forecast with confidence bounds.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml), defaults to ./demandcast.yaml")
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "", "write a cpu profile to this directory")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(inspectCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// runCmd trains, evaluates, checkpoints, and forecasts
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Train on the training years, evaluate the holdout, checkpoint, and forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, r *demandcast.Runner) error {
				_, err := r.Run(ctx)
				return err
			})
		},
	}
}

// forecastCmd forecasts from the stored checkpoint without retraining
func forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Forecast from the stored checkpoint without retraining",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, r *demandcast.Runner) error {
				_, err := r.Forecast(ctx)
				return err
			})
		},
	}
}

// inspectCmd prints the stored model
func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the coefficients, spectrum, and scores of the stored checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			blob, err := store.Read(cmd.Context(), cfg.Checkpoint.Dest)
			if err != nil {
				return fmt.Errorf("unable to read checkpoint, %w", err)
			}
			f, err := forecast.Restore(blob)
			if err != nil {
				return err
			}
			model, err := f.Model()
			if err != nil {
				return err
			}
			return model.TablePrint(cmd.OutOrStdout(), "", "  ")
		},
	}
}

// withRunner loads the config, wires the collaborators, and hands a runner to fn. Metrics are
// written to the configured textfile whether or not fn succeeds.
func withRunner(ctx context.Context, fn func(context.Context, *demandcast.Runner) error) error {
	if cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfile), profile.Quiet).Stop()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m := metrics.New()
	opt, err := cfg.Options(logger, m)
	if err != nil {
		return err
	}

	src := newLazySource(cfg)
	defer src.Close()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sink, err := newSink(cfg, os.Stdout)
	if err != nil {
		return err
	}

	r, err := demandcast.New(opt, src, store, sink)
	if err != nil {
		return err
	}

	runErr := fn(ctx, r)
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("unable to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}
	return runErr
}
