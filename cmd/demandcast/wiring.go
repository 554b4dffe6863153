package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/checkpoint"
	"github.com/aouyang1/go-demandcast/config"
	"github.com/aouyang1/go-demandcast/datasource"
	"github.com/aouyang1/go-demandcast/report"
	"github.com/aouyang1/go-demandcast/timedataset"
)

// source is a data source the command owns and must close
type source interface {
	demandcast.Source
	io.Closer
}

type nopCloser struct {
	demandcast.Source
}

func (nopCloser) Close() error {
	return nil
}

func openSource(ctx context.Context, cfg *config.Config) (source, error) {
	tbl := cfg.TableOptions()
	switch cfg.Source.Kind {
	case config.SourceDuckDB:
		src, err := datasource.NewDuckDB(cfg.Source.DSN, tbl)
		if err != nil {
			return nil, fmt.Errorf("unable to open duckdb source, %w", err)
		}
		return src, nil
	case config.SourcePostgres:
		src, err := datasource.NewPostgres(ctx, cfg.Source.DSN, tbl)
		if err != nil {
			return nil, fmt.Errorf("unable to open postgres source, %w", err)
		}
		return src, nil
	case config.SourceCSV:
		return nopCloser{datasource.NewCSV(cfg.Source.Path, tbl)}, nil
	case config.SourceSimulated:
		return nopCloser{datasource.NewSimulated()}, nil
	default:
		return nil, fmt.Errorf("%q, %w", cfg.Source.Kind, config.ErrUnknownSource)
	}
}

// lazySource opens the configured source on the first Load, so commands that only read the
// checkpoint never connect to the database
type lazySource struct {
	cfg *config.Config
	src source
}

func newLazySource(cfg *config.Config) *lazySource {
	return &lazySource{cfg: cfg}
}

func (l *lazySource) Load(ctx context.Context, q datasource.Query) ([]timedataset.Observation, error) {
	if l.src == nil {
		src, err := openSource(ctx, l.cfg)
		if err != nil {
			return nil, err
		}
		l.src = src
	}
	return l.src.Load(ctx, q)
}

func (l *lazySource) Close() error {
	if l.src == nil {
		return nil
	}
	return l.src.Close()
}

func openStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	store, err := checkpoint.Open(ctx, cfg.Checkpoint.URI)
	if err != nil {
		return nil, fmt.Errorf("unable to open checkpoint store, %w", err)
	}
	return store, nil
}

// newSink builds one report per configured format, console and json write to w
func newSink(cfg *config.Config, w io.Writer) (demandcast.Sink, error) {
	var sinks report.Multi
	for _, format := range cfg.Report.Formats {
		switch format {
		case config.ReportConsole:
			sinks = append(sinks, report.NewConsole(w, &report.ConsoleOptions{
				Floor:   cfg.Report.Floor,
				NoFloor: cfg.Report.NoFloor,
			}))
		case config.ReportJSON:
			sinks = append(sinks, report.NewJSON(w, cfg.Report.Indent))
		case config.ReportHTML:
			sinks = append(sinks, report.NewHTML(cfg.Report.HTMLPath))
		default:
			return nil, fmt.Errorf("%q, %w", format, config.ErrUnknownReport)
		}
	}
	return sinks, nil
}
