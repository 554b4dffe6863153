// Package logging builds the zap loggers used by the runner and command line.
package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrUnknownFormat = errors.New("unknown log format")

func NewDevLogger() *zap.Logger {
	logger, err := New("debug", "console")
	if err != nil {
		panic(err)
	}
	return logger
}

func NewProdLogger() *zap.Logger {
	logger, err := New("info", "json")
	if err != nil {
		panic(err)
	}
	return logger
}

// New builds a logger at the level with either a json or console encoder
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("%q, %w", format, ErrUnknownFormat)
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("unable to parse log level, %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	return cfg.Build()
}
