// internal/logger/logger.go

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls where and how verbosely the process logs.
type Config struct {
	Level      string `yaml:"level"`
	Debug      bool   `yaml:"debug"`
	Output     string `yaml:"output"` // stdout | stderr
	TimeFormat string `yaml:"time_format"`

	// File is an optional append-only diagnostic log next to Output.
	File string `yaml:"file"`
}

// DefaultConfig mirrors the reference deployment: debug on, stdout + file.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Debug:  true,
		Output: "stdout",
		File:   "traffic_debug.log",
	}
}

// New builds a logger from cfg. The returned closer releases the file sink.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	level, err := parseLevel(cfg)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	closer := func() error { return nil }

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logger: open %s: %w", cfg.File, err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f.Close
	}

	l := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	return l, closer, nil
}

func parseLevel(cfg Config) (zerolog.Level, error) {
	if cfg.Debug {
		return zerolog.DebugLevel, nil
	}
	if cfg.Level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(cfg.Level)
}

// WithComponent tags every record from l with a component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// NewTestLogger creates a no-op logger for testing that discards all output.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
