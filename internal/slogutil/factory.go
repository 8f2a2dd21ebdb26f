package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"slnprune/internal/config"
)

// LoggerFactory builds the run logger from configuration and CLI flags.
// Precedence: CLI verbosity flags > logging.level in config.
type LoggerFactory struct {
	config   *config.Config
	console  io.Writer
	cliLevel slog.Level
	cliSet   bool
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory writing console output to w.
// cliSet should be false if no verbosity flag was given.
func NewLoggerFactory(cfg *config.Config, w io.Writer, cliLevel slog.Level, cliSet bool) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if w == nil {
		w = os.Stderr
	}
	return &LoggerFactory{
		config:   cfg,
		console:  w,
		cliLevel: cliLevel,
		cliSet:   cliSet,
	}
}

// RunLogger returns the logger for a pruning run. When logging.file is
// configured the records are also appended to that file at debug level.
// A log file that cannot be opened is ignored and console logging continues.
func (f *LoggerFactory) RunLogger() *slog.Logger {
	console := NewLineHandler(f.console, &slog.HandlerOptions{Level: f.effectiveLevel()})

	if f.config.Logging.File == "" {
		return slog.New(console)
	}

	if err := os.MkdirAll(filepath.Dir(f.config.Logging.File), 0755); err != nil {
		return slog.New(console)
	}
	file, err := os.OpenFile(f.config.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return slog.New(console)
	}
	f.closers = append(f.closers, file)

	fileHandler := NewLineHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewTeeHandler(console, fileHandler))
}

func (f *LoggerFactory) effectiveLevel() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelWarn
}

// Close closes any log files opened by the factory.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
