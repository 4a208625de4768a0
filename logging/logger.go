// Package logging wires slog to the console and to daily log files.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/giygas/medsafe-api/config"
)

const pruneInterval = 24 * time.Hour

// Options controls how NewLogger builds its handlers
type Options struct {
	LogDir        string // empty disables the file handler
	Env           config.Environment
	Level         string
	RetentionDays int
	Verbose       bool
	Console       io.Writer // defaults to os.Stdout
}

// parseLogLevel maps a LOG_LEVEL value to a slog level. Unknown values fall
// back to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level for an environment.
// Tests stay quiet unless verbose is set; elsewhere an explicit level wins.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelDebug
		}
		return slog.LevelError
	}

	if strings.TrimSpace(level) != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is the level of the JSON file handler, which always keeps
// everything for later inspection.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds a console text logger, teeing JSON lines into a daily file
// when opts.LogDir is set. The returned closer releases the file.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.LogDir == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	retention := opts.RetentionDays
	if retention <= 0 {
		retention = 28
	}

	writer, err := NewDailyFileWriter(opts.LogDir, retention)
	if err != nil {
		return slog.New(consoleHandler), nopCloser{}, err
	}
	if _, err := writer.Prune(); err != nil {
		slog.New(consoleHandler).Warn("Failed to prune old logs", "error", err)
	}
	writer.StartPruning(pruneInterval)

	fileHandler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), writer, nil
}

// multiHandler fans a record out to every handler that accepts its level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(f func(slog.Handler) slog.Handler) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = f(h)
	}
	return &multiHandler{handlers: out}
}
