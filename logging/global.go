package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/giygas/medsafe-api/config"
)

type LoggingService struct {
	Logger *slog.Logger
	closer io.Closer
}

var (
	DefaultLoggingService *LoggingService
	mu                    sync.Mutex
)

// InitLogger initializes the global logger. An empty logDir logs to the
// console only, which is what tests use.
func InitLogger(logDir string) {
	env := config.EnvDevelopment
	if logDir == "" {
		env = config.EnvTest
	}
	if err := InitLoggerWithOptions(Options{LogDir: logDir, Env: env, RetentionDays: 28}); err != nil {
		Warn("Falling back to console logging", "error", err)
	}
}

// InitLoggerWithOptions replaces the global logger, closing the previous one.
// On a file error the console logger is still installed and the error returned.
func InitLoggerWithOptions(opts Options) error {
	logger, closer, err := NewLogger(opts)

	mu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = &LoggingService{Logger: logger, closer: closer}
	mu.Unlock()

	slog.SetDefault(logger)

	if previous != nil && previous.closer != nil {
		_ = previous.closer.Close()
	}
	return err
}

// Close flushes and closes the log file, if any
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if DefaultLoggingService != nil && DefaultLoggingService.closer != nil {
		_ = DefaultLoggingService.closer.Close()
		DefaultLoggingService.closer = nil
	}
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or slog's default before InitLogger
func Logger() *slog.Logger {
	if l := current(); l != nil {
		return l
	}
	return slog.Default()
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if l := current(); l != nil {
		l.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if l := current(); l != nil {
		l.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if l := current(); l != nil {
		l.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Debug(msg string, args ...any) {
	if l := current(); l != nil {
		l.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
