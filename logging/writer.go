package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	logFilePrefix = "medsafe-"
	logFileSuffix = ".log"
	dayLayout     = "2006-01-02"
)

// DailyFileWriter writes log lines to one file per calendar day and prunes
// files older than the retention window.
type DailyFileWriter struct {
	dir       string
	retention time.Duration
	now       func() time.Time

	mu   sync.Mutex
	file *os.File
	day  string

	stop      chan struct{}
	done      chan struct{}
	pruning   bool
	closeOnce sync.Once
}

// NewDailyFileWriter creates dir if needed and opens today's file.
func NewDailyFileWriter(dir string, retentionDays int) (*DailyFileWriter, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %d days", retentionDays)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	w := &DailyFileWriter{
		dir:       dir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	w.mu.Lock()
	err := w.rotate(w.now().Format(dayLayout))
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return w, nil
}

func fileNameForDay(day string) string {
	return logFilePrefix + day + logFileSuffix
}

// rotate switches to the file for day. Caller must hold mu.
func (w *DailyFileWriter) rotate(day string) error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		w.file = nil
	}

	path := filepath.Join(w.dir, fileNameForDay(day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.file = f
	w.day = day
	return nil
}

// Write implements io.Writer, switching files at midnight.
func (w *DailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if day := w.now().Format(dayLayout); day != w.day {
		if err := w.rotate(day); err != nil {
			return 0, err
		}
	}
	if w.file == nil {
		return 0, fmt.Errorf("log file is closed")
	}
	return w.file.Write(p)
}

// Prune deletes log files whose day is older than the retention window and
// returns how many were removed.
func (w *DailyFileWriter) Prune() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := w.now().Add(-w.retention)
	removed := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}

		day, err := time.ParseInLocation(dayLayout, strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), logFileSuffix), time.Local)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(w.dir, name)); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// StartPruning runs Prune every interval until Close is called.
func (w *DailyFileWriter) StartPruning(interval time.Duration) {
	w.mu.Lock()
	if w.pruning {
		w.mu.Unlock()
		return
	}
	w.pruning = true
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				if n, err := w.Prune(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to prune old logs: %v\n", err)
				} else if n > 0 {
					// Console only, writing through slog here would recurse
					fmt.Printf("Cleaned up %d old log files\n", n)
				}
			}
		}
	}()
}

// Close stops pruning and closes the current file. It is safe to call more
// than once.
func (w *DailyFileWriter) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)

		w.mu.Lock()
		pruning := w.pruning
		w.mu.Unlock()
		if pruning {
			select {
			case <-w.done:
			case <-time.After(time.Second):
			}
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.file != nil {
			err = w.file.Close()
			w.file = nil
		}
	})
	return err
}
