package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/medsafe-api/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestGetConsoleLogLevel(t *testing.T) {
	testCases := []struct {
		name     string
		env      config.Environment
		level    string
		verbose  bool
		expected slog.Level
	}{
		{"test env is quiet", config.EnvTest, "", false, slog.LevelError},
		{"test env ignores override", config.EnvTest, "debug", false, slog.LevelError},
		{"test env verbose", config.EnvTest, "", true, slog.LevelDebug},
		{"dev default", config.EnvDevelopment, "", false, slog.LevelInfo},
		{"prod default", config.EnvProduction, "", false, slog.LevelWarn},
		{"staging default", config.EnvStaging, "", false, slog.LevelWarn},
		{"prod override", config.EnvProduction, "debug", false, slog.LevelDebug},
		{"unknown level", config.EnvDevelopment, "loud", false, slog.LevelInfo},
		{"warning alias", config.EnvDevelopment, "WARNING", false, slog.LevelWarn},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetConsoleLogLevel(tc.env, tc.level, tc.verbose); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}

	if GetFileLogLevel() != slog.LevelDebug {
		t.Error("File handler should log at debug")
	}
}

func TestNewLoggerWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer, err := NewLogger(Options{
		LogDir:        dir,
		Env:           config.EnvProduction,
		RetentionDays: 7,
		Console:       &console,
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("debug only in file", "drug", "amoxicillin")
	logger.Warn("warn in both")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if strings.Contains(console.String(), "debug only in file") {
		t.Error("Console should not receive debug records in prod")
	}
	if !strings.Contains(console.String(), "warn in both") {
		t.Error("Console should receive warn records")
	}

	path := filepath.Join(dir, fileNameForDay(time.Now().Format(dayLayout)))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected today's log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 JSON lines, got %d: %s", len(lines), data)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("File line is not JSON: %v", err)
	}
	if record["drug"] != "amoxicillin" {
		t.Errorf("Expected attribute in file record, got %v", record)
	}
}

func TestDailyFileWriterRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDailyFileWriter(dir, 3)
	if err != nil {
		t.Fatalf("NewDailyFileWriter failed: %v", err)
	}
	defer w.Close()

	day := time.Date(2026, 3, 10, 23, 59, 0, 0, time.Local)
	w.now = func() time.Time { return day }

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	day = day.Add(2 * time.Minute)
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, d := range []string{"2026-03-10", "2026-03-11"} {
		if _, err := os.Stat(filepath.Join(dir, fileNameForDay(d))); err != nil {
			t.Errorf("Expected file for %s: %v", d, err)
		}
	}

	old := filepath.Join(dir, fileNameForDay("2026-03-01"))
	if err := os.WriteFile(old, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("keep\n"), 0644); err != nil {
		t.Fatal(err)
	}

	removed, err := w.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected old log file to be pruned")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("Prune should leave unrelated files alone")
	}
	// only the 2026-03-01 file falls outside the three day window
	if removed != 1 {
		t.Errorf("Expected 1 removed file, got %d", removed)
	}
}

func TestDailyFileWriterCloseIsIdempotent(t *testing.T) {
	w, err := NewDailyFileWriter(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewDailyFileWriter failed: %v", err)
	}
	w.StartPruning(time.Hour)
	w.StartPruning(time.Hour)

	if err := w.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if _, err := w.Write([]byte("late\n")); err == nil {
		t.Error("Expected write after close to fail")
	}
}

func TestNewDailyFileWriterRejectsBadRetention(t *testing.T) {
	if _, err := NewDailyFileWriter(t.TempDir(), 0); err == nil {
		t.Error("Expected error for zero retention")
	}
}

func TestPackageFunctionsWithoutInit(t *testing.T) {
	mu.Lock()
	saved := DefaultLoggingService
	DefaultLoggingService = nil
	mu.Unlock()
	defer func() {
		mu.Lock()
		DefaultLoggingService = saved
		mu.Unlock()
	}()

	// Must not panic
	Info("info")
	Warn("warn")
	Error("error")
	Debug("debug")
}

func TestInitLoggerConsoleOnly(t *testing.T) {
	InitLogger("")
	defer Close()

	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		t.Fatal("Expected global logger to be set")
	}
	if slog.Default() != DefaultLoggingService.Logger {
		t.Error("Expected slog default to be replaced")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(logger))
	r.Get("/v1/drugs/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if buf.Len() != 0 {
		t.Errorf("Health checks should not be logged, got %s", buf.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/drugs/nope", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("Expected WARN for 404, got %v", entry["level"])
	}
	if entry["route"] != "/v1/drugs/{id}" {
		t.Errorf("Expected route pattern, got %v", entry["route"])
	}
	if entry["status_code"] != float64(http.StatusNotFound) {
		t.Errorf("Expected status 404, got %v", entry["status_code"])
	}
	if id, _ := entry["request_id"].(string); id == "" || id == "unknown" {
		t.Errorf("Expected request id, got %v", entry["request_id"])
	}
}
