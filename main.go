// Command medsafe-api serves drug matching, safety verdicts and per-user
// medicine cabinets over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/medsafe-api/catalogparser"
	"github.com/giygas/medsafe-api/config"
	"github.com/giygas/medsafe-api/data"
	"github.com/giygas/medsafe-api/handlers"
	"github.com/giygas/medsafe-api/health"
	"github.com/giygas/medsafe-api/inventory"
	"github.com/giygas/medsafe-api/logging"
	"github.com/giygas/medsafe-api/scheduler"
	"github.com/giygas/medsafe-api/server"
	"github.com/giygas/medsafe-api/validation"
	"github.com/joho/godotenv"
)

// loadEnvFile reads .env from the working directory, then from the
// executable's directory. A missing file is not an error.
func loadEnvFile() {
	if err := godotenv.Load(); err == nil {
		return
	}
	exe, err := os.Executable()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(exe), ".env"))
}

func main() {
	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logDir := "logs"
	if cfg.Env == config.EnvTest {
		logDir = ""
	}
	if err := logging.InitLoggerWithOptions(logging.Options{
		LogDir:        logDir,
		Env:           cfg.Env,
		Level:         cfg.LogLevel,
		RetentionDays: cfg.LogRetentionDays,
	}); err != nil {
		logging.Warn("File logging disabled", "error", err)
	}
	defer logging.Close()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"catalog_path", cfg.CatalogPath,
		"catalog_url_set", cfg.CatalogURL != "")

	// Data layer
	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())
	cabinetStore := data.NewCabinetStore()

	machine := inventory.New(inventory.Policy{
		ExpiringSoonDays:  cfg.ExpiryWarningDays,
		LowStockThreshold: cfg.LowStockThreshold,
		UnlockLead:        cfg.DoseUnlockLead(),
		CurrentWindow:     cfg.DoseCurrentWindow(),
	}, nil)
	cabinet := inventory.NewService(cabinetStore, dataContainer, machine)

	// Catalog loading and background jobs
	parser := catalogparser.NewCatalogParser(cfg.CatalogPath, cfg.CatalogURL)
	sched := scheduler.NewScheduler(dataContainer, parser, cabinet, scheduler.Options{
		RefreshInterval: time.Duration(cfg.CatalogRefreshMinutes) * time.Minute,
		SweepInterval:   time.Duration(cfg.CabinetSweepMinutes) * time.Minute,
	})
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		logging.Close()
		os.Exit(1)
	}
	defer sched.Stop()

	// HTTP layer
	healthChecker := health.NewHealthChecker(dataContainer)
	handler := handlers.NewHTTPHandler(dataContainer, validation.NewDataValidator(), healthChecker, cabinet, cfg.EvalConcurrency)
	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
	}
}
