// Package scheduler provides automated catalog reloads, cabinet sweeps and
// staleness monitoring for the medication safety API. Jobs run on gocron and
// work through injected interfaces.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/interfaces"
	"github.com/giygas/medsafe-api/inventory"
	"github.com/giygas/medsafe-api/logging"
	"github.com/giygas/medsafe-api/metrics"
	"github.com/giygas/medsafe-api/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// CabinetSweeper recomputes the state of every cabinet
type CabinetSweeper interface {
	Sweep() inventory.SweepResult
}

// Options sets the job intervals. Zero values fall back to the defaults.
type Options struct {
	RefreshInterval time.Duration // catalog reload, default 6h
	SweepInterval   time.Duration // cabinet sweep, default 1h
	StaleAfter      time.Duration // watchdog threshold, default 4 refresh intervals
}

// Scheduler handles catalog updates and cabinet sweeps using dependency injection
type Scheduler struct {
	dataStore interfaces.CatalogStore
	parser    interfaces.CatalogParser
	sweeper   CabinetSweeper
	validator interfaces.DataValidator
	opts      Options
	scheduler *gocron.Scheduler

	// touched only by the reload job, which runs in singleton mode
	lastModTime time.Time
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// sweeper may be nil when no cabinet store is wired.
func NewScheduler(dataStore interfaces.CatalogStore, parser interfaces.CatalogParser, sweeper CabinetSweeper, opts Options) *Scheduler {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 6 * time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Hour
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 4 * opts.RefreshInterval
	}
	return &Scheduler{
		dataStore: dataStore,
		parser:    parser,
		sweeper:   sweeper,
		validator: validation.NewDataValidator(),
		opts:      opts,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start loads the catalog once, then schedules the recurring jobs
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.updateCatalog(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}
	s.sweepCabinets()

	s.scheduler.WaitForScheduleAll()
	s.scheduler.SingletonModeAll()

	jobs := []struct {
		name     string
		interval time.Duration
		fn       func()
	}{
		{"catalog reload", s.opts.RefreshInterval, func() {
			if err := s.updateCatalog(); err != nil {
				logging.Error("Failed to update catalog", "error", err)
			}
		}},
		{"cabinet sweep", s.opts.SweepInterval, s.sweepCabinets},
		{"staleness watchdog", s.opts.RefreshInterval, s.checkStaleness},
	}

	for _, job := range jobs {
		if _, err := s.scheduler.Every(job.interval).Do(job.fn); err != nil {
			logging.Error("Failed to schedule job", "job", job.name, "error", err)
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started",
		"refresh_interval", s.opts.RefreshInterval.String(),
		"sweep_interval", s.opts.SweepInterval.String(),
	)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// updateCatalog reloads the catalog when its source changed. A failed
// reload keeps serving the previous snapshot.
func (s *Scheduler) updateCatalog() error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	modTime, err := s.parser.SourceModTime()
	switch {
	case err != nil:
		logging.Debug("Catalog modification time unavailable, reloading", "error", err)
	case !s.lastModTime.IsZero() && modTime.Equal(s.lastModTime):
		logging.Debug("Catalog unchanged, skipping reload", "mod_time", modTime.Format(time.RFC3339))
		metrics.RecordCatalogReload("unchanged", 0)
		return nil
	}

	start := time.Now()
	logging.Info("Starting catalog update", "at", start.Format(time.RFC3339))

	drugs, err := s.parser.ParseCatalog()
	if err != nil {
		metrics.RecordCatalogReload("failure", 0)
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(drugs) == 0 {
		metrics.RecordCatalogReload("failure", 0)
		return errors.New("catalog source holds no valid drugs")
	}

	report := s.validator.ReportDataQuality(drugs)
	logReport(report)

	cat, err := catalog.New(validation.DeduplicateDrugs(drugs))
	if err != nil {
		metrics.RecordCatalogReload("failure", 0)
		return fmt.Errorf("failed to index catalog: %w", err)
	}

	// Atomic swap, including the report
	s.dataStore.UpdateCatalog(cat, report)
	if !modTime.IsZero() {
		s.lastModTime = modTime
	}
	metrics.RecordCatalogReload("success", cat.Len())

	logging.Info("Catalog update completed", "duration", time.Since(start).String(), "drug_count", cat.Len())
	return nil
}

func logReport(report *interfaces.DataQualityReport) {
	if len(report.DuplicateIDs) > 0 {
		logging.Warn("Duplicate drug IDs detected, keeping the first record",
			"total", len(report.DuplicateIDs),
			"id_list", report.DuplicateIDs,
		)
	}
	if len(report.DanglingInteractions) > 0 {
		logging.Warn("Interactions referencing unknown drugs",
			"total", len(report.DanglingInteractions),
			"list", report.DanglingInteractions,
		)
	}
	if len(report.CombinationsWithoutIngredients) > 0 {
		logging.Warn("Combination drugs without ingredients",
			"total", len(report.CombinationsWithoutIngredients),
			"id_list", report.CombinationsWithoutIngredients,
		)
	}
}

// sweepCabinets recomputes every cabinet and publishes the totals
func (s *Scheduler) sweepCabinets() {
	if s.sweeper == nil {
		return
	}

	r := s.sweeper.Sweep()
	metrics.SetCabinetMedicines(r.Medicines, r.Expired, r.ExpiringSoon, r.LowStock)

	if r.Expired > 0 {
		logging.Warn("Expired medicines in cabinets", "expired", r.Expired, "users", r.Users)
	}
	logging.Debug("Cabinet sweep completed",
		"users", r.Users,
		"medicines", r.Medicines,
		"expiring_soon", r.ExpiringSoon,
		"low_stock", r.LowStock,
	)
}

// checkStaleness warns when the catalog has not been reloaded for too long
func (s *Scheduler) checkStaleness() {
	lastUpdate := s.dataStore.GetLastUpdated()
	if age := time.Since(lastUpdate); age > s.opts.StaleAfter {
		logging.Warn("Catalog hasn't been updated recently",
			"age", age.Round(time.Minute).String(),
			"threshold", s.opts.StaleAfter.String(),
		)
	}
}
