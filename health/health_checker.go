// Package health provides health checking functionality for the medication safety API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/medsafe-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.CatalogStore
	now       func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.CatalogStore) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		now:       time.Now,
	}
}

// HealthCheck returns HTTP-specific health data. Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	cat := h.dataStore.GetCatalog()
	report := h.dataStore.GetDataQualityReport()
	lastUpdate := h.dataStore.GetLastUpdated()
	startTime := h.dataStore.GetServerStartTime()
	isUpdating := h.dataStore.IsUpdating()
	now := h.now()

	var duplicates, dangling int
	if report != nil {
		duplicates = len(report.DuplicateIDs)
		dangling = len(report.DanglingInteractions)
	}

	switch {
	case cat.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	// still serving, but some verdicts may miss an interaction
	case duplicates > 0 || dangling > 0:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"drugs":                 cat.Len(),
		"is_updating":           isUpdating,
		"duplicate_ids":         duplicates,
		"dangling_interactions": dangling,
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(now.Sub(lastUpdate).Hours()*10) / 10
	}
	if !startTime.IsZero() {
		data["uptime_seconds"] = math.Round(now.Sub(startTime).Seconds())
	}

	return status, data, httpStatus
}
