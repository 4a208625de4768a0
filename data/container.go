// Package data provides thread-safe storage for the medication safety API:
// the DataContainer holding the current catalog snapshot, swapped atomically
// on reload, and the in-memory CabinetStore of user-owned medicines.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/interfaces"
	"github.com/giygas/medsafe-api/logging"
)

// Compile-time check to ensure DataContainer implements CatalogStore
var _ interfaces.CatalogStore = (*DataContainer)(nil)

// snapshot pairs a catalog with the report computed for it, so readers never
// see one without the other
type snapshot struct {
	catalog *catalog.Catalog
	report  *interfaces.DataQualityReport
}

// DataContainer holds the catalog with atomic pointers for zero-downtime updates
type DataContainer struct {
	current         atomic.Value // snapshot
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with an empty catalog
func NewDataContainer() *DataContainer {
	empty, _ := catalog.New(nil)
	dc := &DataContainer{}
	dc.current.Store(snapshot{catalog: empty, report: &interfaces.DataQualityReport{}})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func (dc *DataContainer) load() snapshot {
	if v := dc.current.Load(); v != nil {
		if s, ok := v.(snapshot); ok {
			return s
		}
	}

	logging.Warn("Catalog snapshot is empty or invalid")
	return snapshot{}
}

// GetCatalog returns the current catalog. Callers keep the snapshot they got
// even if a reload happens meanwhile.
func (dc *DataContainer) GetCatalog() *catalog.Catalog {
	return dc.load().catalog
}

// GetDataQualityReport returns the report of the current catalog
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	return dc.load().report
}

// GetLastUpdated returns the timestamp of the last catalog update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a catalog update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateCatalog atomically replaces the catalog and its report
func (dc *DataContainer) UpdateCatalog(cat *catalog.Catalog, report *interfaces.DataQualityReport) {
	if report == nil {
		report = &interfaces.DataQualityReport{}
	}
	dc.current.Store(snapshot{catalog: cat, report: report})
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a catalog update.
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a catalog update
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
