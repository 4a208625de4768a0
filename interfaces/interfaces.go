// Package interfaces defines core abstractions for the medication safety API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/entities"
)

// DataQualityReport provides a summary of catalog data quality issues
type DataQualityReport struct {
	DuplicateIDs                   []string `json:"duplicate_ids"`
	DanglingInteractions           []string `json:"dangling_interactions"` // "drugID->missingID"
	CombinationsWithoutIngredients []string `json:"combinations_without_ingredients"`
	DrugsWithoutBrandNames         int      `json:"drugs_without_brand_names"`
	DrugsWithoutWarnings           int      `json:"drugs_without_warnings"`
}

// HasIntegrityIssues reports whether the catalog has problems that can
// change evaluation results. Safe on a nil receiver.
func (r *DataQualityReport) HasIntegrityIssues() bool {
	if r == nil {
		return false
	}
	return len(r.DuplicateIDs) > 0 || len(r.DanglingInteractions) > 0 || len(r.CombinationsWithoutIngredients) > 0
}

// CatalogStore defines the contract for the reference catalog container.
// It hands out immutable catalog snapshots and swaps them atomically.
type CatalogStore interface {
	GetCatalog() *catalog.Catalog
	GetDataQualityReport() *DataQualityReport
	GetLastUpdated() time.Time
	GetServerStartTime() time.Time
	IsUpdating() bool

	UpdateCatalog(cat *catalog.Catalog, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogParser loads drug records from the configured catalog source.
type CatalogParser interface {
	// ParseCatalog reads and converts every valid drug record
	ParseCatalog() ([]entities.Drug, error)

	// SourceModTime returns the modification time of the catalog source, used
	// to skip reloads when nothing changed
	SourceModTime() (time.Time, error)
}

// CabinetStore persists the owned medicines of every user. Each mutation is
// applied atomically per record.
type CabinetStore interface {
	Add(userID string, med entities.OwnedMedicine) error
	Get(userID, medicineID string) (entities.OwnedMedicine, error)
	List(userID string) []entities.OwnedMedicine
	Remove(userID, medicineID string) error
	Users() []string

	// DecrementTablets removes one tablet. When the count is already zero it
	// fails and leaves the record untouched, so at most one of several
	// concurrent callers can take the last tablet.
	DecrementTablets(userID, medicineID string) (remaining int, err error)

	// Restock adds tablets. A non-nil expiry that differs from the stored one
	// starts a new expiry cycle and clears ExpiryAlertShown.
	Restock(userID, medicineID string, tablets int, expiry *time.Time) (entities.OwnedMedicine, error)

	MarkExpiryAlertShown(userID, medicineID string) error
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	// Catalog and matching
	SearchDrugs(w http.ResponseWriter, r *http.Request)
	GetDrug(w http.ResponseWriter, r *http.Request)
	ScanText(w http.ResponseWriter, r *http.Request)
	EvaluateVerdicts(w http.ResponseWriter, r *http.Request)

	// Cabinet
	ListCabinet(w http.ResponseWriter, r *http.Request)
	CabinetStatus(w http.ResponseWriter, r *http.Request)
	AddMedicine(w http.ResponseWriter, r *http.Request)
	RemoveMedicine(w http.ResponseWriter, r *http.Request)
	LogDose(w http.ResponseWriter, r *http.Request)
	Restock(w http.ResponseWriter, r *http.Request)
	DismissExpiryAlert(w http.ResponseWriter, r *http.Request)

	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the status label, response data and HTTP status
	HealthCheck() (status string, data map[string]any, httpStatus int)
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ValidateDrug checks if a drug record is valid
	ValidateDrug(d *entities.Drug) error

	// ValidateCatalogIntegrity performs comprehensive catalog validation
	ValidateCatalogIntegrity(drugs []entities.Drug) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(drugs []entities.Drug) *DataQualityReport

	// ValidateInput validates search query strings
	ValidateInput(input string) error

	// ValidateScanText validates recognized text submitted for matching
	ValidateScanText(text string) error

	// ValidateID validates drug, user and medicine identifiers
	ValidateID(input string) error
}
