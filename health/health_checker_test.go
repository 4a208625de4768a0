package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/interfaces"
)

// MockHealthDataStore for testing
type MockHealthDataStore struct {
	cat         *catalog.Catalog
	report      *interfaces.DataQualityReport
	lastUpdated time.Time
	startTime   time.Time
	isUpdating  bool
}

func (m *MockHealthDataStore) GetCatalog() *catalog.Catalog {
	return m.cat
}

func (m *MockHealthDataStore) GetDataQualityReport() *interfaces.DataQualityReport {
	return m.report
}

func (m *MockHealthDataStore) GetLastUpdated() time.Time {
	return m.lastUpdated
}

func (m *MockHealthDataStore) GetServerStartTime() time.Time {
	return m.startTime
}

func (m *MockHealthDataStore) IsUpdating() bool {
	return m.isUpdating
}

func (m *MockHealthDataStore) UpdateCatalog(cat *catalog.Catalog, report *interfaces.DataQualityReport) {
	// Not used in health tests
}

func (m *MockHealthDataStore) BeginUpdate() bool {
	return true
}

func (m *MockHealthDataStore) EndUpdate() {
	// Not used in health tests
}

func testCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	drugs := make([]entities.Drug, 0, n)
	for i := range n {
		drugs = append(drugs, entities.Drug{ID: string(rune('a' + i)), DisplayName: "Drug"})
	}
	cat, err := catalog.New(drugs)
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return cat
}

func TestNewHealthChecker(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{})

	if healthChecker == nil {
		t.Fatal("NewHealthChecker returned nil")
	}
	if _, ok := healthChecker.(*HealthCheckerImpl); !ok {
		t.Error("NewHealthChecker should return *HealthCheckerImpl")
	}
}

func TestHealthCheck(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name       string
		store      *MockHealthDataStore
		status     string
		httpStatus int
	}{
		{
			name:       "healthy",
			store:      &MockHealthDataStore{cat: testCatalog(t, 3), report: &interfaces.DataQualityReport{}, lastUpdated: now},
			status:     "healthy",
			httpStatus: http.StatusOK,
		},
		{
			name:       "empty catalog",
			store:      &MockHealthDataStore{cat: testCatalog(t, 0), lastUpdated: now},
			status:     "unhealthy",
			httpStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "nil catalog",
			store:      &MockHealthDataStore{},
			status:     "unhealthy",
			httpStatus: http.StatusServiceUnavailable,
		},
		{
			name: "dangling interactions",
			store: &MockHealthDataStore{cat: testCatalog(t, 2), report: &interfaces.DataQualityReport{
				DanglingInteractions: []string{"a->ghost"},
			}},
			status:     "degraded",
			httpStatus: http.StatusOK,
		},
		{
			name: "duplicate ids",
			store: &MockHealthDataStore{cat: testCatalog(t, 2), report: &interfaces.DataQualityReport{
				DuplicateIDs: []string{"a"},
			}},
			status:     "degraded",
			httpStatus: http.StatusOK,
		},
		{
			name:       "updating stays healthy",
			store:      &MockHealthDataStore{cat: testCatalog(t, 1), lastUpdated: now, isUpdating: true},
			status:     "healthy",
			httpStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, data, httpStatus := NewHealthChecker(tc.store).HealthCheck()

			if status != tc.status {
				t.Errorf("Expected status '%s', got '%s'", tc.status, status)
			}
			if httpStatus != tc.httpStatus {
				t.Errorf("Expected HTTP %d, got %d", tc.httpStatus, httpStatus)
			}
			if data == nil {
				t.Fatal("Data should not be nil")
			}
			if data["is_updating"] != tc.store.isUpdating {
				t.Errorf("Expected is_updating %v, got %v", tc.store.isUpdating, data["is_updating"])
			}
		})
	}
}

func TestHealthCheck_Data(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := &MockHealthDataStore{
		cat:         testCatalog(t, 4),
		report:      &interfaces.DataQualityReport{DanglingInteractions: []string{"a->x", "b->y"}},
		lastUpdated: now.Add(-90 * time.Minute),
		startTime:   now.Add(-2 * time.Hour),
	}
	checker := &HealthCheckerImpl{dataStore: store, now: func() time.Time { return now }}

	_, data, _ := checker.HealthCheck()

	if data["drugs"] != 4 {
		t.Errorf("Expected 4 drugs, got %v", data["drugs"])
	}
	if data["dangling_interactions"] != 2 {
		t.Errorf("Expected 2 dangling interactions, got %v", data["dangling_interactions"])
	}
	if data["data_age_hours"] != 1.5 {
		t.Errorf("Expected data age 1.5h, got %v", data["data_age_hours"])
	}
	if data["uptime_seconds"] != float64(7200) {
		t.Errorf("Expected uptime 7200s, got %v", data["uptime_seconds"])
	}
	if data["last_update"] != "2026-03-10T10:30:00Z" {
		t.Errorf("Unexpected last_update %v", data["last_update"])
	}
}

func TestHealthCheck_NeverLoadedOmitsTimestamps(t *testing.T) {
	_, data, _ := NewHealthChecker(&MockHealthDataStore{cat: testCatalog(t, 1)}).HealthCheck()

	if _, ok := data["last_update"]; ok {
		t.Error("last_update must be omitted before the first load")
	}
	if _, ok := data["uptime_seconds"]; ok {
		t.Error("uptime_seconds must be omitted without a start time")
	}
}
