package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/data"
	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/inventory"
	"github.com/giygas/medsafe-api/logging"
	"github.com/giygas/medsafe-api/validation"
	"github.com/go-chi/chi/v5"
)

func init() {
	logging.InitLogger("")
}

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.Local)

func testDrugs() []entities.Drug {
	return []entities.Drug{
		{
			ID: "amoxicillin", DisplayName: "Amoxicillin", BrandNames: []string{"Amoxil"},
			Category: "Antibiotic", AllergyTriggers: []string{"Penicillin"},
		},
		{
			ID: "paracetamol", DisplayName: "Paracetamol", BrandNames: []string{"Panadol", "Doliprane"},
			Category: "Analgesic", ConditionContraindications: []string{"Liver disease"},
			Alcohol: entities.AlcoholAvoid,
		},
		{ID: "cetirizine", DisplayName: "Cetirizine", Category: "Antihistamine"},
	}
}

// ============================================================================
// MOCKS
// ============================================================================

type mockHealthChecker struct {
	status     string
	data       map[string]any
	httpStatus int
}

func (m *mockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.data, m.httpStatus
}

// ============================================================================
// HELPERS
// ============================================================================

type testEnv struct {
	handler   *HTTPHandlerImpl
	router    chi.Router
	container *data.DataContainer
	store     *data.CabinetStore
	health    *mockHealthChecker
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()

	cat, err := catalog.New(testDrugs())
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	dc := data.NewDataContainer()
	dc.UpdateCatalog(cat, nil)
	dc.SetServerStartTime(time.Now().Add(-90 * time.Second))

	store := data.NewCabinetStore()
	clock := func() time.Time { return testNow }
	svc := inventory.NewService(store, dc, inventory.New(inventory.DefaultPolicy(), clock))

	health := &mockHealthChecker{status: "healthy", data: map[string]any{"drugs": 3}, httpStatus: http.StatusOK}
	h := NewHTTPHandler(dc, validation.NewDataValidator(), health, svc, 2)

	return &testEnv{
		handler:   h,
		router:    newTestRouter(h),
		container: dc,
		store:     store,
		health:    health,
	}
}

func newTestRouter(h *HTTPHandlerImpl) chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/drugs/search", h.SearchDrugs)
		r.Get("/drugs/{id}", h.GetDrug)
		r.Post("/scan", h.ScanText)
		r.Post("/verdicts", h.EvaluateVerdicts)
		r.Route("/users/{userID}/cabinet", func(r chi.Router) {
			r.Get("/", h.ListCabinet)
			r.Post("/", h.AddMedicine)
			r.Get("/status", h.CabinetStatus)
			r.Delete("/{medicineID}", h.RemoveMedicine)
			r.Post("/{medicineID}/doses", h.LogDose)
			r.Post("/{medicineID}/restock", h.Restock)
			r.Post("/{medicineID}/expiry-alert/dismiss", h.DismissExpiryAlert)
		})
	})
	return r
}

func (e *testEnv) do(t testing.TB, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t testing.TB, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// addMedicine stores a medicine directly, bypassing the catalog lookup
func (e *testEnv) addMedicine(t testing.TB, user string, tablets int, expiryDays *int, times ...string) string {
	t.Helper()
	var expiry *time.Time
	if expiryDays != nil {
		d := testNow.AddDate(0, 0, *expiryDays)
		expiry = &d
	}
	med, err := entities.NewOwnedMedicine(entities.OwnedMedicineParams{
		DrugID: "paracetamol", MedicineName: "Paracetamol",
		TabletCount: tablets, ExpiryDate: expiry, ScheduleTimes: times,
	})
	if err != nil {
		t.Fatalf("NewOwnedMedicine failed: %v", err)
	}
	if err := e.store.Add(user, med); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return med.ID
}

func intPtr(i int) *int { return &i }

func TestFormatUptimeHuman(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Second, "2h 0m 5s"},
		{49*time.Hour + 3*time.Minute, "2d 1h 3m 0s"},
	}

	for _, tt := range tests {
		if got := formatUptimeHuman(tt.d); got != tt.expected {
			t.Errorf("formatUptimeHuman(%v) = %q, expected %q", tt.d, got, tt.expected)
		}
	}
}

func TestParseExpiryDate(t *testing.T) {
	got, err := parseExpiryDate("2026-11-30")
	if err != nil || got == nil {
		t.Fatalf("Expected a date, got %v, %v", got, err)
	}
	if y, m, d := got.Date(); y != 2026 || m != time.November || d != 30 {
		t.Errorf("Unexpected date %v", got)
	}

	if got, err := parseExpiryDate("2026-11-30T10:00:00Z"); err != nil || got == nil {
		t.Errorf("Expected RFC 3339 accepted, got %v, %v", got, err)
	}
	if got, err := parseExpiryDate("  "); err != nil || got != nil {
		t.Errorf("Expected no date, got %v, %v", got, err)
	}
	if _, err := parseExpiryDate("30/11/2026"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestRespondWithError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, http.StatusNotFound, "Drug not found")

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Unexpected content type %q", ct)
	}
	body := decode[map[string]any](t, rr)
	if body["error"] != "Not Found" || body["message"] != "Drug not found" || body["code"] != float64(404) {
		t.Errorf("Unexpected error body %v", body)
	}
}
