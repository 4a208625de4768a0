package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/medsafe-api/config"
	"github.com/giygas/medsafe-api/interfaces"
	"github.com/go-chi/chi/v5"
)

// MockHTTPHandler implements interfaces.HTTPHandler and echoes which
// endpoint served the request
type MockHTTPHandler struct{}

var _ interfaces.HTTPHandler = (*MockHTTPHandler)(nil)

func echo(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Endpoint", name)
		if userID := chi.URLParam(r, "userID"); userID != "" {
			w.Header().Set("X-User", userID)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"endpoint":"` + name + `"}`))
	}
}

func (m *MockHTTPHandler) SearchDrugs(w http.ResponseWriter, r *http.Request) {
	echo("search")(w, r)
}
func (m *MockHTTPHandler) GetDrug(w http.ResponseWriter, r *http.Request) { echo("drug")(w, r) }
func (m *MockHTTPHandler) ScanText(w http.ResponseWriter, r *http.Request) {
	echo("scan")(w, r)
}
func (m *MockHTTPHandler) EvaluateVerdicts(w http.ResponseWriter, r *http.Request) {
	echo("verdicts")(w, r)
}
func (m *MockHTTPHandler) ListCabinet(w http.ResponseWriter, r *http.Request) {
	echo("list")(w, r)
}
func (m *MockHTTPHandler) CabinetStatus(w http.ResponseWriter, r *http.Request) {
	echo("status")(w, r)
}
func (m *MockHTTPHandler) AddMedicine(w http.ResponseWriter, r *http.Request) {
	echo("add")(w, r)
}
func (m *MockHTTPHandler) RemoveMedicine(w http.ResponseWriter, r *http.Request) {
	echo("remove")(w, r)
}
func (m *MockHTTPHandler) LogDose(w http.ResponseWriter, r *http.Request) { echo("dose")(w, r) }
func (m *MockHTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	echo("restock")(w, r)
}
func (m *MockHTTPHandler) DismissExpiryAlert(w http.ResponseWriter, r *http.Request) {
	echo("dismiss")(w, r)
}
func (m *MockHTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	echo("health")(w, r)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Address:        "127.0.0.1",
		Env:            config.EnvTest,
		LogLevel:       "info",
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
	}
}

func TestNewServer(t *testing.T) {
	s := NewServer(testConfig(), &MockHTTPHandler{})

	if s.server.Addr != "127.0.0.1:0" {
		t.Errorf("Expected address 127.0.0.1:0, got %s", s.server.Addr)
	}
	if s.server.ReadTimeout != 15*time.Second || s.server.WriteTimeout != 15*time.Second {
		t.Errorf("Unexpected timeouts %v / %v", s.server.ReadTimeout, s.server.WriteTimeout)
	}
	if s.rateLimiter == nil {
		t.Error("Expected a rate limiter")
	}
}

func TestSetupRoutes(t *testing.T) {
	s := NewServer(testConfig(), &MockHTTPHandler{})

	tests := []struct {
		method   string
		path     string
		endpoint string
	}{
		{"GET", "/v1/drugs/search?q=amox", "search"},
		{"GET", "/v1/drugs/amoxicillin", "drug"},
		{"POST", "/v1/scan", "scan"},
		{"POST", "/v1/verdicts", "verdicts"},
		{"GET", "/v1/users/alice/cabinet", "list"},
		{"POST", "/v1/users/alice/cabinet", "add"},
		{"GET", "/v1/users/alice/cabinet/status", "status"},
		{"DELETE", "/v1/users/alice/cabinet/m1", "remove"},
		{"POST", "/v1/users/alice/cabinet/m1/doses", "dose"},
		{"POST", "/v1/users/alice/cabinet/m1/restock", "restock"},
		{"POST", "/v1/users/alice/cabinet/m1/expiry-alert/dismiss", "dismiss"},
		{"GET", "/health", "health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = "192.0.2.10:1234"
			rr := httptest.NewRecorder()
			s.Router().ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rr.Code)
			}
			if got := rr.Header().Get("X-Endpoint"); got != tt.endpoint {
				t.Errorf("Expected endpoint %s, got %s", tt.endpoint, got)
			}
			if strings.Contains(tt.path, "/users/") && rr.Header().Get("X-User") != "alice" {
				t.Errorf("Expected userID param alice, got %q", rr.Header().Get("X-User"))
			}
		})
	}
}

func TestMiddlewareStack(t *testing.T) {
	s := NewServer(testConfig(), &MockHTTPHandler{})

	t.Run("unknown route", func(t *testing.T) {
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/v1/unknown", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rr.Code)
		}
	})

	t.Run("rate limit headers", func(t *testing.T) {
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
		if rr.Header().Get("X-RateLimit-Remaining") == "" {
			t.Error("Expected X-RateLimit-Remaining header")
		}
	})

	t.Run("body too large", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/scan", nil)
		req.ContentLength = 2 * 1048576
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", rr.Code)
		}
	})

	t.Run("gzip when accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/drugs/search?q=amox", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		if rr.Header().Get("Content-Encoding") != "gzip" {
			t.Errorf("Expected gzip encoding, got %q", rr.Header().Get("Content-Encoding"))
		}
	})

	t.Run("metrics exposed", func(t *testing.T) {
		// one request so the route counters exist
		s.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/drugs/amoxicillin", nil))

		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `path="/v1/drugs/{id}"`) {
			t.Error("Expected route pattern label in metrics output")
		}
	})
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer(testConfig(), &MockHTTPHandler{})

	done := make(chan error, 1)
	go func() {
		done <- s.Start()
	}()

	// give ListenAndServe a moment to bind
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil from Start after shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}
