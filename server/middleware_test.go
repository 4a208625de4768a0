package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giygas/medsafe-api/config"
	"github.com/giygas/medsafe-api/logging"
	"github.com/giygas/medsafe-api/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	logging.InitLogger("")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("allowed"))
	})
}

// ============================================================================
// TOKEN COST
// ============================================================================

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		expectedCost int64
	}{
		{"Metrics are free", "GET", "/metrics", 0},
		{"Health endpoint", "GET", "/health", 5},
		{"Drug search", "GET", "/v1/drugs/search", 50},
		{"Drug by id", "GET", "/v1/drugs/amoxicillin", 10},
		{"Scan", "POST", "/v1/scan", 100},
		{"Verdicts", "POST", "/v1/verdicts", 100},
		{"Cabinet read", "GET", "/v1/users/alice/cabinet", 10},
		{"Cabinet status", "GET", "/v1/users/alice/cabinet/status", 10},
		{"Cabinet write", "POST", "/v1/users/alice/cabinet", 20},
		{"Dose log", "POST", "/v1/users/alice/cabinet/abc/doses", 20},
		{"Cabinet delete", "DELETE", "/v1/users/alice/cabinet/abc", 20},
		{"Unknown path", "GET", "/nothing", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("Expected cost %d for %s %s, got %d", tt.expectedCost, tt.method, tt.path, cost)
			}
		})
	}
}

// ============================================================================
// REAL IP
// ============================================================================

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"Single forwarded IP", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "203.0.113.1"},
		{"First of a forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.1 , 10.0.0.1"}, "203.0.113.1"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"Forwarded wins over X-Real-IP", map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "198.51.100.7"}, "203.0.113.1"},
		{"No headers keeps RemoteAddr", nil, "192.168.1.1:12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			var seen string
			handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			}))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if seen != tt.expected {
				t.Errorf("Expected RemoteAddr %q, got %q", tt.expected, seen)
			}
		})
	}
}

// ============================================================================
// REQUEST SIZE
// ============================================================================

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 1024, MaxHeaderSize: 256}

	tests := []struct {
		name           string
		body           string
		contentLength  int64
		header         string
		expectedStatus int
	}{
		{"Small body", `{"a":1}`, -1, "", http.StatusOK},
		{"Exactly the maximum", strings.Repeat("x", 1024), -1, "", http.StatusOK},
		{"Declared body too large", "", 2048, "", http.StatusRequestEntityTooLarge},
		{"Headers too large", "", -1, strings.Repeat("h", 300), http.StatusRequestHeaderFieldsTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/scan", strings.NewReader(tt.body))
			if tt.contentLength >= 0 {
				req.ContentLength = tt.contentLength
			}
			if tt.header != "" {
				req.Header.Set("X-Padding", tt.header)
			}

			rr := httptest.NewRecorder()
			RequestSizeMiddleware(cfg)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}

func TestRequestSizeMiddlewareCapsUndeclaredBody(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 16, MaxHeaderSize: 1024}

	req := httptest.NewRequest("POST", "/v1/scan", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1 // chunked

	var readErr error
	handler := RequestSizeMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if readErr == nil || !errors.As(readErr, &maxErr) {
		t.Errorf("Expected MaxBytesError reading an oversized body, got %v", readErr)
	}
}

// ============================================================================
// RATE LIMITER
// ============================================================================

func TestRateLimiterExhaustsBucket(t *testing.T) {
	rl := NewRateLimiter()
	handler := rl.Middleware(okHandler())

	// 1000 tokens at 100 per verdict request
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/v1/verdicts", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "1000" {
			t.Errorf("Expected X-RateLimit-Limit header, got %q", rr.Header().Get("X-RateLimit-Limit"))
		}
	}

	// a new port is the same client
	req := httptest.NewRequest("POST", "/v1/verdicts", nil)
	req.RemoteAddr = "203.0.113.9:2000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected Retry-After and zero remaining, got %v", rr.Header())
	}
	if !strings.Contains(rr.Body.String(), `"code":429`) {
		t.Errorf("Expected JSON error body, got %s", rr.Body.String())
	}

	// metrics stay free for an exhausted client
	req = httptest.NewRequest("GET", "/metrics", nil)
	req.RemoteAddr = "203.0.113.9:3000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected metrics to bypass the limit, got %d", rr.Code)
	}

	// other clients are unaffected
	req = httptest.NewRequest("POST", "/v1/verdicts", nil)
	req.RemoteAddr = "198.51.100.1:1000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected a fresh bucket for another client, got %d", rr.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	rl.getBucket("198.51.100.1")
	busy := rl.getBucket("198.51.100.2")
	busy.TakeAvailable(10)

	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 2 {
		t.Errorf("Expected 2 buckets tracked, got %v", got)
	}

	rl.cleanupOnce()

	rl.mu.RLock()
	_, idleKept := rl.clients["198.51.100.1"]
	_, busyKept := rl.clients["198.51.100.2"]
	rl.mu.RUnlock()

	if idleKept {
		t.Error("Expected the full bucket to be dropped")
	}
	if !busyKept {
		t.Error("Expected the drained bucket to be kept")
	}
	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 1 {
		t.Errorf("Expected 1 bucket tracked, got %v", got)
	}

	rl.Stop()
	rl.Stop()
}

func TestClientKey(t *testing.T) {
	tests := map[string]string{
		"203.0.113.1:443": "203.0.113.1",
		"[::1]:8080":      "::1",
		"203.0.113.1":     "203.0.113.1",
	}
	for in, want := range tests {
		if got := clientKey(in); got != want {
			t.Errorf("clientKey(%q) = %q, expected %q", in, got, want)
		}
	}
}
