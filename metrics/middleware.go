package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder keeps the status code written by the handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// routePattern returns the matched chi pattern, so ids in the path do not
// explode label cardinality
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

// apiArea groups a route pattern by the part of the API it serves.
// Scan and verdict routes are the safety engine.
func apiArea(pattern string) string {
	switch {
	case pattern == "/v1/scan" || pattern == "/v1/verdicts":
		return "safety"
	case strings.HasPrefix(pattern, "/v1/drugs"):
		return "catalog"
	case strings.HasPrefix(pattern, "/v1/users/"):
		return "cabinet"
	case pattern == "/health" || pattern == "/metrics":
		return "ops"
	}
	return "unmatched"
}

// outcomeClass folds a status code into ok, client_error or server_error
func outcomeClass(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	}
	return "ok"
}

// Metrics records request counts, latency and the API area of each request
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestInFlight.Inc()
		defer HTTPRequestInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start).Seconds()

		// the pattern is only complete once routing has finished
		pattern := routePattern(r)

		HTTPRequestTotals.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(elapsed)
		APIRequestsTotal.WithLabelValues(apiArea(pattern), outcomeClass(rec.status)).Inc()
	})
}
