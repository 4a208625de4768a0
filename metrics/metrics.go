// Package metrics provides Prometheus metrics for the HTTP server and the
// safety engine.
//
// HTTP:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - rate_limiter_buckets_total: Gauge of tracked client buckets
//   - api_requests_total: Counter by API area (catalog, safety, cabinet, ops)
//     and outcome class
//
// Domain:
//   - verdicts_total: Counter of verdicts by risk level
//   - drug_matches_total: Counter of matched drugs by source (search or scan)
//   - dose_log_attempts_total: Counter of dose logging attempts by outcome
//   - catalog_drugs: Gauge of drugs in the live catalog
//   - catalog_reloads_total: Counter of catalog reloads by result
//   - cabinet_medicines: Gauge of owned medicines by state
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (clients seen since the last cleanup)",
		},
	)

	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdicts_total",
			Help: "Verdicts produced, by risk level",
		},
		[]string{"risk"},
	)

	DrugMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drug_matches_total",
			Help: "Catalog drugs matched, by input source",
		},
		[]string{"source"},
	)

	DoseLogAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dose_log_attempts_total",
			Help: "Dose logging attempts, by outcome",
		},
		[]string{"outcome"},
	)

	CatalogDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_drugs",
			Help: "Drugs in the live catalog",
		},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reload attempts, by result",
		},
		[]string{"result"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Requests by API area and outcome class",
		},
		[]string{"area", "outcome"},
	)

	CabinetMedicines = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cabinet_medicines",
			Help: "Owned medicines across all cabinets, by state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(VerdictsTotal)
	prometheus.MustRegister(DrugMatchesTotal)
	prometheus.MustRegister(DoseLogAttemptsTotal)
	prometheus.MustRegister(CatalogDrugs)
	prometheus.MustRegister(CatalogReloadsTotal)
	prometheus.MustRegister(CabinetMedicines)
}

// RecordCatalogReload counts a reload and, on success, sets the drug gauge
func RecordCatalogReload(result string, drugs int) {
	CatalogReloadsTotal.WithLabelValues(result).Inc()
	if result == "success" {
		CatalogDrugs.Set(float64(drugs))
	}
}

// SetCabinetMedicines publishes the totals of a cabinet sweep
func SetCabinetMedicines(total, expired, expiringSoon, lowStock int) {
	CabinetMedicines.WithLabelValues("total").Set(float64(total))
	CabinetMedicines.WithLabelValues("expired").Set(float64(expired))
	CabinetMedicines.WithLabelValues("expiring_soon").Set(float64(expiringSoon))
	CabinetMedicines.WithLabelValues("low_stock").Set(float64(lowStock))
}
