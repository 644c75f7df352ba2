package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Forecast sources, used as the "source" label.
const (
	SourceEphemeral = "ephemeral"
	SourceDurable   = "durable"
	SourceUpstream  = "upstream"
	SourceNotFound  = "not_found"
)

var (
	ForecastLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_lookups_total",
			Help: "Forecast lookups by the tier that answered them",
		},
		[]string{"source"},
	)

	UpstreamFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_upstream_fetches_total",
			Help: "Upstream provider fetches by outcome",
		},
		[]string{"outcome"},
	)

	DurableStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_durable_store_operations_total",
			Help: "Durable store operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	EphemeralEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forecast_ephemeral_cache_entries",
			Help: "Entries currently held by the ephemeral cache",
		},
	)

	EphemeralSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forecast_ephemeral_cache_swept_total",
			Help: "Expired ephemeral entries removed by the background sweep",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forecast_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// RecordForecastLookup records which tier answered a lookup.
func RecordForecastLookup(source string) {
	ForecastLookups.WithLabelValues(source).Inc()
}

// RecordUpstreamFetch records an upstream fetch outcome ("ok" or "error").
func RecordUpstreamFetch(outcome string) {
	UpstreamFetches.WithLabelValues(outcome).Inc()
}

// RecordDurableOperation records a durable store call.
func RecordDurableOperation(operation, outcome string) {
	DurableStoreOperations.WithLabelValues(operation, outcome).Inc()
}

// UpdateEphemeralEntries sets the ephemeral entry gauge.
func UpdateEphemeralEntries(n int) {
	EphemeralEntries.Set(float64(n))
}

// RecordEphemeralSwept adds n swept entries.
func RecordEphemeralSwept(n int) {
	EphemeralSwept.Add(float64(n))
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path, status string, seconds float64) {
	HTTPRequests.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
