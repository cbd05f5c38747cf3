// Package metrics exposes Prometheus instrumentation for the pipeline:
// refresh decisions, fetches, detected changes, publish throughput, and API
// traffic. Collectors are registered on the default registry and served on
// GET /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collector metrics
	RefreshDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_refresh_decisions_total",
			Help: "Refresh decisions by record kind and reason",
		},
		[]string{"kind", "reason"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_fetches_total",
			Help: "Upstream fetches by record kind",
		},
		[]string{"kind"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_fetch_errors_total",
			Help: "Failed upstream fetches by record kind",
		},
		[]string{"kind"},
	)

	ChangesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_changes_total",
			Help: "Detected record changes by kind and change type",
		},
		[]string{"kind", "change_type"},
	)

	CollectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dugout_collect_duration_seconds",
			Help:    "Duration of collection runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms .. ~3.4min
		},
	)

	// Publisher metrics
	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dugout_publish_duration_seconds",
			Help:    "Duration of replica publish runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	RowsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_rows_published_total",
			Help: "Rows published to the replica by table",
		},
		[]string{"table"},
	)

	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dugout_publish_errors_total",
			Help: "Failed replica publish runs",
		},
	)

	// API metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_http_requests_total",
			Help: "API requests by method, route pattern, and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dugout_http_request_duration_seconds",
			Help:    "API request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dugout_cache_hits_total",
			Help: "Response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dugout_cache_misses_total",
			Help: "Response cache misses",
		},
	)
)

// ObserveRefresh records one refresh decision.
func ObserveRefresh(kind, reason string) {
	RefreshDecisions.WithLabelValues(kind, reason).Inc()
}

// ObserveFetch records one upstream fetch attempt.
func ObserveFetch(kind string, err error) {
	FetchesTotal.WithLabelValues(kind).Inc()
	if err != nil {
		FetchErrors.WithLabelValues(kind).Inc()
	}
}

// ObserveChange records one detected change.
func ObserveChange(kind, changeType string) {
	ChangesDetected.WithLabelValues(kind, changeType).Inc()
}

// ObserveHTTP records one completed API request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
