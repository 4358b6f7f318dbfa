// Package metrics holds the Prometheus collectors for API, object store and
// database timings.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webapp_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webapp_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	storageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webapp_storage_operation_duration_seconds",
			Help:    "Object store operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	dbDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webapp_db_query_duration_seconds",
			Help:    "Metadata store query latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StorageTimer starts timing an object store operation. Call ObserveDuration when it returns.
func StorageTimer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(storageDuration.WithLabelValues(operation))
}

// DBTimer starts timing a metadata store query. Call ObserveDuration when it returns.
func DBTimer(query string) *prometheus.Timer {
	return prometheus.NewTimer(dbDuration.WithLabelValues(query))
}
