// Package observability holds Prometheus metrics and OpenTelemetry tracing helpers.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AssetOperations counts asset store calls by operation and outcome.
	AssetOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_asset_operations_total",
		Help: "Asset store operations by operation (upload, delete) and outcome (ok, error)",
	}, []string{"operation", "outcome"})

	// PostTransitions counts post lifecycle events (draft_created, published, discarded, removed).
	PostTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_post_transitions_total",
		Help: "Post lifecycle transitions by event",
	}, []string{"event"})

	// LikeEvents counts like, unlike and toggle outcomes.
	LikeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_like_events_total",
		Help: "Post like events by action",
	}, []string{"action"})

	// SearchRequests counts searches by kind (full, suggestions, quick) and result type filter.
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_search_requests_total",
		Help: "Search requests by kind and type filter",
	}, []string{"kind", "type"})

	// SearchLatency records search latency by kind.
	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_search_latency_seconds",
		Help:    "Search latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// ObserveSearch returns a function that records the latency of one search when called.
func ObserveSearch(kind string) func() {
	start := time.Now()
	return func() {
		SearchLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// RecordAsset counts one asset store call.
func RecordAsset(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AssetOperations.WithLabelValues(operation, outcome).Inc()
}
