// Package observability holds the Prometheus domain metrics and the
// OpenTelemetry tracer used by the API.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostViews counts view attempts. outcome is "new" when the visitor was
	// added to viewedBy and "repeat" when the view was a no-op.
	PostViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_views_total",
		Help: "Post view attempts by outcome",
	}, []string{"outcome"})

	// Comments counts comment submissions by outcome (created, duplicate, rejected).
	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_comments_total",
		Help: "Comment submissions by outcome",
	}, []string{"outcome"})

	// AuthAttempts counts login attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// LegacyAdminBypass counts logins that used the hardcoded admin credential.
	LegacyAdminBypass = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_legacy_admin_bypass_total",
		Help: "Logins accepted through the legacy admin credential",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
