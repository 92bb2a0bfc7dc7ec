// Package metrics provides Prometheus metrics for the session layer.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote call metrics
	remoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncsession_remote_calls_total",
			Help: "Total remote calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	remoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syncsession_remote_call_duration_seconds",
			Help:    "Remote call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Negotiation metrics
	negotiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncsession_negotiations_total",
			Help: "Total server negotiations by result",
		},
		[]string{"result"},
	)

	negotiationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "syncsession_negotiation_duration_seconds",
			Help:    "Time to complete the status and auth-method handshake",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Local cache metrics
	cacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncsession_cache_writes_total",
			Help: "Total local cache upserts by entity",
		},
		[]string{"entity"},
	)

	cacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncsession_cache_reads_total",
			Help: "Total local cache reads by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	// Refresh metrics
	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncsession_refreshes_total",
			Help: "Total refresh-then-cache operations by entity and result",
		},
		[]string{"entity", "result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result classifies err into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, errs.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, errs.ErrNoConnection):
		return "no_connection"
	case errors.Is(err, errs.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// RecordRemoteCall records a remote call and its outcome.
func RecordRemoteCall(operation string, duration time.Duration, err error) {
	remoteCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	remoteCallsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// RecordNegotiation records a full server negotiation.
func RecordNegotiation(duration time.Duration, err error) {
	negotiationDuration.Observe(duration.Seconds())
	negotiationsTotal.WithLabelValues(Result(err)).Inc()
}

// RecordCacheWrite records an upsert into the local cache.
func RecordCacheWrite(entity string) {
	cacheWritesTotal.WithLabelValues(entity).Inc()
}

// RecordCacheRead records a local cache read.
func RecordCacheRead(entity string, hit bool) {
	outcome := "hit"
	if !hit {
		outcome = "miss"
	}
	cacheReadsTotal.WithLabelValues(entity, outcome).Inc()
}

// RecordRefresh records a refresh-then-cache operation.
func RecordRefresh(entity string, err error) {
	refreshesTotal.WithLabelValues(entity, Result(err)).Inc()
}
