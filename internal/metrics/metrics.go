// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for:
// - Relay session lifecycle (created, evicted, closed, active)
// - Frames forwarded and dropped per direction
// - Upstream dial outcomes and circuit breaker state
// - Subject resolution and store queries
// - API endpoint latency and throughput

// Frame directions.
const (
	DirectionClientToUpstream = "client_to_upstream"
	DirectionUpstreamToClient = "upstream_to_client"
)

var (
	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_sessions_active",
			Help: "Current number of registered relay sessions",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_sessions_created_total",
			Help: "Total number of relay sessions registered",
		},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sessions_closed_total",
			Help: "Total number of relay sessions torn down",
		},
		[]string{"reason"}, // "client_closed", "upstream_closed", "upstream_failed", "evicted", "idle", "shutdown"
	)

	SessionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sessions_rejected_total",
			Help: "Total number of session attempts rejected before registration",
		},
		[]string{"reason"}, // "resolution", "rate_limited", "invalid_params", "internal"
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_session_duration_seconds",
			Help:    "Lifetime of relay sessions from registration to teardown",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	EvictionNotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_eviction_notify_failures_total",
			Help: "Total number of replaced frames that could not be delivered",
		},
	)

	// Frame Metrics
	FramesForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_forwarded_total",
			Help: "Total number of frames forwarded between client and upstream",
		},
		[]string{"direction"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Total number of frames dropped by the relay",
		},
		[]string{"direction", "reason"}, // reason: "no_session", "no_upstream", "malformed", "peer_closed"
	)

	// Upstream Metrics
	UpstreamDialDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_upstream_dial_duration_seconds",
			Help:    "Time to open the upstream tracking socket",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	UpstreamDials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_dials_total",
			Help: "Total number of upstream dial attempts",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Subject Resolution Metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_subject_resolutions_total",
			Help: "Total number of subject resolution attempts",
		},
		[]string{"result"}, // "success", "not_found", "forbidden", "error"
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Lifecycle Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_published_total",
			Help: "Total number of session lifecycle events published",
		},
		[]string{"event_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSessionClosed records a teardown and the session's lifetime.
func RecordSessionClosed(reason string, lifetime time.Duration) {
	SessionsClosed.WithLabelValues(reason).Inc()
	SessionDuration.Observe(lifetime.Seconds())
}

// RecordUpstreamDial records the outcome of an upstream dial attempt.
func RecordUpstreamDial(result string, duration time.Duration) {
	UpstreamDials.WithLabelValues(result).Inc()
	if result != "rejected" {
		UpstreamDialDuration.Observe(duration.Seconds())
	}
}
