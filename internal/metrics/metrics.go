// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Database query performance (DuckDB)
//   - Booking lifecycle and seat allocation
//   - Payment webhook processing
//   - Delta-sync pulls and change log size
//   - WebSocket connections and event bus throughput
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
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

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Database metrics
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
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	// Booking metrics
	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings placed",
		},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Total number of booking state transitions",
		},
		[]string{"from", "to"},
	)

	BookingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Total number of booking attempts rejected for insufficient seats",
		},
	)

	BookingHoldsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_holds_expired_total",
			Help: "Total number of pending bookings expired by the sweeper",
		},
	)

	SeatsHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_seats_held",
			Help: "Current number of seats held by active bookings",
		},
	)

	// Payment metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_received_total",
			Help: "Total number of payment webhooks received",
		},
		[]string{"event_type", "result"}, // result: applied, duplicate, quarantined, rejected
	)

	WebhookSignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_webhook_signature_failures_total",
			Help: "Total number of webhooks rejected for bad signatures",
		},
	)

	PaymentProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provider_requests_total",
			Help: "Total number of outbound payment provider requests",
		},
		[]string{"result"}, // success, failure, rejected
	)

	// Circuit breaker metrics
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

	// Sync metrics
	SyncPulls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_pulls_total",
			Help: "Total number of delta-sync pulls",
		},
	)

	SyncChangesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_changes_served_total",
			Help: "Total number of change log entries served to clients",
		},
	)

	SyncFullResyncs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_full_resyncs_total",
			Help: "Total number of full resyncs (no cursor or pruned cursor)",
		},
	)

	SyncGoneCursors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_gone_cursors_total",
			Help: "Total number of sync pulls rejected with 410 for pruned cursors",
		},
	)

	ChangeLogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "change_log_entries",
			Help: "Current number of change log entries",
		},
	)

	ChangeLogPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "change_log_pruned_total",
			Help: "Total number of change log entries pruned by the janitor",
		},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"topic"},
	)

	EventsForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_forwarded_nats_total",
			Help: "Total number of events forwarded to NATS JetStream",
		},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WebSocketBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Total number of WebSocket broadcast messages",
		},
	)

	// System metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordBookingTransition records a booking state change.
func RecordBookingTransition(from, to string) {
	BookingTransitions.WithLabelValues(from, to).Inc()
}

// RecordWebhook records a processed payment webhook.
func RecordWebhook(eventType, result string) {
	WebhooksReceived.WithLabelValues(eventType, result).Inc()
}

// RecordSyncPull records a delta-sync pull.
func RecordSyncPull(changesServed int, fullResync bool) {
	SyncPulls.Inc()
	SyncChangesServed.Add(float64(changesServed))
	if fullResync {
		SyncFullResyncs.Inc()
	}
}

// RecordCircuitBreakerTransition records a breaker state change and updates
// the state gauge.
func RecordCircuitBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(state)
}
