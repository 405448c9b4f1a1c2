// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
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

	// Platform Request Client Metrics
	PlatformRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_requests_total",
			Help: "Total outbound platform API requests by outcome",
		},
		[]string{"request", "outcome"}, // outcome: success, retry, terminal, exhausted
	)

	RequestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "platform_request_queue_depth",
			Help: "Current number of requests waiting in the dispatch queue",
		},
	)

	RateLimitPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "platform_rate_limit_pauses_total",
			Help: "Times the dispatcher paused for a rate-limit window reset",
		},
	)

	RateLimitShortUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "platform_rate_limit_short_usage",
			Help: "Requests used in the current 15-minute quota window",
		},
	)

	RateLimitDailyUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "platform_rate_limit_daily_usage",
			Help: "Requests used against the daily quota",
		},
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SyncEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_events_processed_total",
			Help: "Events processed during sync runs",
		},
		[]string{"action"}, // added, updated, skipped
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of per-club sync failures",
		},
		[]string{"error_type"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last fully successful sync run",
		},
	)

	ClubActivityScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "club_activity_score",
			Help: "Current activity score per club",
		},
		[]string{"club"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Circuit breaker requests by result",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Consecutive failures observed by the circuit breaker",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application build information",
		},
		[]string{"version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
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

// RecordSyncRun records the aggregate outcome of one sync run
func RecordSyncRun(duration time.Duration, added, updated, skipped, failed int) {
	SyncDuration.Observe(duration.Seconds())
	SyncEventsProcessed.WithLabelValues("added").Add(float64(added))
	SyncEventsProcessed.WithLabelValues("updated").Add(float64(updated))
	SyncEventsProcessed.WithLabelValues("skipped").Add(float64(skipped))
	if failed == 0 {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// UpdateRateLimitGauges publishes the tracked platform quota counters
func UpdateRateLimitGauges(shortUsage, dailyUsage int) {
	RateLimitShortUsage.Set(float64(shortUsage))
	RateLimitDailyUsage.Set(float64(dailyUsage))
}
