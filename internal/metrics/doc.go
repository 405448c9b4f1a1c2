// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

/*
Package metrics provides Prometheus metrics collection and export for observability.

The package instruments:
  - HTTP API latency and throughput
  - Database query performance (DuckDB)
  - Outbound platform requests, retry outcomes, and queue depth
  - Rate-limit quota usage and dispatcher pauses
  - Sync run duration and per-action event counts
  - Circuit breaker state transitions
  - Cache hit/miss rates

Metrics are exposed at the /metrics endpoint in Prometheus text format.

All metrics are registered through promauto at package load; recording
functions are safe for concurrent use from multiple goroutines.

Example PromQL queries:

	# API request rate
	rate(api_requests_total[5m])

	# API p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# Cache hit rate
	sum(rate(cache_hits_total[5m])) / (sum(rate(cache_hits_total[5m])) + sum(rate(cache_misses_total[5m])))

	# Dispatcher pauses per hour
	rate(platform_rate_limit_pauses_total[1h]) * 3600

When adding new metrics, follow Prometheus naming conventions (underscore
separation, units in the name, _total suffix on counters) and keep label
cardinality bounded: no per-user or per-event labels, normalized endpoint
paths, fixed outcome constants.
*/
package metrics
