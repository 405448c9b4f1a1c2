// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package middleware provides HTTP middleware shared across routes:
// request ID propagation with request-scoped logging, and Prometheus
// request instrumentation. Rate limiting and CORS come from the Chi
// ecosystem (go-chi/httprate, go-chi/cors) and are wired in the api
// package.
package middleware
