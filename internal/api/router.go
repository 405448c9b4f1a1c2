// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/clubsync/internal/middleware"
)

// Router wires handlers and middleware into the Chi route tree.
type Router struct {
	handler *Handler
	mw      *Middleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	if mw == nil {
		mw = NewMiddleware(nil)
	}
	return &Router{handler: handler, mw: mw}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	// Permissive rate limiting for monitoring endpoints.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/events", router.handler.Events)

		r.Route("/clubs", func(r chi.Router) {
			r.Get("/", router.handler.Clubs)
			r.Post("/", router.handler.CreateClub)
			r.Get("/{id}", router.handler.GetClub)
			r.Get("/{id}/events", router.handler.ClubEvents)
			r.Put("/{id}/credentials", router.handler.UpdateCredentials)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", router.handler.TriggerSync)
			r.Post("/reset", router.handler.ResetSync)
			r.Get("/status", router.handler.SyncStatus)
		})
	})

	return r
}
