// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
)

// HealthLive reports process liveness. It never touches dependencies, so
// an overloaded store cannot fail the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"}, models.Metadata{})
}

// HealthReady reports readiness: the store must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "database is not reachable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, models.Metadata{})
}

// healthStatus is the GET /health payload.
type healthStatus struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
	Database string            `json:"database"`
	Sync     models.SyncStatus `json:"sync"`
}

// Health reports overall service health including sync telemetry.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:   "ok",
		Version:  h.version,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "ok",
		Sync:     h.manager.Status(r.Context()),
	}

	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
		code = http.StatusServiceUnavailable
	}

	respondData(w, code, status, models.Metadata{})
}
