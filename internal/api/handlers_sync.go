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

// TriggerSync runs one synchronization pass and returns the per-club
// results. Concurrent triggers serialize behind the in-flight run.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	results, err := h.manager.TriggerSync(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SYNC_ERROR", "sync run failed", err)
		return
	}

	respondData(w, http.StatusOK, results, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(results),
	})
}

// ResetSync deletes all local events and rebuilds them from upstream.
// Destructive; the local store is wiped before the run starts, so the
// endpoint is disabled unless sync.allow_destructive_reset is set.
func (h *Handler) ResetSync(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Sync.AllowDestructiveReset {
		respondError(w, http.StatusForbidden, "RESET_DISABLED",
			"destructive reset is disabled; set sync.allow_destructive_reset to enable", nil)
		return
	}

	start := time.Now()
	results, err := h.manager.ForceResync(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SYNC_ERROR", "forced resync failed", err)
		return
	}

	respondData(w, http.StatusOK, results, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(results),
	})
}

// SyncStatus reports run telemetry and per-club token health.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.manager.Status(r.Context()), models.Metadata{})
}
