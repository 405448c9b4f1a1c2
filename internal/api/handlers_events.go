// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/clubsync/internal/models"
)

// Events serves the filtered event list. All filters are optional; the
// result is ordered by start time and capped at the configured page size.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := h.parseEventFilter(r)
	if apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	events, err := h.manager.QueryEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query events", err)
		return
	}

	respondData(w, http.StatusOK, events, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(events),
	})
}

// ClubEvents serves one club's events, honoring the same filters as the
// global list but scoped to the club in the path.
func (h *Handler) ClubEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "club id must be numeric", nil)
		return
	}

	filter, apiErr := h.parseEventFilter(r)
	if apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	filter.ClubIDs = []int64{id}

	start := time.Now()
	events, err := h.manager.QueryEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query events", err)
		return
	}

	respondData(w, http.StatusOK, events, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(events),
	})
}

// parseEventFilter builds an EventFilter from query parameters, validating
// formats and clamping the limit to the configured maximum.
func (h *Handler) parseEventFilter(r *http.Request) (models.EventFilter, *models.APIError) {
	req := EventsRequest{
		Limit:          getIntParam(r, "limit", h.cfg.API.DefaultPageSize),
		PaceCategories: parseCommaSeparated(r.URL.Query().Get("pace")),
		From:           r.URL.Query().Get("from"),
		To:             r.URL.Query().Get("to"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		return models.EventFilter{}, apiErr
	}

	limit := req.Limit
	if limit > h.cfg.API.MaxPageSize {
		limit = h.cfg.API.MaxPageSize
	}

	filter := models.EventFilter{
		ClubIDs:        parseCommaSeparatedInt64s(r.URL.Query().Get("club_ids")),
		PaceCategories: req.PaceCategories,
		BeginnerOnly:   getBoolParam(r, "beginner_only"),
		IntervalOnly:   getBoolParam(r, "interval_only"),
		Limit:          limit,
	}

	from, err := getTimeParam(r, "from")
	if err != nil {
		return models.EventFilter{}, &models.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	filter.From = from

	to, err := getTimeParam(r, "to")
	if err != nil {
		return models.EventFilter{}, &models.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	filter.To = to

	return filter, nil
}
