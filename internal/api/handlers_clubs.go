// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/clubsync/internal/models"
	"github.com/tomtom215/clubsync/internal/store"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Clubs lists all registered clubs ordered by activity score. Credentials
// are stripped from the response.
func (h *Handler) Clubs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	clubs, err := h.manager.QueryClubs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list clubs", err)
		return
	}

	payload := make([]clubView, len(clubs))
	for i := range clubs {
		payload[i] = newClubView(&clubs[i])
	}

	respondData(w, http.StatusOK, payload, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(payload),
	})
}

// GetClub returns one club by local ID.
func (h *Handler) GetClub(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "club id must be numeric", nil)
		return
	}

	club, err := h.store.GetClub(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "club not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to fetch club", err)
		return
	}

	respondData(w, http.StatusOK, newClubView(club), models.Metadata{})
}

// CreateClub registers a club for synchronization.
func (h *Handler) CreateClub(w http.ResponseWriter, r *http.Request) {
	var req CreateClubRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if _, err := h.store.GetClubByUpstreamID(r.Context(), req.UpstreamID); err == nil {
		respondError(w, http.StatusConflict, "ALREADY_EXISTS", "a club with this upstream id is already registered", nil)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to check upstream id", err)
		return
	}

	club := &models.Club{
		UpstreamID:      req.UpstreamID,
		Name:            req.Name,
		PaceCategories:  req.PaceCategories,
		DistanceBuckets: req.DistanceBuckets,
	}
	if req.City != "" {
		club.City = &req.City
	}
	if req.MeetingCadence != "" {
		club.MeetingCadence = &req.MeetingCadence
	}
	if req.AccessToken != "" {
		club.Credentials = models.Credentials{
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			ExpiresAt:    time.Unix(req.ExpiresAt, 0).UTC(),
		}
	}

	if err := h.store.CreateClub(r.Context(), club); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to create club", err)
		return
	}

	respondData(w, http.StatusCreated, newClubView(club), models.Metadata{})
}

// UpdateCredentials replaces a club's OAuth token tuple.
func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "club id must be numeric", nil)
		return
	}

	var req UpdateCredentialsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	creds := models.Credentials{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    time.Unix(req.ExpiresAt, 0).UTC(),
	}
	err = h.store.UpdateClubCredentials(r.Context(), id, creds)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "club not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to update credentials", err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{"status": "updated"}, models.Metadata{})
}

// clubView is the public club representation. Tokens never leave the
// process; only their health is exposed.
type clubView struct {
	ID              int64            `json:"id"`
	UpstreamID      string           `json:"upstream_id"`
	Name            string           `json:"name"`
	City            *string          `json:"city,omitempty"`
	PaceCategories  []string         `json:"pace_categories,omitempty"`
	DistanceBuckets []string         `json:"distance_buckets,omitempty"`
	MeetingCadence  *string          `json:"meeting_cadence,omitempty"`
	HasCredentials  bool             `json:"has_credentials"`
	Stats           models.ClubStats `json:"stats"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func newClubView(club *models.Club) clubView {
	return clubView{
		ID:              club.ID,
		UpstreamID:      club.UpstreamID,
		Name:            club.Name,
		City:            club.City,
		PaceCategories:  club.PaceCategories,
		DistanceBuckets: club.DistanceBuckets,
		MeetingCadence:  club.MeetingCadence,
		HasCredentials:  club.Credentials.Present(),
		Stats:           club.Stats,
		CreatedAt:       club.CreatedAt,
		UpdatedAt:       club.UpdatedAt,
	}
}
