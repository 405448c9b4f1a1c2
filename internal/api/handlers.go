// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package api provides the HTTP surface of Clubsync: club registration,
// event queries, sync control and health endpoints, routed with Chi.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - helpers.go: response and query-param helpers
//   - requests.go: validated request structs
//   - handlers_health.go: health and readiness endpoints
//   - handlers_clubs.go: club registration and listing
//   - handlers_events.go: event query endpoints
//   - handlers_sync.go: sync trigger, reset and status
package api

import (
	"time"

	"github.com/tomtom215/clubsync/internal/config"
	"github.com/tomtom215/clubsync/internal/store"
	clubsync "github.com/tomtom215/clubsync/internal/sync"
)

// Handler contains the dependencies shared by all API handlers.
type Handler struct {
	store   store.Store
	manager *clubsync.Manager
	cfg     *config.Config

	startTime time.Time
	version   string
}

// NewHandler creates an API handler. version is embedded in health
// responses.
func NewHandler(st store.Store, manager *clubsync.Manager, cfg *config.Config, version string) *Handler {
	return &Handler{
		store:     st,
		manager:   manager,
		cfg:       cfg,
		startTime: time.Now(),
		version:   version,
	}
}
