// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package models

import (
	"time"

	"github.com/google/uuid"
)

// ClubSyncResult summarizes the outcome of one club within a sync run.
// Exactly one of (Added+Updated+Skipped counts) or Error is meaningful:
// a club that errored before reconciliation reports zero counts.
type ClubSyncResult struct {
	ClubID   int64         `json:"club_id"`
	ClubName string        `json:"club_name"`
	Added    int           `json:"added"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"` // events dropped for unrecoverable dates
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// SyncError is one entry in the rolling recent-error list.
type SyncError struct {
	At      time.Time `json:"at"`
	ClubID  int64     `json:"club_id,omitempty"`
	Message string    `json:"message"`
}

// SyncStatus is the run telemetry exposed by the status endpoint. It lives
// in the cache layer, not the relational store, and resets on restart.
type SyncStatus struct {
	LastRunID     uuid.UUID     `json:"last_run_id,omitempty"`
	LastAttemptAt *time.Time    `json:"last_attempt_at,omitempty"`
	LastSuccessAt *time.Time    `json:"last_success_at,omitempty"`
	NextRunAt     *time.Time    `json:"next_run_at,omitempty"`
	Running       bool          `json:"running"`
	TotalAdded    int           `json:"total_added"`
	TotalUpdated  int           `json:"total_updated"`
	TotalFailed   int           `json:"total_failed"`
	RecentErrors  []SyncError   `json:"recent_errors,omitempty"` // most recent first, bounded
	TokenHealth   []TokenHealth `json:"token_health,omitempty"`
}

// TokenHealth reports per-club credential state for the status endpoint.
type TokenHealth struct {
	ClubID    int64      `json:"club_id"`
	ClubName  string     `json:"club_name"`
	Present   bool       `json:"present"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
