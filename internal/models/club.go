// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package models defines data structures shared across the Clubsync pipeline:
// tracked clubs, synced events, query filters, and sync-run telemetry.
package models

import (
	"time"
)

// Club is a running club tracked by the synchronization pipeline.
//
// A club exists in two identity spaces: the local auto-generated ID and the
// upstream (Strava) identifier. The upstream identifier is the one embedded
// in deep links back to the platform; using the local ID there produces
// broken, non-navigable URLs, so the two must never be conflated.
type Club struct {
	ID         int64   `json:"id"`
	UpstreamID string  `json:"upstream_id"` // Strava club ID or vanity slug
	Name       string  `json:"name"`
	City       *string `json:"city,omitempty"`

	// Declared attributes, set at registration
	PaceCategories  []string `json:"pace_categories,omitempty"`  // e.g. ["beginner","intermediate"]
	DistanceBuckets []string `json:"distance_buckets,omitempty"` // e.g. ["5-10k"]
	MeetingCadence  *string  `json:"meeting_cadence,omitempty"`  // e.g. "weekly"

	// Credentials used to authenticate sync calls on the club's behalf.
	// Mutated by the orchestrator after each token refresh.
	Credentials Credentials `json:"credentials"`

	// Derived statistics, mutated only after a sync pass.
	Stats ClubStats `json:"stats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials is the OAuth token tuple for a club's upstream account.
// A partial tuple is treated as absent.
type Credentials struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Present reports whether the tuple is fully populated. Partial credential
// states (any field missing) count as absent.
func (c Credentials) Present() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && !c.ExpiresAt.IsZero()
}

// ExpiresWithin reports whether the access token expires before now+window.
// Returns true for absent credentials so callers attempt a refresh.
func (c Credentials) ExpiresWithin(now time.Time, window time.Duration) bool {
	if !c.Present() {
		return true
	}
	return c.ExpiresAt.Before(now.Add(window))
}

// ClubStats holds per-club aggregates recomputed after each sync pass.
type ClubStats struct {
	EventsCount     int        `json:"events_count"`
	AvgParticipants float64    `json:"avg_participants"`
	LastEventAt     *time.Time `json:"last_event_at,omitempty"`
	ActivityScore   int        `json:"activity_score"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
