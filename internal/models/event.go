// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package models

import "time"

// PaceCategory buckets a club run by its advertised pace per kilometer.
type PaceCategory string

const (
	PaceBeginner     PaceCategory = "beginner"     // >= 6:00 min/km, or no pace advertised
	PaceIntermediate PaceCategory = "intermediate" // 5:00 - 5:59 min/km
	PaceAdvanced     PaceCategory = "advanced"     // < 5:00 min/km
)

// DistanceBucket buckets a run by its declared distance.
type DistanceBucket string

const (
	DistanceUnknown DistanceBucket = "unknown"
	DistanceShort   DistanceBucket = "0-5k"
	DistanceMedium  DistanceBucket = "5-10k"
	DistanceLong    DistanceBucket = "10-21k"
	DistanceUltra   DistanceBucket = "21k+"
)

// BucketDistance maps a distance in meters to its bucket.
func BucketDistance(meters *float64) DistanceBucket {
	if meters == nil || *meters <= 0 {
		return DistanceUnknown
	}
	switch m := *meters; {
	case m < 5000:
		return DistanceShort
	case m < 10000:
		return DistanceMedium
	case m < 21100:
		return DistanceLong
	default:
		return DistanceUltra
	}
}

// ClubEvent is the locally persisted representation of one upstream event.
//
// Identity is tied 1:1 to the upstream event identifier: at most one local
// record exists per upstream ID, enforced by upsert-by-id during
// reconciliation, never by blind insert. Records are created on first sync
// observation and fully overwritten on every subsequent observation;
// upstream is authoritative. The pipeline never deletes individual events.
type ClubEvent struct {
	ID         int64  `json:"id"`
	UpstreamID string `json:"upstream_id"`
	ClubID     int64  `json:"club_id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	StartsAt time.Time `json:"starts_at"`
	// EndsAt defaults to StartsAt+1h when the upstream payload carries no
	// recoverable end signal.
	EndsAt time.Time `json:"ends_at"`

	Location       *string  `json:"location,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`

	// Derived fields
	Pace             *string        `json:"pace,omitempty"` // e.g. "5:30"
	PaceCategory     PaceCategory   `json:"pace_category"`
	DistanceBucket   DistanceBucket `json:"distance_bucket"`
	BeginnerFriendly bool           `json:"beginner_friendly"`
	IntervalTraining bool           `json:"interval_training"`

	Participants *int `json:"participants,omitempty"`

	// URL is the canonical deep link back to the upstream event. It embeds
	// the owning club's upstream identifier, never the local numeric ID.
	URL string `json:"url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventFilter is the query predicate for event reads. Its canonical digest
// is the cache key, so semantically identical filters must normalize to the
// same digest (see cache.QueryKey).
type EventFilter struct {
	ClubIDs        []int64    `json:"club_ids,omitempty"`
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
	PaceCategories []string   `json:"pace_categories,omitempty"`
	BeginnerOnly   bool       `json:"beginner_only,omitempty"`
	IntervalOnly   bool       `json:"interval_only,omitempty"`
	Limit          int        `json:"limit,omitempty"`
}
