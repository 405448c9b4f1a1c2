// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

// EventsRequest holds the validated query parameters for GET /events.
//
// The pace filter values mirror models.PaceCategory; the dive tag applies
// the oneof check to each slice element.
type EventsRequest struct {
	Limit          int      `validate:"min=1,max=1000"`
	PaceCategories []string `validate:"omitempty,dive,oneof=beginner intermediate advanced"`
	From           string   `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To             string   `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// CreateClubRequest is the request body for POST /clubs. The upstream ID
// must be the numeric platform club identifier used in deep links.
type CreateClubRequest struct {
	UpstreamID string `json:"upstream_id" validate:"required,numeric"`
	Name       string `json:"name" validate:"required,min=1,max=200"`
	City       string `json:"city" validate:"omitempty,max=100"`

	PaceCategories  []string `json:"pace_categories" validate:"omitempty,dive,oneof=beginner intermediate advanced"`
	DistanceBuckets []string `json:"distance_buckets" validate:"omitempty,dive,oneof=unknown 0-5k 5-10k 10-21k 21k+"`
	MeetingCadence  string   `json:"meeting_cadence" validate:"omitempty,max=50"`

	AccessToken  string `json:"access_token" validate:"omitempty,min=1"`
	RefreshToken string `json:"refresh_token" validate:"omitempty,min=1"`
	// ExpiresAt is the access token expiry in epoch seconds.
	ExpiresAt int64 `json:"expires_at" validate:"omitempty,gt=0"`
}

// UpdateCredentialsRequest is the request body for PUT /clubs/{id}/credentials.
type UpdateCredentialsRequest struct {
	AccessToken  string `json:"access_token" validate:"required,min=1"`
	RefreshToken string `json:"refresh_token" validate:"required,min=1"`
	ExpiresAt    int64  `json:"expires_at" validate:"required,gt=0"`
}
