// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package strava defines the wire types for the Strava v3 API endpoints the
// pipeline consumes. Upstream payloads are loosely structured: the same
// event can carry its start time in any of four shapes (local-zoned ISO,
// UTC ISO, epoch seconds, or only free text in the description), and
// numeric fields arrive as zero rather than null when absent.
package strava

// GroupEvent is one event from GET /clubs/{id}/group_events.
//
// Temporal fields, in the extraction priority order:
//   - StartDateLocal: ISO 8601 in the club's local zone
//   - StartDate: ISO 8601 UTC
//   - StartTimestamp: epoch seconds
//
// Any or all of them can be empty/zero on malformed payloads; the field
// extractor then falls back to free-text recovery from Title+Description.
type GroupEvent struct {
	ID          int64  `json:"id"`
	ClubID      int64  `json:"club_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`

	StartDateLocal string `json:"start_date_local"`
	StartDate      string `json:"start_date"`
	StartTimestamp int64  `json:"start_timestamp"`

	EndDateLocal    string `json:"end_date_local"`
	EndDate         string `json:"end_date"`
	DurationSeconds int64  `json:"duration_seconds"`

	Distance         float64 `json:"distance"` // meters; 0 when not declared
	ParticipantCount int     `json:"participant_count"`

	UpcomingOccurrences []string `json:"upcoming_occurrences,omitempty"`
}

// SummaryClub is one club from GET /athlete/clubs.
type SummaryClub struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"` // vanity slug used in club deep links
	City        string `json:"city"`
	MemberCount int    `json:"member_count"`
	SportType   string `json:"sport_type"`
}

// TokenResponse is the payload of POST /oauth/token for both the
// authorization-code exchange and the refresh grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // epoch seconds
	TokenType    string `json:"token_type"`
}

// Fault is Strava's error envelope for non-2xx responses.
type Fault struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
	} `json:"errors"`
}
