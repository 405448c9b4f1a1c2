// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package extract converts loosely-structured Strava group-event payloads
// into typed ClubEvent fields.
//
// Extraction is a pure function of the payload, the owning club, and the
// supplied options; it touches no ambient state and reads no ambient clock,
// so identical inputs always produce identical fields. The only hard
// failure is DateRecoveryError: a payload with no usable temporal signal
// anywhere, including the free text of its title and description.
package extract

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
	"github.com/tomtom215/clubsync/internal/models/strava"
)

// DateRecoveryError reports that no start time could be recovered from any
// field of the payload. The offending event is skipped and logged during
// sync; it is never fatal to a run.
type DateRecoveryError struct {
	EventID int64
}

func (e *DateRecoveryError) Error() string {
	return fmt.Sprintf("event %d: no usable temporal signal in payload", e.EventID)
}

// defaultEventDuration is assumed when the payload declares no end time and
// no valid duration.
const defaultEventDuration = time.Hour

// maxDeclaredDuration guards against garbage duration values; anything
// longer is treated as undeclared.
const maxDeclaredDuration = 24 * time.Hour

// Options carries the injected context extraction needs.
type Options struct {
	// Location is the club's local zone, used for zone-less timestamps and
	// free-text recovery. Defaults to time.Local.
	Location *time.Location

	// Now is the evaluation instant for relative date words ("this
	// Tuesday", "tomorrow"). Callers inject it from their clock.
	Now time.Time
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// Extract derives the typed ClubEvent fields from a raw upstream payload.
//
// The club argument supplies the upstream identifier embedded in the deep
// link; passing a club with an empty UpstreamID is a programming error and
// yields an unusable URL, so it is rejected outright.
func Extract(raw *strava.GroupEvent, club *models.Club, opts Options) (*models.ClubEvent, error) {
	if club.UpstreamID == "" {
		return nil, fmt.Errorf("club %d has no upstream identifier", club.ID)
	}

	start, err := resolveStart(raw, opts)
	if err != nil {
		return nil, err
	}
	end := resolveEnd(raw, start, opts.location())

	desc := raw.Description
	event := &models.ClubEvent{
		UpstreamID:       strconv.FormatInt(raw.ID, 10),
		ClubID:           club.ID,
		Title:            raw.Title,
		Description:      desc,
		StartsAt:         start,
		EndsAt:           end,
		BeginnerFriendly: hasBeginnerKeyword(desc),
		IntervalTraining: hasIntervalKeyword(raw.Title + " " + desc),
		URL:              DeepLink(club.UpstreamID, raw.ID),
	}

	if raw.Address != "" {
		addr := raw.Address
		event.Location = &addr
	}
	if raw.Distance > 0 {
		d := raw.Distance
		event.DistanceMeters = &d
	}
	event.DistanceBucket = models.BucketDistance(event.DistanceMeters)

	if pace, ok := extractPace(desc); ok {
		event.Pace = &pace
	}
	event.PaceCategory = categorizePace(event.Pace)

	if raw.ParticipantCount > 0 {
		p := raw.ParticipantCount
		event.Participants = &p
	}

	return event, nil
}

// resolveStart applies the ordered start-time candidates: local-zoned ISO,
// UTC ISO, epoch seconds, then free-text recovery. The first candidate that
// parses to a valid timestamp wins.
func resolveStart(raw *strava.GroupEvent, opts Options) (time.Time, error) {
	for _, cand := range startCandidates(raw) {
		if t, ok := cand.resolve(opts); ok {
			return t, nil
		}
	}
	return time.Time{}, &DateRecoveryError{EventID: raw.ID}
}

// resolveEnd applies the end-time fallback chain: explicit local end,
// explicit UTC end, start plus declared duration, start plus one hour.
func resolveEnd(raw *strava.GroupEvent, start time.Time, loc *time.Location) time.Time {
	if t, ok := parseISO(raw.EndDateLocal, loc); ok && t.After(start) {
		return t
	}
	if t, ok := parseISO(raw.EndDate, time.UTC); ok && t.After(start) {
		return t
	}
	if d := time.Duration(raw.DurationSeconds) * time.Second; d > 0 && d <= maxDeclaredDuration {
		return start.Add(d)
	}
	return start.Add(defaultEventDuration)
}
