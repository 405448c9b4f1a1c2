// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package score derives a club's activity score from its recent event
// history.
//
// The score ranks clubs by recent engagement: how many events they held in
// the trailing two months, how regularly they hold them, how recently the
// last one happened, and how many runners turn up. Computation is a pure
// function of its input; the evaluation instant is injected so callers
// control it and tests can pin it.
package score

import (
	"math"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
)

// Window is the trailing period events are counted over.
const Window = 2 * 30 * 24 * time.Hour

// weeksInWindow approximates the number of weeks in the two-month window,
// used to convert the event count into a per-week frequency bonus.
const weeksInWindow = 8.7

// Input carries everything the score depends on.
type Input struct {
	// RecentEventCount is the number of events inside the window ending
	// at Now.
	RecentEventCount int

	// AvgParticipants is the mean participant count across recent events.
	AvgParticipants float64

	// LastEventAt is the most recent event's start time; nil when the club
	// has never held one.
	LastEventAt *time.Time

	// Now is the evaluation instant.
	Now time.Time
}

// Compute returns the activity score for the given input.
//
// score = count*15 + avgParticipants*5 + recency + frequency, rounded and
// floored at zero. Recency decays as max(0, 150 - days^1.2); frequency is
// min(150, round(count/8.7 * 40)). Any NaN component is coerced to zero so
// a single bad metric cannot poison the score.
func Compute(in Input) int {
	count := float64(in.RecentEventCount)
	avg := sanitize(in.AvgParticipants)

	recency := 0.0
	if in.LastEventAt != nil {
		days := in.Now.Sub(*in.LastEventAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		recency = math.Max(0, 150-math.Pow(days, 1.2))
	}

	frequency := math.Min(150, math.Round(count/weeksInWindow*40))

	total := count*15 + avg*5 + sanitize(recency) + sanitize(frequency)
	total = math.Round(sanitize(total))
	if total < 0 {
		return 0
	}
	return int(total)
}

// FromEvents builds the scoring input from a club's event list, keeping
// only events inside the window. Events are not assumed sorted.
func FromEvents(events []models.ClubEvent, now time.Time) Input {
	cutoff := now.Add(-Window)

	var (
		count        int
		participants int
		withCount    int
		last         *time.Time
	)
	for i := range events {
		e := &events[i]
		if e.StartsAt.Before(cutoff) || e.StartsAt.After(now) {
			continue
		}
		count++
		if e.Participants != nil {
			participants += *e.Participants
			withCount++
		}
		if last == nil || e.StartsAt.After(*last) {
			t := e.StartsAt
			last = &t
		}
	}

	avg := 0.0
	if withCount > 0 {
		avg = float64(participants) / float64(withCount)
	}

	return Input{
		RecentEventCount: count,
		AvgParticipants:  avg,
		LastEventAt:      last,
		Now:              now,
	}
}

// sanitize coerces NaN and infinities to zero.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
