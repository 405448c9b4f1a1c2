// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package strava

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/clubsync/internal/clock"
)

// Rate-limit headers carry two comma-separated values: the 15-minute
// window first, the daily window second.
const (
	headerRateLimit = "X-RateLimit-Limit"
	headerRateUsage = "X-RateLimit-Usage"
)

// resetBuffer pads the computed window boundary so the first request after
// a pause never lands inside the old window due to clock skew.
const resetBuffer = 5 * time.Second

// rateLimitState tracks the platform's shared quota as reported by
// response headers. The dispatcher is the only reader; every completed
// response is a writer, so the counters are mutex-guarded.
type rateLimitState struct {
	mu sync.Mutex

	shortLimit int
	shortUsage int
	dailyLimit int
	dailyUsage int

	// observedAt is when the counters were last refreshed from a response.
	observedAt time.Time

	clk clock.Clock
}

func newRateLimitState(clk clock.Clock) *rateLimitState {
	if clk == nil {
		clk = clock.System{}
	}
	return &rateLimitState{clk: clk}
}

// UpdateFromHeaders refreshes the counters from a response. Absent or
// malformed headers leave the previous observation in place.
func (r *rateLimitState) UpdateFromHeaders(h http.Header) {
	shortLimit, dailyLimit, okLimit := parsePair(h.Get(headerRateLimit))
	shortUsage, dailyUsage, okUsage := parsePair(h.Get(headerRateUsage))
	if !okLimit || !okUsage {
		return
	}

	r.mu.Lock()
	r.shortLimit = shortLimit
	r.shortUsage = shortUsage
	r.dailyLimit = dailyLimit
	r.dailyUsage = dailyUsage
	r.observedAt = r.clk.Now()
	r.mu.Unlock()
}

// PauseUntil returns the instant the dispatcher must wait for before the
// next dispatch, or the zero time when no pause is needed. A pause is
// required when remaining short-window quota is at or below the low-water
// mark and the window has not yet rolled over.
func (r *rateLimitState) PauseUntil(lowWater int) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shortLimit == 0 || r.observedAt.IsZero() {
		return time.Time{}
	}

	now := r.clk.Now()
	reset := nextWindowReset(r.observedAt)
	if !now.Before(reset) {
		// The window the observation belongs to has already rolled over.
		return time.Time{}
	}

	if r.shortLimit-r.shortUsage <= lowWater {
		return reset.Add(resetBuffer)
	}
	if r.dailyLimit > 0 && r.dailyLimit-r.dailyUsage <= 0 {
		// Daily quota gone; the short-window reset will not help, but it
		// is the earliest instant anything can change.
		return reset.Add(resetBuffer)
	}
	return time.Time{}
}

// Snapshot returns the current counters for telemetry.
func (r *rateLimitState) Snapshot() (shortUsage, shortLimit, dailyUsage, dailyLimit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.shortLimit, r.dailyUsage, r.dailyLimit
}

// nextWindowReset computes the end of the 15-minute quota window that
// contains t. Windows are aligned to the quarter hour.
func nextWindowReset(t time.Time) time.Time {
	t = t.UTC()
	aligned := t.Truncate(15 * time.Minute)
	return aligned.Add(15 * time.Minute)
}

// parsePair splits a "short,daily" header value.
func parsePair(v string) (short, daily int, ok bool) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	short, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	daily, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return short, daily, true
}
