// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package clock abstracts the ambient system clock so that every
// time-sensitive computation (scoring decay, cache TTLs, date recovery)
// can be driven by a fixed instant in tests.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the real system clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed struct {
	Instant time.Time
}

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return f.Instant }

// At is shorthand for a Fixed clock at the given instant.
func At(t time.Time) Fixed { return Fixed{Instant: t} }
