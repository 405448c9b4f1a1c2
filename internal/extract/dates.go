// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/clubsync/internal/models/strava"
)

// candidateKind tags the known payload shapes for the start time. The
// shapes form an explicit ordered union resolved by priority, not by
// probing fields ad hoc.
type candidateKind int

const (
	kindLocalISO candidateKind = iota
	kindUTCISO
	kindEpoch
	kindText
)

// startCandidate is one temporal signal found in the payload.
type startCandidate struct {
	kind  candidateKind
	iso   string
	epoch int64
	text  string
}

// startCandidates lists the payload's temporal signals in resolution
// priority order.
func startCandidates(raw *strava.GroupEvent) []startCandidate {
	return []startCandidate{
		{kind: kindLocalISO, iso: raw.StartDateLocal},
		{kind: kindUTCISO, iso: raw.StartDate},
		{kind: kindEpoch, epoch: raw.StartTimestamp},
		{kind: kindText, text: raw.Title + " " + raw.Description},
	}
}

// resolve attempts to turn the candidate into a concrete timestamp.
func (c startCandidate) resolve(opts Options) (time.Time, bool) {
	switch c.kind {
	case kindLocalISO:
		return parseISO(c.iso, opts.location())
	case kindUTCISO:
		return parseISO(c.iso, time.UTC)
	case kindEpoch:
		if c.epoch <= 0 {
			return time.Time{}, false
		}
		return time.Unix(c.epoch, 0).In(opts.location()), true
	case kindText:
		return recoverFromText(c.text, opts)
	default:
		return time.Time{}, false
	}
}

// isoLayouts are accepted for explicit timestamp fields, in order. Zone-less
// layouts are interpreted in the supplied location.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseISO parses an ISO-ish timestamp string. Zoned layouts keep their
// offset; zone-less layouts are anchored in loc.
func parseISO(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range isoLayouts[1:] {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Free-text recovery patterns. All matching is case-insensitive against a
// lowercased haystack.
var (
	reISODate   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reSlashDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	reMonthDay  = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	reDayMonth  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
	reWeekday   = regexp.MustCompile(`\b(?:this\s+|next\s+|every\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b`)
	reClockTime = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reHourAmPm  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday, "sunday": time.Sunday,
}

// recoveredTimeOfDay is assumed when the text names a day but no clock
// time. Club runs without an advertised time overwhelmingly meet in the
// evening.
const (
	recoveredHour   = 18
	recoveredMinute = 0
)

// recoverFromText runs the date heuristics over free text, in order:
// explicit ISO date, day-with-month-name, slash date, relative day words,
// weekday names. A clock time found anywhere in the text refines whichever
// date heuristic matched; a clock time alone is not a usable signal.
func recoverFromText(text string, opts Options) (time.Time, bool) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := opts.location()
	now = now.In(loc)
	haystack := strings.ToLower(text)

	hour, minute, hasTime := recoverClockTime(haystack)
	if !hasTime {
		hour, minute = recoveredHour, recoveredMinute
	}

	if y, m, d, ok := recoverCalendarDate(haystack, now); ok {
		t := time.Date(y, m, d, hour, minute, 0, 0, loc)
		// A month/day with no year that already passed means next year.
		if t.Before(now.Add(-24 * time.Hour)) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}

	if dayOffset, ok := recoverRelativeDay(haystack, now); ok {
		base := now.AddDate(0, 0, dayOffset)
		t := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc)
		// "this tuesday" on a Tuesday refers to today only while the time
		// is still ahead.
		if dayOffset == 0 && t.Before(now) {
			t = t.AddDate(0, 0, 7)
		}
		return t, true
	}

	return time.Time{}, false
}

// recoverCalendarDate extracts an explicit date from the haystack.
func recoverCalendarDate(haystack string, now time.Time) (int, time.Month, int, bool) {
	if m := reISODate.FindStringSubmatch(haystack); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if validMonthDay(mo, d) {
			return y, time.Month(mo), d, true
		}
	}
	if m := reMonthDay.FindStringSubmatch(haystack); m != nil {
		d, _ := strconv.Atoi(m[2])
		if mo, ok := monthsByPrefix[m[1]]; ok && validMonthDay(int(mo), d) {
			return now.Year(), mo, d, true
		}
	}
	if m := reDayMonth.FindStringSubmatch(haystack); m != nil {
		d, _ := strconv.Atoi(m[1])
		if mo, ok := monthsByPrefix[m[2]]; ok && validMonthDay(int(mo), d) {
			return now.Year(), mo, d, true
		}
	}
	if m := reSlashDate.FindStringSubmatch(haystack); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		// Day-first order; swap when only the swapped reading is valid.
		if !validMonthDay(mo, d) && validMonthDay(d, mo) {
			d, mo = mo, d
		}
		if validMonthDay(mo, d) {
			year := now.Year()
			if m[3] != "" {
				if y, err := strconv.Atoi(m[3]); err == nil {
					if y < 100 {
						y += 2000
					}
					year = y
				}
			}
			return year, time.Month(mo), d, true
		}
	}
	return 0, 0, 0, false
}

// recoverRelativeDay extracts "today"/"tomorrow"/weekday references and
// returns the day offset from now.
func recoverRelativeDay(haystack string, now time.Time) (int, bool) {
	if strings.Contains(haystack, "today") || strings.Contains(haystack, "tonight") {
		return 0, true
	}
	if strings.Contains(haystack, "tomorrow") {
		return 1, true
	}
	if m := reWeekday.FindStringSubmatch(haystack); m != nil {
		target, ok := weekdaysByName[m[1]]
		if !ok {
			return 0, false
		}
		return int((target - now.Weekday() + 7) % 7), true
	}
	return 0, false
}

// recoverClockTime extracts an explicit time of day from the haystack.
func recoverClockTime(haystack string) (hour, minute int, ok bool) {
	if m := reClockTime.FindStringSubmatch(haystack); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h = adjustMeridiem(h, m[3]); h >= 0 && h < 24 && mi < 60 {
			return h, mi, true
		}
	}
	if m := reHourAmPm.FindStringSubmatch(haystack); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h = adjustMeridiem(h, m[2]); h >= 0 && h < 24 {
			return h, 0, true
		}
	}
	return 0, 0, false
}

// adjustMeridiem applies an am/pm marker to an hour. Returns -1 for
// unusable hours.
func adjustMeridiem(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour < 1 || hour > 12 {
			return -1
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return -1
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return -1
		}
	}
	return hour
}

func validMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
