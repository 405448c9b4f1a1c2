// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
	"github.com/tomtom215/clubsync/internal/models/strava"
)

// checkStringEqual checks that got equals want, failing if not
func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

// checkTimeEqual checks that got and want are the same instant
func checkTimeEqual(t *testing.T, fieldName string, got, want time.Time) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: expected %s, got %s", fieldName, want, got)
	}
}

// checkBoolEqual checks that got equals want
func checkBoolEqual(t *testing.T, fieldName string, got, want bool) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %v, got %v", fieldName, want, got)
	}
}

func testClub() *models.Club {
	return &models.Club{ID: 7, UpstreamID: "123456", Name: "Riverside Runners"}
}

// fixedNow is a Thursday.
var fixedNow = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{Location: time.UTC, Now: fixedNow}
}

func TestExtractPrefersLocalISO(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:             42,
		Title:          "Long Run",
		StartDateLocal: "2026-03-14T08:00:00",
		StartDate:      "2026-03-14T07:00:00Z",
		StartTimestamp: 1234567890,
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checkTimeEqual(t, "StartsAt", event.StartsAt, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))
	checkTimeEqual(t, "EndsAt", event.EndsAt, event.StartsAt.Add(time.Hour))
	checkStringEqual(t, "UpstreamID", event.UpstreamID, "42")
}

func TestExtractFallsBackToEpoch(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:             9,
		Title:          "Hill Session",
		StartTimestamp: fixedNow.Add(48 * time.Hour).Unix(),
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checkTimeEqual(t, "StartsAt", event.StartsAt, fixedNow.Add(48*time.Hour))
}

func TestExtractRecoversThisTuesday(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:          11,
		Title:       "Tempo Tuesday",
		Description: "Meet this Tuesday at 18:00 by the boathouse",
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// 2026-03-12 is a Thursday, so the next Tuesday is 2026-03-17.
	checkTimeEqual(t, "StartsAt", event.StartsAt, time.Date(2026, 3, 17, 18, 0, 0, 0, time.UTC))
	checkBoolEqual(t, "IntervalTraining", event.IntervalTraining, true)
}

func TestExtractRecoveryDefaultsToEvening(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:          12,
		Title:       "Saturday social run",
		Description: "easy miles, all paces welcome",
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checkTimeEqual(t, "StartsAt", event.StartsAt, time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	checkBoolEqual(t, "BeginnerFriendly", event.BeginnerFriendly, true)
}

func TestExtractSameWeekdayRollsForwardWhenPassed(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:          13,
		Description: "Thursday 9:00am shakeout",
	}

	// Now is Thursday 10:00, so 9:00 today has passed.
	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checkTimeEqual(t, "StartsAt", event.StartsAt, time.Date(2026, 3, 19, 9, 0, 0, 0, time.UTC))
}

func TestExtractNoTemporalSignal(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:          14,
		Title:       "Mystery run",
		Description: "details to follow",
	}

	_, err := Extract(raw, testClub(), testOptions())
	var dre *DateRecoveryError
	if !errors.As(err, &dre) {
		t.Fatalf("expected DateRecoveryError, got %v", err)
	}
	if dre.EventID != 14 {
		t.Errorf("EventID: expected 14, got %d", dre.EventID)
	}
}

func TestExtractDeclaredDuration(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:              15,
		StartDateLocal:  "2026-03-14T08:00:00",
		DurationSeconds: 5400,
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checkTimeEqual(t, "EndsAt", event.EndsAt, event.StartsAt.Add(90*time.Minute))
}

func TestExtractGarbageDurationIgnored(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:              16,
		StartDateLocal:  "2026-03-14T08:00:00",
		DurationSeconds: 999999,
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checkTimeEqual(t, "EndsAt", event.EndsAt, event.StartsAt.Add(time.Hour))
}

func TestExtractPaceAndDistance(t *testing.T) {
	raw := &strava.GroupEvent{
		ID:             17,
		Title:          "Progression run",
		Description:    "target 5:30/km over 12k",
		StartDateLocal: "2026-03-14T08:00:00",
		Distance:       12000,
		Address:        "Main gate",
	}

	event, err := Extract(raw, testClub(), testOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if event.Pace == nil {
		t.Fatal("Pace should not be nil")
	}
	checkStringEqual(t, "Pace", *event.Pace, "5:30/km")
	checkStringEqual(t, "PaceCategory", string(event.PaceCategory), string(models.PaceIntermediate))
	checkStringEqual(t, "DistanceBucket", string(event.DistanceBucket), string(models.DistanceLong))
	if event.Location == nil || *event.Location != "Main gate" {
		t.Errorf("Location: expected Main gate, got %v", event.Location)
	}
}

func TestExtractRejectsClubWithoutUpstreamID(t *testing.T) {
	raw := &strava.GroupEvent{ID: 18, StartDateLocal: "2026-03-14T08:00:00"}
	club := &models.Club{ID: 3}

	if _, err := Extract(raw, club, testOptions()); err == nil {
		t.Fatal("expected error for club without upstream id")
	}
}

func TestDeepLinkUsesUpstreamClubID(t *testing.T) {
	got := DeepLink("987654", 42)
	checkStringEqual(t, "DeepLink", got, "https://www.strava.com/clubs/987654/group_events/42")
}

func TestCategorizePace(t *testing.T) {
	cases := []struct {
		pace *string
		want models.PaceCategory
	}{
		{nil, models.PaceBeginner},
		{strptr("7:00/km"), models.PaceBeginner},
		{strptr("6:00/km"), models.PaceBeginner},
		{strptr("5:59/km"), models.PaceIntermediate},
		{strptr("5:00/km"), models.PaceIntermediate},
		{strptr("4:59/km"), models.PaceAdvanced},
		{strptr("3:30/km"), models.PaceAdvanced},
	}
	for _, tc := range cases {
		got := categorizePace(tc.pace)
		if got != tc.want {
			t.Errorf("categorizePace(%v): expected %s, got %s", tc.pace, tc.want, got)
		}
	}
}

func TestRecoverCalendarDateVariants(t *testing.T) {
	cases := []struct {
		text string
		want time.Time
	}{
		{"race day 2026-04-05", time.Date(2026, 4, 5, 18, 0, 0, 0, time.UTC)},
		{"join us on 5/4", time.Date(2026, 4, 5, 18, 0, 0, 0, time.UTC)},
		{"kickoff march 20th at 7pm", time.Date(2026, 3, 20, 19, 0, 0, 0, time.UTC)},
		{"the 21st of march", time.Date(2026, 3, 21, 18, 0, 0, 0, time.UTC)},
		{"tomorrow at 6:30am", time.Date(2026, 3, 13, 6, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := recoverFromText(tc.text, testOptions())
		if !ok {
			t.Errorf("recoverFromText(%q): no date recovered", tc.text)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("recoverFromText(%q): expected %s, got %s", tc.text, tc.want, got)
		}
	}
}

func TestRecoverTimeAloneInsufficient(t *testing.T) {
	if _, ok := recoverFromText("starts at 18:00 sharp", testOptions()); ok {
		t.Error("a bare clock time should not recover a date")
	}
}

func strptr(s string) *string { return &s }
