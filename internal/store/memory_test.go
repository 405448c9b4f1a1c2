// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
)

func seedClub(t *testing.T, s Store) *models.Club {
	t.Helper()
	club := &models.Club{
		UpstreamID: "123456",
		Name:       "Riverside Runners",
		Credentials: models.Credentials{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
	if err := s.CreateClub(context.Background(), club); err != nil {
		t.Fatalf("CreateClub failed: %v", err)
	}
	return club
}

func seedEvent(t *testing.T, s Store, clubID int64, upstreamID string, startsAt time.Time) *models.ClubEvent {
	t.Helper()
	event := &models.ClubEvent{
		UpstreamID:     upstreamID,
		ClubID:         clubID,
		Title:          "Tempo Tuesday",
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Hour),
		PaceCategory:   models.PaceIntermediate,
		DistanceBucket: models.DistanceMedium,
		URL:            "https://www.strava.com/clubs/123456/group_events/" + upstreamID,
	}
	if err := s.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	return event
}

func TestClubRoundTrip(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)

	got, err := s.GetClub(context.Background(), club.ID)
	if err != nil {
		t.Fatalf("GetClub failed: %v", err)
	}
	if got.UpstreamID != "123456" || got.Name != "Riverside Runners" {
		t.Errorf("unexpected club: %+v", got)
	}

	byUpstream, err := s.GetClubByUpstreamID(context.Background(), "123456")
	if err != nil {
		t.Fatalf("GetClubByUpstreamID failed: %v", err)
	}
	if byUpstream.ID != club.ID {
		t.Errorf("upstream lookup returned wrong club: %d vs %d", byUpstream.ID, club.ID)
	}
}

func TestGetClubNotFound(t *testing.T) {
	s := NewMemory()
	if _, err := s.GetClub(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateClubCredentials(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)

	creds := models.Credentials{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
	}
	if err := s.UpdateClubCredentials(context.Background(), club.ID, creds); err != nil {
		t.Fatalf("UpdateClubCredentials failed: %v", err)
	}

	got, _ := s.GetClub(context.Background(), club.ID)
	if got.Credentials.AccessToken != "new-access" {
		t.Errorf("credentials not persisted: %+v", got.Credentials)
	}
}

func TestUpdateClubStats(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)

	last := time.Now().Add(-24 * time.Hour)
	stats := models.ClubStats{
		EventsCount:     7,
		AvgParticipants: 11.5,
		LastEventAt:     &last,
		ActivityScore:   312,
		UpdatedAt:       time.Now(),
	}
	if err := s.UpdateClubStats(context.Background(), club.ID, stats); err != nil {
		t.Fatalf("UpdateClubStats failed: %v", err)
	}

	got, _ := s.GetClub(context.Background(), club.ID)
	if got.Stats.ActivityScore != 312 || got.Stats.EventsCount != 7 {
		t.Errorf("stats not persisted: %+v", got.Stats)
	}
}

func TestListClubsOrderedByScore(t *testing.T) {
	s := NewMemory()
	a := seedClub(t, s)
	b := &models.Club{UpstreamID: "777", Name: "Alphabet Athletics"}
	if err := s.CreateClub(context.Background(), b); err != nil {
		t.Fatalf("CreateClub failed: %v", err)
	}
	_ = s.UpdateClubStats(context.Background(), b.ID, models.ClubStats{ActivityScore: 500})
	_ = s.UpdateClubStats(context.Background(), a.ID, models.ClubStats{ActivityScore: 100})

	clubs, err := s.ListClubs(context.Background())
	if err != nil {
		t.Fatalf("ListClubs failed: %v", err)
	}
	if len(clubs) != 2 || clubs[0].ID != b.ID {
		t.Errorf("expected highest score first, got %+v", clubs)
	}
}

func TestEventUpstreamIDUnique(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)
	start := time.Now().Add(24 * time.Hour)

	first := seedEvent(t, s, club.ID, "e-1", start)

	// Second sync pass of the same upstream event overwrites, never
	// duplicates.
	updated := *first
	updated.Title = "Tempo Tuesday (rescheduled)"
	updated.StartsAt = start.Add(time.Hour)
	if err := s.UpdateEvent(context.Background(), &updated); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	all, _ := s.ListEvents(context.Background(), models.EventFilter{})
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
	if all[0].Title != "Tempo Tuesday (rescheduled)" {
		t.Errorf("update did not overwrite: %+v", all[0])
	}

	got, err := s.GetEventByUpstreamID(context.Background(), "e-1")
	if err != nil {
		t.Fatalf("GetEventByUpstreamID failed: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("upstream lookup changed identity: %d vs %d", got.ID, first.ID)
	}
}

func TestListEventsFilter(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)
	other := &models.Club{UpstreamID: "999", Name: "Other Club"}
	_ = s.CreateClub(context.Background(), other)

	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	seedEvent(t, s, club.ID, "e-1", base)
	seedEvent(t, s, club.ID, "e-2", base.Add(48*time.Hour))
	seedEvent(t, s, other.ID, "e-3", base)

	from := base.Add(-time.Hour)
	to := base.Add(24 * time.Hour)
	events, err := s.ListEvents(context.Background(), models.EventFilter{
		ClubIDs: []int64{club.ID},
		From:    &from,
		To:      &to,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].UpstreamID != "e-1" {
		t.Errorf("filter returned wrong events: %+v", events)
	}
}

func TestListEventsPaceAndFlags(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	fast := seedEvent(t, s, club.ID, "e-fast", base)
	fast.PaceCategory = models.PaceAdvanced
	fast.IntervalTraining = true
	_ = s.UpdateEvent(context.Background(), fast)

	seedEvent(t, s, club.ID, "e-easy", base.Add(time.Hour))

	events, err := s.ListEvents(context.Background(), models.EventFilter{
		PaceCategories: []string{string(models.PaceAdvanced)},
		IntervalOnly:   true,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].UpstreamID != "e-fast" {
		t.Errorf("expected only the interval event, got %+v", events)
	}
}

func TestDeleteAllEvents(t *testing.T) {
	s := NewMemory()
	club := seedClub(t, s)
	base := time.Now()
	seedEvent(t, s, club.ID, "e-1", base)
	seedEvent(t, s, club.ID, "e-2", base.Add(time.Hour))

	n, err := s.DeleteAllEvents(context.Background())
	if err != nil {
		t.Fatalf("DeleteAllEvents failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	if _, err := s.GetEventByUpstreamID(context.Background(), "e-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after wipe, got %v", err)
	}
}

func TestBuildEventQueryPredicates(t *testing.T) {
	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	query, args := buildEventQuery(models.EventFilter{
		ClubIDs:        []int64{1, 2},
		From:           &from,
		PaceCategories: []string{"beginner"},
		BeginnerOnly:   true,
		Limit:          50,
	})

	for _, want := range []string{"club_id IN (?,?)", "starts_at >= ?", "pace_category IN (?)", "beginner_friendly", "LIMIT ?"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q: %s", want, query)
		}
	}
	if len(args) != 5 {
		t.Errorf("expected 5 args, got %d: %v", len(args), args)
	}
}
