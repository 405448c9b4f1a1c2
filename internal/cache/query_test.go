// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package cache

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/models"
)

func newQueryCache(t *testing.T) *QueryCache {
	t.Helper()
	qc := NewQueryCache(5*time.Minute, 10*time.Minute, clock.At(testNow))
	t.Cleanup(qc.Close)
	return qc
}

func sampleEvents(clubID int64, titles ...string) []models.ClubEvent {
	events := make([]models.ClubEvent, 0, len(titles))
	for i, title := range titles {
		events = append(events, models.ClubEvent{
			ID:         int64(i + 1),
			ClubID:     clubID,
			UpstreamID: strconv.Itoa(1000 + i),
			Title:      title,
			StartsAt:   testNow.Add(time.Duration(i+1) * 24 * time.Hour),
		})
	}
	return events
}

func TestQueryKeyNormalization(t *testing.T) {
	from1 := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)
	from2 := time.Date(2026, 3, 12, 22, 30, 0, 0, time.UTC)

	a := models.EventFilter{
		ClubIDs:        []int64{2, 1},
		PaceCategories: []string{"intermediate", "beginner"},
		From:           &from1,
	}
	b := models.EventFilter{
		ClubIDs:        []int64{1, 2},
		PaceCategories: []string{"beginner", "intermediate"},
		From:           &from2,
	}

	if QueryKey(a) != QueryKey(b) {
		t.Error("equivalent filters should share a cache key")
	}

	c := models.EventFilter{ClubIDs: []int64{1, 3}}
	if QueryKey(a) == QueryKey(c) {
		t.Error("different club scopes should not share a cache key")
	}
}

func TestQueryKeyDayTruncation(t *testing.T) {
	sameDay := time.Date(2026, 3, 12, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 13, 0, 1, 0, 0, time.UTC)

	a := models.EventFilter{From: &sameDay}
	b := models.EventFilter{From: &nextDay}
	if QueryKey(a) == QueryKey(b) {
		t.Error("filters on different days should not share a cache key")
	}
}

func TestPutGetEvents(t *testing.T) {
	qc := newQueryCache(t)
	filter := models.EventFilter{ClubIDs: []int64{7}}

	if _, ok := qc.GetEvents(filter); ok {
		t.Error("expected miss before Put")
	}

	qc.PutEvents(filter, sampleEvents(7, "Tempo Tuesday"))
	events, ok := qc.GetEvents(filter)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if len(events) != 1 || events[0].Title != "Tempo Tuesday" {
		t.Errorf("unexpected cached events: %+v", events)
	}
}

func TestInvalidateClubScoping(t *testing.T) {
	qc := newQueryCache(t)

	scoped7 := models.EventFilter{ClubIDs: []int64{7}}
	scoped9 := models.EventFilter{ClubIDs: []int64{9}}
	unscoped := models.EventFilter{}

	qc.PutEvents(scoped7, sampleEvents(7, "Hill Repeats"))
	qc.PutEvents(scoped9, sampleEvents(9, "Long Run"))
	qc.PutEvents(unscoped, sampleEvents(7, "Hill Repeats"))
	qc.PutClubs([]models.Club{{ID: 7, Name: "Northside Striders"}})

	qc.InvalidateClub(7)

	if _, ok := qc.GetEvents(scoped7); ok {
		t.Error("entry scoped to the invalidated club survived")
	}
	if _, ok := qc.GetEvents(unscoped); ok {
		t.Error("unscoped entry survived invalidation")
	}
	if _, ok := qc.GetEvents(scoped9); !ok {
		t.Error("entry scoped to another club was evicted")
	}
	if _, ok := qc.GetClubs(); ok {
		t.Error("club directory survived invalidation")
	}
}

func TestClubsCached(t *testing.T) {
	qc := newQueryCache(t)

	clubs := []models.Club{{ID: 1, UpstreamID: "42", Name: "Riverside Runners"}}
	qc.PutClubs(clubs)

	got, ok := qc.GetClubs()
	if !ok {
		t.Fatal("expected club directory hit")
	}
	if len(got) != 1 || got[0].Name != "Riverside Runners" {
		t.Errorf("unexpected cached clubs: %+v", got)
	}
}

func TestFlushPreservesSyncStatus(t *testing.T) {
	qc := newQueryCache(t)

	qc.PutEvents(models.EventFilter{}, sampleEvents(1, "Track Night"))
	status := models.SyncStatus{LastRunID: uuid.New(), TotalAdded: 3}
	qc.SetSyncStatus(status)

	qc.Flush()

	if _, ok := qc.GetEvents(models.EventFilter{}); ok {
		t.Error("event entries survived Flush")
	}
	got, ok := qc.SyncStatus()
	if !ok {
		t.Fatal("sync status lost on Flush")
	}
	if got.LastRunID != status.LastRunID || got.TotalAdded != 3 {
		t.Errorf("sync status mangled by Flush: %+v", got)
	}
}
