// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
)

// Memory is an in-process Store used by tests and ephemeral deployments.
// Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	clubs       map[int64]*models.Club
	events      map[int64]*models.ClubEvent
	eventsByUID map[string]int64
	nextClubID  int64
	nextEventID int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		clubs:       make(map[int64]*models.Club),
		events:      make(map[int64]*models.ClubEvent),
		eventsByUID: make(map[string]int64),
	}
}

func (m *Memory) GetClub(_ context.Context, id int64) (*models.Club, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	club, ok := m.clubs[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *club
	return &c, nil
}

func (m *Memory) GetClubByUpstreamID(_ context.Context, upstreamID string) (*models.Club, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, club := range m.clubs {
		if club.UpstreamID == upstreamID {
			c := *club
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListClubs(_ context.Context) ([]models.Club, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clubs := make([]models.Club, 0, len(m.clubs))
	for _, club := range m.clubs {
		clubs = append(clubs, *club)
	}
	sort.Slice(clubs, func(i, j int) bool {
		if clubs[i].Stats.ActivityScore != clubs[j].Stats.ActivityScore {
			return clubs[i].Stats.ActivityScore > clubs[j].Stats.ActivityScore
		}
		return clubs[i].Name < clubs[j].Name
	})
	return clubs, nil
}

func (m *Memory) CreateClub(_ context.Context, club *models.Club) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextClubID++
	club.ID = m.nextClubID
	now := time.Now().UTC()
	club.CreatedAt = now
	club.UpdatedAt = now
	c := *club
	m.clubs[club.ID] = &c
	return nil
}

func (m *Memory) UpdateClub(_ context.Context, club *models.Club) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.clubs[club.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = club.Name
	existing.City = club.City
	existing.PaceCategories = club.PaceCategories
	existing.DistanceBuckets = club.DistanceBuckets
	existing.MeetingCadence = club.MeetingCadence
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpdateClubCredentials(_ context.Context, id int64, creds models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	club, ok := m.clubs[id]
	if !ok {
		return ErrNotFound
	}
	club.Credentials = creds
	club.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpdateClubStats(_ context.Context, id int64, stats models.ClubStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	club, ok := m.clubs[id]
	if !ok {
		return ErrNotFound
	}
	club.Stats = stats
	club.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id int64) (*models.ClubEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	event, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e := *event
	return &e, nil
}

func (m *Memory) GetEventByUpstreamID(_ context.Context, upstreamID string) (*models.ClubEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.eventsByUID[upstreamID]
	if !ok {
		return nil, ErrNotFound
	}
	e := *m.events[id]
	return &e, nil
}

func (m *Memory) ListEvents(_ context.Context, filter models.EventFilter) ([]models.ClubEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []models.ClubEvent
	for _, event := range m.events {
		if matchesFilter(event, filter) {
			events = append(events, *event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (m *Memory) ListClubEvents(ctx context.Context, clubID int64, since time.Time) ([]models.ClubEvent, error) {
	return m.ListEvents(ctx, models.EventFilter{ClubIDs: []int64{clubID}, From: &since})
}

func (m *Memory) CreateEvent(_ context.Context, event *models.ClubEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	event.ID = m.nextEventID
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	e := *event
	m.events[event.ID] = &e
	m.eventsByUID[event.UpstreamID] = event.ID
	return nil
}

func (m *Memory) UpdateEvent(_ context.Context, event *models.ClubEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[event.ID]
	if !ok {
		return ErrNotFound
	}
	created := existing.CreatedAt
	e := *event
	e.CreatedAt = created
	e.UpdatedAt = time.Now().UTC()
	m.events[event.ID] = &e
	m.eventsByUID[e.UpstreamID] = e.ID
	return nil
}

func (m *Memory) DeleteAllEvents(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.events))
	m.events = make(map[int64]*models.ClubEvent)
	m.eventsByUID = make(map[string]int64)
	return n, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func matchesFilter(event *models.ClubEvent, filter models.EventFilter) bool {
	if len(filter.ClubIDs) > 0 && !containsID(filter.ClubIDs, event.ClubID) {
		return false
	}
	if filter.From != nil && event.StartsAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !event.StartsAt.Before(*filter.To) {
		return false
	}
	if len(filter.PaceCategories) > 0 && !containsString(filter.PaceCategories, string(event.PaceCategory)) {
		return false
	}
	if filter.BeginnerOnly && !event.BeginnerFriendly {
		return false
	}
	if filter.IntervalOnly && !event.IntervalTraining {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}
