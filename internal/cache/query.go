// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/models"
)

const (
	eventQueryPrefix = "events"
	clubListKey      = "clubs:all"
	syncStatusKey    = "sync:status"

	// syncStatusTTL keeps run telemetry alive across the status endpoint's
	// polling interval. Telemetry is ephemeral; reset-on-restart is fine.
	syncStatusTTL = 24 * time.Hour
)

// QueryCache fronts event and club reads with predicate-keyed entries.
//
// Keys are canonical digests of the query predicate: array-valued fields
// are sorted and date bounds truncated to day granularity, so near-identical
// queries share an entry. Each data class has its own TTL; events churn on
// every sync pass while club metadata changes rarely.
//
// Invalidation is deliberately conservative: a club-scoped invalidation
// evicts every entry whose predicate did not name specific clubs, plus any
// entry whose club list contains the club. Over-invalidation costs one
// store round-trip; a stale hit serves wrong data.
type QueryCache struct {
	cache    *Cache
	eventTTL time.Duration
	clubTTL  time.Duration

	mu     sync.Mutex // guards scopes
	scopes map[string][]int64
}

// NewQueryCache builds the query cache with separate TTLs per data class.
func NewQueryCache(eventTTL, clubTTL time.Duration, clk clock.Clock) *QueryCache {
	c := NewWithClock(eventTTL, clk)
	c.SetMetricsLabel("query")
	return &QueryCache{
		cache:    c,
		eventTTL: eventTTL,
		clubTTL:  clubTTL,
		scopes:   make(map[string][]int64),
	}
}

// normalizedFilter is the canonical form of an EventFilter used for key
// derivation. Field order and normalization rules are part of the cache
// contract: changing them invalidates every key.
type normalizedFilter struct {
	ClubIDs        []int64  `json:"club_ids,omitempty"`
	FromDay        string   `json:"from_day,omitempty"`
	ToDay          string   `json:"to_day,omitempty"`
	PaceCategories []string `json:"pace_categories,omitempty"`
	BeginnerOnly   bool     `json:"beginner_only,omitempty"`
	IntervalOnly   bool     `json:"interval_only,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

// normalize sorts array fields and truncates date bounds to day granularity.
func normalize(f models.EventFilter) normalizedFilter {
	n := normalizedFilter{
		BeginnerOnly: f.BeginnerOnly,
		IntervalOnly: f.IntervalOnly,
		Limit:        f.Limit,
	}
	if len(f.ClubIDs) > 0 {
		n.ClubIDs = append([]int64(nil), f.ClubIDs...)
		sort.Slice(n.ClubIDs, func(i, j int) bool { return n.ClubIDs[i] < n.ClubIDs[j] })
	}
	if len(f.PaceCategories) > 0 {
		n.PaceCategories = append([]string(nil), f.PaceCategories...)
		sort.Strings(n.PaceCategories)
	}
	if f.From != nil {
		n.FromDay = f.From.UTC().Format("2006-01-02")
	}
	if f.To != nil {
		n.ToDay = f.To.UTC().Format("2006-01-02")
	}
	return n
}

// QueryKey derives the canonical cache key for an event filter.
func QueryKey(f models.EventFilter) string {
	return GenerateKey(eventQueryPrefix, normalize(f))
}

// GetEvents returns the cached result set for the filter, if present and fresh.
func (q *QueryCache) GetEvents(f models.EventFilter) ([]models.ClubEvent, bool) {
	v, ok := q.cache.Get(QueryKey(f))
	if !ok {
		return nil, false
	}
	events, ok := v.([]models.ClubEvent)
	return events, ok
}

// PutEvents caches a result set under the filter's canonical key and records
// the club scope for targeted invalidation.
func (q *QueryCache) PutEvents(f models.EventFilter, events []models.ClubEvent) {
	key := QueryKey(f)
	q.cache.SetWithTTL(key, events, q.eventTTL)

	q.mu.Lock()
	q.scopes[key] = append([]int64(nil), f.ClubIDs...)
	q.mu.Unlock()
}

// GetClubs returns the cached club directory, if present and fresh.
func (q *QueryCache) GetClubs() ([]models.Club, bool) {
	v, ok := q.cache.Get(clubListKey)
	if !ok {
		return nil, false
	}
	clubs, ok := v.([]models.Club)
	return clubs, ok
}

// PutClubs caches the club directory under the metadata TTL.
func (q *QueryCache) PutClubs(clubs []models.Club) {
	q.cache.SetWithTTL(clubListKey, clubs, q.clubTTL)
}

// InvalidateClub evicts every event entry that could contain the club's
// events: entries with no club scope (the "all" keys) and entries whose
// scope includes the club. Entries scoped to other clubs are retained.
// The club directory is evicted unconditionally since stats changed.
func (q *QueryCache) InvalidateClub(clubID int64) {
	q.mu.Lock()
	for key, ids := range q.scopes {
		if scopeCovers(ids, clubID) {
			q.cache.Delete(key)
			delete(q.scopes, key)
		}
	}
	q.mu.Unlock()

	q.cache.Delete(clubListKey)
}

// scopeCovers reports whether a cached predicate's club-id scope could
// include the given club. An empty scope means the query was unscoped.
func scopeCovers(ids []int64, clubID int64) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == clubID {
			return true
		}
	}
	return false
}

// Flush evicts everything except the sync telemetry slot.
func (q *QueryCache) Flush() {
	status, hadStatus := q.SyncStatus()

	q.mu.Lock()
	q.scopes = make(map[string][]int64)
	q.mu.Unlock()
	q.cache.Clear()

	if hadStatus {
		q.SetSyncStatus(status)
	}
}

// SetSyncStatus stores run telemetry. Telemetry lives in the cache layer,
// not the relational store.
func (q *QueryCache) SetSyncStatus(status models.SyncStatus) {
	q.cache.SetWithTTL(syncStatusKey, status, syncStatusTTL)
}

// SyncStatus returns the last stored run telemetry.
func (q *QueryCache) SyncStatus() (models.SyncStatus, bool) {
	v, ok := q.cache.Get(syncStatusKey)
	if !ok {
		return models.SyncStatus{}, false
	}
	status, ok := v.(models.SyncStatus)
	return status, ok
}

// Stats exposes the underlying cache counters.
func (q *QueryCache) Stats() Stats {
	return q.cache.GetStats()
}

// Close stops the underlying cache's cleanup goroutine.
func (q *QueryCache) Close() {
	q.cache.Close()
}
