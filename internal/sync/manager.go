// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package sync orchestrates the periodic synchronization of club events
// from the platform into the local store.
//
// Clubs are processed sequentially within a run so all outbound calls share
// one rate-limited client; per-club failures are isolated and recorded in
// run telemetry without aborting the rest of the run.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/clubsync/internal/cache"
	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/models"
	"github.com/tomtom215/clubsync/internal/models/strava"
	"github.com/tomtom215/clubsync/internal/store"
)

// PlatformClient is the outbound API surface the orchestrator needs. Both
// the plain client and its circuit-breaker wrapper satisfy it.
type PlatformClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error)
	ListClubEvents(ctx context.Context, accessToken string, clubID int64) ([]strava.GroupEvent, error)
	RateLimitSnapshot() (shortUsage, shortLimit, dailyUsage, dailyLimit int)
}

// Config tunes the sync orchestrator.
type Config struct {
	// Interval between scheduled runs.
	Interval time.Duration

	// RefreshWindow refreshes tokens that expire within it, so a token
	// never dies mid-run.
	RefreshWindow time.Duration

	// Location is the local zone for free-text date recovery.
	Location *time.Location

	// RunTimeout bounds one full run.
	RunTimeout time.Duration

	// MaxRecentErrors bounds the rolling error list in telemetry.
	MaxRecentErrors int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.RefreshWindow <= 0 {
		c.RefreshWindow = 30 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 15 * time.Minute
	}
	if c.MaxRecentErrors <= 0 {
		c.MaxRecentErrors = 20
	}
	return c
}

// Manager owns the sync lifecycle: the periodic loop, manual triggers, the
// destructive full resync, and the cached read path.
type Manager struct {
	store  store.Store
	client PlatformClient
	cache  *cache.QueryCache
	cfg    Config
	clk    clock.Clock

	// syncMu serializes sync runs; scheduled and manual runs never
	// interleave.
	syncMu sync.Mutex

	// mu protects the lifecycle and telemetry fields below.
	mu       sync.RWMutex
	running  bool
	status   models.SyncStatus
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager builds a sync manager. cache may not be nil; the read path and
// run telemetry both live there.
func NewManager(st store.Store, client PlatformClient, qc *cache.QueryCache, cfg Config, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.System{}
	}
	return &Manager{
		store:    st,
		client:   client,
		cache:    qc,
		cfg:      cfg.withDefaults(),
		clk:      clk,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic synchronization loop. The first run happens in
// the background immediately so startup is not blocked.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.mu.Unlock()

	logging.Info().Dur("interval", m.cfg.Interval).Msg("Starting sync manager")

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		if _, err := m.TriggerSync(ctx); err != nil {
			logging.Warn().Err(err).Msg("Initial sync failed (will retry on schedule)")
		}
	}()
	go m.syncLoop(ctx)

	return nil
}

// Stop gracefully stops the loop and waits for an in-flight run.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager")
	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// syncLoop runs the scheduled synchronization.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if _, err := m.TriggerSync(ctx); err != nil {
				logging.Error().Err(err).Msg("Scheduled sync failed")
			}
		}
	}
}

// TriggerSync runs one full synchronization pass and returns the per-club
// results. Concurrent invocations serialize on syncMu.
func (m *Manager) TriggerSync(ctx context.Context) ([]models.ClubSyncResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.RunTimeout)
	defer cancel()
	return m.run(runCtx)
}

// ForceResync deletes every local event, flushes the cache, and performs a
// full reconciliation from upstream. Irreversible.
func (m *Manager) ForceResync(ctx context.Context) ([]models.ClubSyncResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	deleted, err := m.store.DeleteAllEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("force resync: %w", err)
	}
	m.cache.Flush()
	logging.Warn().Int64("deleted", deleted).Msg("Forced resync: local events wiped, starting full reconciliation")

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.RunTimeout)
	defer cancel()
	return m.run(runCtx)
}

// Status reports run telemetry plus current token health.
func (m *Manager) Status(ctx context.Context) models.SyncStatus {
	status, _ := m.cache.SyncStatus()

	m.mu.RLock()
	status.Running = m.running
	m.mu.RUnlock()

	clubs, err := m.store.ListClubs(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Token health unavailable")
		return status
	}
	status.TokenHealth = status.TokenHealth[:0]
	for i := range clubs {
		club := &clubs[i]
		th := models.TokenHealth{
			ClubID:   club.ID,
			ClubName: club.Name,
			Present:  club.Credentials.Present(),
		}
		if th.Present {
			t := club.Credentials.ExpiresAt
			th.ExpiresAt = &t
		}
		status.TokenHealth = append(status.TokenHealth, th)
	}
	return status
}

// QueryEvents serves the cached read path for event queries. A cache miss
// falls through to the store and populates the cache.
func (m *Manager) QueryEvents(ctx context.Context, filter models.EventFilter) ([]models.ClubEvent, error) {
	if events, ok := m.cache.GetEvents(filter); ok {
		return events, nil
	}
	events, err := m.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	m.cache.PutEvents(filter, events)
	return events, nil
}

// QueryClubs serves the cached read path for the club list.
func (m *Manager) QueryClubs(ctx context.Context) ([]models.Club, error) {
	if clubs, ok := m.cache.GetClubs(); ok {
		return clubs, nil
	}
	clubs, err := m.store.ListClubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clubs: %w", err)
	}
	m.cache.PutClubs(clubs)
	return clubs, nil
}

// recordRun folds one run's results into the cached telemetry.
func (m *Manager) recordRun(runID uuid.UUID, startedAt time.Time, results []models.ClubSyncResult) {
	status, _ := m.cache.SyncStatus()

	now := m.clk.Now()
	next := now.Add(m.cfg.Interval)
	status.LastRunID = runID
	status.LastAttemptAt = &startedAt
	status.NextRunAt = &next
	status.TotalAdded = 0
	status.TotalUpdated = 0
	status.TotalFailed = 0

	failed := 0
	for _, r := range results {
		status.TotalAdded += r.Added
		status.TotalUpdated += r.Updated
		if r.Error != "" {
			failed++
			status.RecentErrors = append([]models.SyncError{{
				At:      now,
				ClubID:  r.ClubID,
				Message: r.Error,
			}}, status.RecentErrors...)
		}
	}
	status.TotalFailed = failed
	if len(status.RecentErrors) > m.cfg.MaxRecentErrors {
		status.RecentErrors = status.RecentErrors[:m.cfg.MaxRecentErrors]
	}
	if failed == 0 {
		status.LastSuccessAt = &startedAt
	}

	m.cache.SetSyncStatus(status)
}
