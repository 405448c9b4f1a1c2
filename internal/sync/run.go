// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/clubsync/internal/extract"
	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/metrics"
	"github.com/tomtom215/clubsync/internal/models"
	strava "github.com/tomtom215/clubsync/internal/models/strava"
	"github.com/tomtom215/clubsync/internal/score"
	"github.com/tomtom215/clubsync/internal/store"
	stravaclient "github.com/tomtom215/clubsync/internal/strava"
)

// run executes one synchronization pass over every registered club.
// Clubs are processed sequentially; a club failure is recorded and the pass
// moves on.
func (m *Manager) run(ctx context.Context) ([]models.ClubSyncResult, error) {
	runID := uuid.New()
	startedAt := m.clk.Now()
	log := logging.With().Str("run_id", runID.String()).Logger()

	clubs, err := m.store.ListClubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	if len(clubs) == 0 {
		log.Info().Msg("No clubs registered, sync is a no-op")
		m.recordRun(runID, startedAt, nil)
		return nil, nil
	}

	log.Info().Int("clubs", len(clubs)).Msg("Sync run started")

	results := make([]models.ClubSyncResult, 0, len(clubs))
	for i := range clubs {
		club := &clubs[i]
		clubStart := m.clk.Now()
		result := models.ClubSyncResult{ClubID: club.ID, ClubName: club.Name}

		if err := m.syncClub(ctx, club, &result); err != nil {
			result.Error = err.Error()
			metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
			log.Error().Err(err).Int64("club_id", club.ID).Str("club", club.Name).Msg("Club sync failed")
		} else {
			log.Info().Int64("club_id", club.ID).Str("club", club.Name).
				Int("added", result.Added).Int("updated", result.Updated).Int("skipped", result.Skipped).
				Msg("Club synced")
		}
		result.Duration = m.clk.Now().Sub(clubStart)
		results = append(results, result)

		if ctx.Err() != nil {
			break
		}
	}

	var added, updated, skipped, failed int
	for _, r := range results {
		added += r.Added
		updated += r.Updated
		skipped += r.Skipped
		if r.Error != "" {
			failed++
		}
	}
	duration := m.clk.Now().Sub(startedAt)
	metrics.RecordSyncRun(duration, added, updated, skipped, failed)

	shortUsage, _, dailyUsage, _ := m.client.RateLimitSnapshot()
	metrics.UpdateRateLimitGauges(shortUsage, dailyUsage)

	m.recordRun(runID, startedAt, results)
	log.Info().Dur("duration", duration).
		Int("added", added).Int("updated", updated).Int("skipped", skipped).Int("failed", failed).
		Msg("Sync run finished")
	return results, nil
}

// syncClub walks one club through the per-club state machine: validate
// token, fetch remote events, reconcile, recompute stats.
func (m *Manager) syncClub(ctx context.Context, club *models.Club, result *models.ClubSyncResult) error {
	if !club.Credentials.Present() {
		return fmt.Errorf("club %d: no credentials configured", club.ID)
	}

	upstreamNumericID, err := strconv.ParseInt(club.UpstreamID, 10, 64)
	if err != nil {
		return fmt.Errorf("club %d: upstream id %q is not numeric", club.ID, club.UpstreamID)
	}

	if club.Credentials.ExpiresWithin(m.clk.Now(), m.cfg.RefreshWindow) {
		if err := m.refreshCredentials(ctx, club); err != nil {
			return err
		}
	}

	raw, err := m.client.ListClubEvents(ctx, club.Credentials.AccessToken, upstreamNumericID)
	var expired *stravaclient.CredentialExpiredError
	if errors.As(err, &expired) {
		// The token was rejected despite looking valid; refresh once and
		// retry before giving up on this club.
		if err := m.refreshCredentials(ctx, club); err != nil {
			return err
		}
		raw, err = m.client.ListClubEvents(ctx, club.Credentials.AccessToken, upstreamNumericID)
	}
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	if err := m.reconcile(ctx, club, raw, result); err != nil {
		return err
	}
	return m.updateStats(ctx, club)
}

// refreshCredentials exchanges the refresh token and persists the new
// tuple. Failure aborts only this club's sync.
func (m *Manager) refreshCredentials(ctx context.Context, club *models.Club) error {
	token, err := m.client.RefreshToken(ctx, club.Credentials.RefreshToken)
	if err != nil {
		return fmt.Errorf("token refresh: %w", err)
	}

	creds := models.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Unix(token.ExpiresAt, 0).UTC(),
	}
	if err := m.store.UpdateClubCredentials(ctx, club.ID, creds); err != nil {
		return fmt.Errorf("persist refreshed credentials: %w", err)
	}
	club.Credentials = creds
	logging.Info().Int64("club_id", club.ID).Time("expires_at", creds.ExpiresAt).Msg("Credentials refreshed")
	return nil
}

// reconcile upserts every remote event by upstream id. Present records are
// fully overwritten; upstream is authoritative.
func (m *Manager) reconcile(ctx context.Context, club *models.Club, raw []strava.GroupEvent, result *models.ClubSyncResult) error {
	opts := extract.Options{Location: m.cfg.Location, Now: m.clk.Now()}

	for i := range raw {
		fields, err := extract.Extract(&raw[i], club, opts)
		if err != nil {
			var dre *extract.DateRecoveryError
			if errors.As(err, &dre) {
				result.Skipped++
				logging.Warn().Int64("club_id", club.ID).Int64("event_id", dre.EventID).Msg("Skipping event with no recoverable date")
				continue
			}
			return fmt.Errorf("extract event: %w", err)
		}

		existing, err := m.store.GetEventByUpstreamID(ctx, fields.UpstreamID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if err := m.store.CreateEvent(ctx, fields); err != nil {
				return fmt.Errorf("insert event %s: %w", fields.UpstreamID, err)
			}
			result.Added++
		case err != nil:
			return fmt.Errorf("lookup event %s: %w", fields.UpstreamID, err)
		default:
			fields.ID = existing.ID
			if err := m.store.UpdateEvent(ctx, fields); err != nil {
				return fmt.Errorf("update event %s: %w", fields.UpstreamID, err)
			}
			result.Updated++
		}
	}

	m.cache.InvalidateClub(club.ID)
	return nil
}

// updateStats recomputes the club's aggregates and activity score from its
// stored events. The aggregates cover every stored event, upcoming starts
// included, since the pipeline syncs mostly future-dated group events;
// only the activity score restricts itself to the trailing window.
func (m *Manager) updateStats(ctx context.Context, club *models.Club) error {
	now := m.clk.Now()
	events, err := m.store.ListClubEvents(ctx, club.ID, time.Time{})
	if err != nil {
		return fmt.Errorf("list club events for stats: %w", err)
	}

	var (
		participants int
		withCount    int
		last         *time.Time
	)
	for i := range events {
		e := &events[i]
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

	stats := models.ClubStats{
		EventsCount:     len(events),
		AvgParticipants: avg,
		LastEventAt:     last,
		ActivityScore:   score.Compute(score.FromEvents(events, now)),
		UpdatedAt:       now,
	}
	if err := m.store.UpdateClubStats(ctx, club.ID, stats); err != nil {
		return fmt.Errorf("persist stats: %w", err)
	}

	metrics.ClubActivityScore.WithLabelValues(club.UpstreamID).Set(float64(stats.ActivityScore))
	return nil
}

// errorType buckets an error for the sync_errors_total label.
func errorType(err error) string {
	var (
		expired  *stravaclient.CredentialExpiredError
		terminal *stravaclient.TerminalClientError
		rate     *stravaclient.RateLimitedError
		server   *stravaclient.UpstreamServerError
		network  *stravaclient.TransientNetworkError
	)
	switch {
	case errors.As(err, &expired):
		return "credential_expired"
	case errors.As(err, &terminal):
		return "terminal_client"
	case errors.As(err, &rate):
		return "rate_limited"
	case errors.As(err, &server):
		return "upstream_server"
	case errors.As(err, &network):
		return "network"
	default:
		return "other"
	}
}
