// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package store persists clubs and their synced events. The canonical
// implementation is DuckDB; an in-memory implementation backs tests and
// ephemeral deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/clubsync/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface the sync pipeline and API consume.
type Store interface {
	// Clubs
	GetClub(ctx context.Context, id int64) (*models.Club, error)
	GetClubByUpstreamID(ctx context.Context, upstreamID string) (*models.Club, error)
	ListClubs(ctx context.Context) ([]models.Club, error)
	CreateClub(ctx context.Context, club *models.Club) error
	UpdateClub(ctx context.Context, club *models.Club) error
	UpdateClubCredentials(ctx context.Context, id int64, creds models.Credentials) error
	UpdateClubStats(ctx context.Context, id int64, stats models.ClubStats) error

	// Events
	GetEvent(ctx context.Context, id int64) (*models.ClubEvent, error)
	GetEventByUpstreamID(ctx context.Context, upstreamID string) (*models.ClubEvent, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.ClubEvent, error)
	ListClubEvents(ctx context.Context, clubID int64, since time.Time) ([]models.ClubEvent, error)
	CreateEvent(ctx context.Context, event *models.ClubEvent) error
	UpdateEvent(ctx context.Context, event *models.ClubEvent) error
	DeleteAllEvents(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
