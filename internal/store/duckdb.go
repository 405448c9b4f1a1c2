// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/metrics"
	"github.com/tomtom215/clubsync/internal/models"
)

// DuckDBConfig tunes the embedded database.
type DuckDBConfig struct {
	// Path is the database file; empty means in-memory.
	Path string

	// Threads caps DuckDB worker threads; <= 0 uses all CPUs.
	Threads int

	// MaxMemory is DuckDB's memory budget, e.g. "512MB".
	MaxMemory string
}

// DuckDB is the persistent Store backed by an embedded DuckDB file.
type DuckDB struct {
	conn *sql.DB
}

// NewDuckDB opens (or creates) the database and initializes the schema.
func NewDuckDB(cfg DuckDBConfig) (*DuckDB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	// Parent directory must exist before DuckDB can create the file.
	if dbDir := filepath.Dir(cfg.Path); cfg.Path != "" && dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is embedded; a single writer connection avoids transaction
	// conflicts between the sync loop and the API.
	conn.SetMaxOpenConns(1)

	db := &DuckDB{conn: conn}
	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("DuckDB store initialized")
	return db, nil
}

func (db *DuckDB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS clubs_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS club_events_id_seq`,
		`CREATE TABLE IF NOT EXISTS clubs (
			id BIGINT PRIMARY KEY DEFAULT nextval('clubs_id_seq'),
			upstream_id VARCHAR NOT NULL UNIQUE,
			name VARCHAR NOT NULL,
			city VARCHAR,
			pace_categories VARCHAR NOT NULL DEFAULT '[]',
			distance_buckets VARCHAR NOT NULL DEFAULT '[]',
			meeting_cadence VARCHAR,
			access_token VARCHAR,
			refresh_token VARCHAR,
			token_expires_at TIMESTAMP,
			events_count INTEGER NOT NULL DEFAULT 0,
			avg_participants DOUBLE NOT NULL DEFAULT 0,
			last_event_at TIMESTAMP,
			activity_score INTEGER NOT NULL DEFAULT 0,
			stats_updated_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS club_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('club_events_id_seq'),
			upstream_id VARCHAR NOT NULL UNIQUE,
			club_id BIGINT NOT NULL,
			title VARCHAR NOT NULL,
			description VARCHAR NOT NULL DEFAULT '',
			starts_at TIMESTAMP NOT NULL,
			ends_at TIMESTAMP NOT NULL,
			location VARCHAR,
			distance_meters DOUBLE,
			pace VARCHAR,
			pace_category VARCHAR NOT NULL,
			distance_bucket VARCHAR NOT NULL,
			beginner_friendly BOOLEAN NOT NULL DEFAULT FALSE,
			interval_training BOOLEAN NOT NULL DEFAULT FALSE,
			participants INTEGER,
			url VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_club_events_club_id ON club_events (club_id)`,
		`CREATE INDEX IF NOT EXISTS idx_club_events_starts_at ON club_events (starts_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the connection.
func (db *DuckDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (db *DuckDB) Close() error {
	return db.conn.Close()
}

const clubColumns = `id, upstream_id, name, city, pace_categories, distance_buckets,
	meeting_cadence, access_token, refresh_token, token_expires_at,
	events_count, avg_participants, last_event_at, activity_score, stats_updated_at,
	created_at, updated_at`

// GetClub fetches a club by local id.
func (db *DuckDB) GetClub(ctx context.Context, id int64) (*models.Club, error) {
	row := db.queryRow(ctx, "SELECT", "clubs",
		`SELECT `+clubColumns+` FROM clubs WHERE id = ?`, id)
	return scanClub(row)
}

// GetClubByUpstreamID fetches a club by its platform identifier.
func (db *DuckDB) GetClubByUpstreamID(ctx context.Context, upstreamID string) (*models.Club, error) {
	row := db.queryRow(ctx, "SELECT", "clubs",
		`SELECT `+clubColumns+` FROM clubs WHERE upstream_id = ?`, upstreamID)
	return scanClub(row)
}

// ListClubs returns all registered clubs ordered by activity score.
func (db *DuckDB) ListClubs(ctx context.Context) ([]models.Club, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+clubColumns+` FROM clubs ORDER BY activity_score DESC, name`)
	metrics.RecordDBQuery("SELECT", "clubs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	defer rows.Close()

	var clubs []models.Club
	for rows.Next() {
		club, err := scanClubRow(rows)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, *club)
	}
	return clubs, rows.Err()
}

// CreateClub inserts a club and backfills its generated id.
func (db *DuckDB) CreateClub(ctx context.Context, club *models.Club) error {
	paceJSON, bucketJSON, err := marshalClubLists(club)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	club.CreatedAt = now
	club.UpdatedAt = now

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO clubs (
			upstream_id, name, city, pace_categories, distance_buckets, meeting_cadence,
			access_token, refresh_token, token_expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		club.UpstreamID, club.Name, club.City, paceJSON, bucketJSON, club.MeetingCadence,
		club.Credentials.AccessToken, club.Credentials.RefreshToken, club.Credentials.ExpiresAt,
		club.CreatedAt, club.UpdatedAt)
	err = row.Scan(&club.ID)
	metrics.RecordDBQuery("INSERT", "clubs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create club: %w", err)
	}
	return nil
}

// UpdateClub overwrites a club's declared attributes.
func (db *DuckDB) UpdateClub(ctx context.Context, club *models.Club) error {
	paceJSON, bucketJSON, err := marshalClubLists(club)
	if err != nil {
		return err
	}

	club.UpdatedAt = time.Now().UTC()
	return db.exec(ctx, "UPDATE", "clubs",
		`UPDATE clubs SET name = ?, city = ?, pace_categories = ?, distance_buckets = ?,
			meeting_cadence = ?, updated_at = ? WHERE id = ?`,
		club.Name, club.City, paceJSON, bucketJSON, club.MeetingCadence, club.UpdatedAt, club.ID)
}

// UpdateClubCredentials persists a refreshed token tuple.
func (db *DuckDB) UpdateClubCredentials(ctx context.Context, id int64, creds models.Credentials) error {
	return db.exec(ctx, "UPDATE", "clubs",
		`UPDATE clubs SET access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		creds.AccessToken, creds.RefreshToken, creds.ExpiresAt, time.Now().UTC(), id)
}

// UpdateClubStats persists recomputed statistics and the activity score.
func (db *DuckDB) UpdateClubStats(ctx context.Context, id int64, stats models.ClubStats) error {
	return db.exec(ctx, "UPDATE", "clubs",
		`UPDATE clubs SET events_count = ?, avg_participants = ?, last_event_at = ?,
			activity_score = ?, stats_updated_at = ?, updated_at = ? WHERE id = ?`,
		stats.EventsCount, stats.AvgParticipants, stats.LastEventAt,
		stats.ActivityScore, stats.UpdatedAt, time.Now().UTC(), id)
}

const eventColumns = `id, upstream_id, club_id, title, description, starts_at, ends_at,
	location, distance_meters, pace, pace_category, distance_bucket,
	beginner_friendly, interval_training, participants, url, created_at, updated_at`

// GetEvent fetches an event by local id.
func (db *DuckDB) GetEvent(ctx context.Context, id int64) (*models.ClubEvent, error) {
	row := db.queryRow(ctx, "SELECT", "club_events",
		`SELECT `+eventColumns+` FROM club_events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventByUpstreamID fetches an event by its platform identifier.
func (db *DuckDB) GetEventByUpstreamID(ctx context.Context, upstreamID string) (*models.ClubEvent, error) {
	row := db.queryRow(ctx, "SELECT", "club_events",
		`SELECT `+eventColumns+` FROM club_events WHERE upstream_id = ?`, upstreamID)
	return scanEvent(row)
}

// ListEvents returns events matching the filter, soonest first.
func (db *DuckDB) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.ClubEvent, error) {
	query, args := buildEventQuery(filter)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", "club_events", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.ClubEvent
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// ListClubEvents returns one club's events starting at or after since.
func (db *DuckDB) ListClubEvents(ctx context.Context, clubID int64, since time.Time) ([]models.ClubEvent, error) {
	return db.ListEvents(ctx, models.EventFilter{ClubIDs: []int64{clubID}, From: &since})
}

// CreateEvent inserts an event and backfills its generated id.
func (db *DuckDB) CreateEvent(ctx context.Context, event *models.ClubEvent) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO club_events (
			upstream_id, club_id, title, description, starts_at, ends_at, location,
			distance_meters, pace, pace_category, distance_bucket,
			beginner_friendly, interval_training, participants, url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		event.UpstreamID, event.ClubID, event.Title, event.Description,
		event.StartsAt, event.EndsAt, event.Location, event.DistanceMeters,
		event.Pace, string(event.PaceCategory), string(event.DistanceBucket),
		event.BeginnerFriendly, event.IntervalTraining, event.Participants, event.URL,
		event.CreatedAt, event.UpdatedAt)
	err := row.Scan(&event.ID)
	metrics.RecordDBQuery("INSERT", "club_events", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// UpdateEvent overwrites all derived fields of an existing event. Upstream
// is authoritative, so this is a full overwrite rather than a merge.
func (db *DuckDB) UpdateEvent(ctx context.Context, event *models.ClubEvent) error {
	event.UpdatedAt = time.Now().UTC()
	return db.exec(ctx, "UPDATE", "club_events",
		`UPDATE club_events SET club_id = ?, title = ?, description = ?, starts_at = ?,
			ends_at = ?, location = ?, distance_meters = ?, pace = ?, pace_category = ?,
			distance_bucket = ?, beginner_friendly = ?, interval_training = ?,
			participants = ?, url = ?, updated_at = ?
		WHERE id = ?`,
		event.ClubID, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.Location, event.DistanceMeters, event.Pace, string(event.PaceCategory),
		string(event.DistanceBucket), event.BeginnerFriendly, event.IntervalTraining,
		event.Participants, event.URL, event.UpdatedAt, event.ID)
}

// DeleteAllEvents removes every synced event. Irreversible; used only by
// the forced-resync path.
func (db *DuckDB) DeleteAllEvents(ctx context.Context) (int64, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM club_events`)
	metrics.RecordDBQuery("DELETE", "club_events", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.Warn().Int64("deleted", n).Msg("All synced events deleted")
	return n, nil
}

func (db *DuckDB) queryRow(ctx context.Context, op, table, query string, args ...any) *sql.Row {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, args...)
	metrics.RecordDBQuery(op, table, time.Since(start), nil)
	return row
}

func (db *DuckDB) exec(ctx context.Context, op, table, query string, args ...any) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(op, table, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", strings.ToLower(op), table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// buildEventQuery assembles the filtered listing. Predicates mirror the
// cache-key fields so a cached result and a store result always agree.
func buildEventQuery(filter models.EventFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + eventColumns + ` FROM club_events WHERE 1=1`)

	if len(filter.ClubIDs) > 0 {
		sb.WriteString(` AND club_id IN (` + placeholders(len(filter.ClubIDs)) + `)`)
		for _, id := range filter.ClubIDs {
			args = append(args, id)
		}
	}
	if filter.From != nil {
		sb.WriteString(` AND starts_at >= ?`)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		sb.WriteString(` AND starts_at < ?`)
		args = append(args, *filter.To)
	}
	if len(filter.PaceCategories) > 0 {
		sb.WriteString(` AND pace_category IN (` + placeholders(len(filter.PaceCategories)) + `)`)
		for _, pc := range filter.PaceCategories {
			args = append(args, pc)
		}
	}
	if filter.BeginnerOnly {
		sb.WriteString(` AND beginner_friendly`)
	}
	if filter.IntervalOnly {
		sb.WriteString(` AND interval_training`)
	}

	sb.WriteString(` ORDER BY starts_at, id`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}
	return sb.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalClubLists(club *models.Club) (string, string, error) {
	paceJSON, err := json.Marshal(club.PaceCategories)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal pace categories: %w", err)
	}
	bucketJSON, err := json.Marshal(club.DistanceBuckets)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal distance buckets: %w", err)
	}
	return string(paceJSON), string(bucketJSON), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClub(row rowScanner) (*models.Club, error) {
	club, err := scanClubRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return club, err
}

func scanClubRow(row rowScanner) (*models.Club, error) {
	var (
		club                 models.Club
		paceJSON, bucketJSON string
		accessToken          sql.NullString
		refreshToken         sql.NullString
		tokenExpiresAt       sql.NullTime
		lastEventAt          sql.NullTime
		statsUpdatedAt       sql.NullTime
	)
	err := row.Scan(&club.ID, &club.UpstreamID, &club.Name, &club.City,
		&paceJSON, &bucketJSON, &club.MeetingCadence,
		&accessToken, &refreshToken, &tokenExpiresAt,
		&club.Stats.EventsCount, &club.Stats.AvgParticipants, &lastEventAt,
		&club.Stats.ActivityScore, &statsUpdatedAt,
		&club.CreatedAt, &club.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(paceJSON), &club.PaceCategories); err != nil {
		return nil, fmt.Errorf("corrupt pace_categories for club %d: %w", club.ID, err)
	}
	if err := json.Unmarshal([]byte(bucketJSON), &club.DistanceBuckets); err != nil {
		return nil, fmt.Errorf("corrupt distance_buckets for club %d: %w", club.ID, err)
	}

	club.Credentials.AccessToken = accessToken.String
	club.Credentials.RefreshToken = refreshToken.String
	if tokenExpiresAt.Valid {
		club.Credentials.ExpiresAt = tokenExpiresAt.Time
	}
	if lastEventAt.Valid {
		t := lastEventAt.Time
		club.Stats.LastEventAt = &t
	}
	if statsUpdatedAt.Valid {
		club.Stats.UpdatedAt = statsUpdatedAt.Time
	}
	return &club, nil
}

func scanEvent(row rowScanner) (*models.ClubEvent, error) {
	event, err := scanEventRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

func scanEventRow(row rowScanner) (*models.ClubEvent, error) {
	var (
		event        models.ClubEvent
		paceCat      string
		distBucket   string
		participants sql.NullInt64
	)
	err := row.Scan(&event.ID, &event.UpstreamID, &event.ClubID, &event.Title,
		&event.Description, &event.StartsAt, &event.EndsAt, &event.Location,
		&event.DistanceMeters, &event.Pace, &paceCat, &distBucket,
		&event.BeginnerFriendly, &event.IntervalTraining, &participants,
		&event.URL, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, err
	}

	event.PaceCategory = models.PaceCategory(paceCat)
	event.DistanceBucket = models.DistanceBucket(distBucket)
	if participants.Valid {
		p := int(participants.Int64)
		event.Participants = &p
	}
	return &event, nil
}
