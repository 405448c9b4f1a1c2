// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package strava implements the rate-limited client for the platform's v3
// API. All outbound calls flow through one shared dispatch queue so the
// platform's per-application quota is respected no matter how many clubs
// are being synced.
package strava

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/models/strava"
)

const (
	defaultBaseURL  = "https://www.strava.com/api/v3"
	defaultTokenURL = "https://www.strava.com/oauth/token"

	// eventsPerPage is the page size for event listings; the platform caps
	// it at 200.
	eventsPerPage = 200

	// maxEventPages bounds pagination so a misbehaving upstream cannot
	// spin the sync forever.
	maxEventPages = 10

	// maxErrorBody truncates error response bodies carried in errors.
	maxErrorBody = 512
)

// Config holds the platform API settings.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Queue        QueueConfig
}

// Client talks to the platform API through the shared dispatch queue.
type Client struct {
	cfg    Config
	http   *http.Client
	queue  *Queue
	limits *rateLimitState
}

// NewClient builds a client with its own queue and rate-limit state.
func NewClient(cfg Config, clk clock.Clock) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limits := newRateLimitState(clk)
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		queue:  NewQueue(cfg.Queue, limits, clk),
		limits: limits,
	}
}

// Close stops the dispatch queue.
func (c *Client) Close() {
	c.queue.Close()
}

// RateLimitSnapshot exposes the tracked quota counters for telemetry.
func (c *Client) RateLimitSnapshot() (shortUsage, shortLimit, dailyUsage, dailyLimit int) {
	return c.limits.Snapshot()
}

// ExchangeCode trades an authorization code for the initial token tuple.
// Used when registering a club whose owner just completed the OAuth grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error) {
	return c.tokenRequest(ctx, url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
	})
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error) {
	return c.tokenRequest(ctx, url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// tokenRequest posts an urlencoded grant to the token endpoint via the queue.
func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*strava.TokenResponse, error) {
	var token strava.TokenResponse
	err := c.queue.Submit(ctx, "oauth_token", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.do(req, &token)
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetClub fetches the club's summary, including the vanity URL slug used to
// match locally registered clubs against upstream identity.
func (c *Client) GetClub(ctx context.Context, accessToken string, clubID int64) (*strava.SummaryClub, error) {
	var club strava.SummaryClub
	path := fmt.Sprintf("%s/clubs/%d", c.cfg.BaseURL, clubID)
	err := c.queue.Submit(ctx, "get_club", func(ctx context.Context) error {
		req, err := c.newGet(ctx, path, accessToken)
		if err != nil {
			return err
		}
		return c.do(req, &club)
	})
	if err != nil {
		return nil, remapUnauthorized(err, clubID)
	}
	return &club, nil
}

// ListAthleteClubs lists the clubs the authorized athlete belongs to,
// paging until a short page.
func (c *Client) ListAthleteClubs(ctx context.Context, accessToken string) ([]strava.SummaryClub, error) {
	var all []strava.SummaryClub
	for page := 1; page <= maxEventPages; page++ {
		var batch []strava.SummaryClub
		path := fmt.Sprintf("%s/athlete/clubs?page=%d&per_page=%d", c.cfg.BaseURL, page, eventsPerPage)
		err := c.queue.Submit(ctx, "list_athlete_clubs", func(ctx context.Context) error {
			req, err := c.newGet(ctx, path, accessToken)
			if err != nil {
				return err
			}
			return c.do(req, &batch)
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < eventsPerPage {
			break
		}
	}
	return all, nil
}

// ListClubEvents fetches all upcoming group events for a club, paging until
// a short page or the page bound.
func (c *Client) ListClubEvents(ctx context.Context, accessToken string, clubID int64) ([]strava.GroupEvent, error) {
	var all []strava.GroupEvent
	for page := 1; page <= maxEventPages; page++ {
		var batch []strava.GroupEvent
		path := fmt.Sprintf("%s/clubs/%d/group_events?page=%d&per_page=%d", c.cfg.BaseURL, clubID, page, eventsPerPage)
		err := c.queue.Submit(ctx, "list_club_events", func(ctx context.Context) error {
			req, err := c.newGet(ctx, path, accessToken)
			if err != nil {
				return err
			}
			return c.do(req, &batch)
		})
		if err != nil {
			return nil, remapUnauthorized(err, clubID)
		}
		all = append(all, batch...)
		if len(batch) < eventsPerPage {
			break
		}
	}
	logging.Debug().Int64("club_id", clubID).Int("events", len(all)).Msg("Fetched club events")
	return all, nil
}

func (c *Client) newGet(ctx context.Context, rawURL, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes the round trip, updates shared rate-limit counters from the
// response, classifies failures, and decodes 2xx bodies into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientNetworkError{Err: err}
	}
	defer resp.Body.Close()

	c.limits.UpdateFromHeaders(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyStatus(resp.StatusCode, string(body), parseRetryAfter(resp.Header))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientNetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// remapUnauthorized converts a terminal 401 into a CredentialExpiredError
// so the orchestrator can attempt a token refresh for the club.
func remapUnauthorized(err error, clubID int64) error {
	var terminal *TerminalClientError
	if errors.As(err, &terminal) && terminal.Status == http.StatusUnauthorized {
		return &CredentialExpiredError{ClubID: clubID}
	}
	return err
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
