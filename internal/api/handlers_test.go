// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clubsync/internal/cache"
	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/config"
	"github.com/tomtom215/clubsync/internal/models"
	strava "github.com/tomtom215/clubsync/internal/models/strava"
	"github.com/tomtom215/clubsync/internal/store"
	clubsync "github.com/tomtom215/clubsync/internal/sync"
)

var testNow = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

// stubClient satisfies sync.PlatformClient with canned events per upstream
// club ID.
type stubClient struct {
	events map[int64][]strava.GroupEvent
}

func (s *stubClient) RefreshToken(context.Context, string) (*strava.TokenResponse, error) {
	return &strava.TokenResponse{
		AccessToken:  "stub-access",
		RefreshToken: "stub-refresh",
		ExpiresAt:    testNow.Add(6 * time.Hour).Unix(),
	}, nil
}

func (s *stubClient) ListClubEvents(_ context.Context, _ string, clubID int64) ([]strava.GroupEvent, error) {
	return s.events[clubID], nil
}

func (s *stubClient) RateLimitSnapshot() (int, int, int, int) { return 0, 600, 0, 30000 }

type testEnv struct {
	store  *store.Memory
	client *stubClient
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithReset(t, true)
}

func newTestEnvWithReset(t *testing.T, allowReset bool) *testEnv {
	t.Helper()

	st := store.NewMemory()
	client := &stubClient{events: make(map[int64][]strava.GroupEvent)}
	qc := cache.NewQueryCache(time.Minute, time.Minute, clock.Fixed{Instant: testNow})
	t.Cleanup(qc.Close)

	manager := clubsync.NewManager(st, client, qc, clubsync.Config{
		Interval:   time.Hour,
		Location:   time.UTC,
		RunTimeout: 5 * time.Second,
	}, clock.Fixed{Instant: testNow})

	cfg := &config.Config{
		API:  config.APIConfig{DefaultPageSize: 50, MaxPageSize: 200},
		Sync: config.SyncConfig{AllowDestructiveReset: allowReset},
	}
	handler := NewHandler(st, manager, cfg, "test")
	router := NewRouter(handler, NewMiddleware(&MiddlewareConfig{RateLimitDisabled: true}))

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)

	return &testEnv{store: st, client: client, server: srv}
}

// decode unwraps the response envelope and re-decodes data into out.
func decode(t *testing.T, resp *http.Response, out interface{}) models.APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if out != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		if err != nil {
			t.Fatalf("re-marshal data: %v", err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return envelope
}

func (e *testEnv) seedEvent(t *testing.T, clubID int64, upstreamID, title string, startsAt time.Time, pace models.PaceCategory) {
	t.Helper()
	event := &models.ClubEvent{
		ClubID:       clubID,
		UpstreamID:   upstreamID,
		Title:        title,
		StartsAt:     startsAt,
		EndsAt:       startsAt.Add(time.Hour),
		PaceCategory: pace,
	}
	if err := e.store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestCreateClub(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"upstream_id": "123456", "name": "River Runners", "city": "Leeds", "pace_categories": ["beginner"]}`)
	resp, err := http.Post(env.server.URL+"/api/v1/clubs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /clubs: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created clubView
	decode(t, resp, &created)
	if created.UpstreamID != "123456" || created.Name != "River Runners" {
		t.Errorf("created club = %+v", created)
	}
	if created.HasCredentials {
		t.Error("club without tokens should report has_credentials=false")
	}
}

func TestCreateClubValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"upstream_id": "123456"}`},
		{"non-numeric upstream id", `{"upstream_id": "river-runners", "name": "River Runners"}`},
		{"bad pace", `{"upstream_id": "1", "name": "X", "pace_categories": ["sprint"]}`},
		{"not json", `{"upstream_id":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(env.server.URL+"/api/v1/clubs", "application/json", bytes.NewReader([]byte(tc.body)))
			if err != nil {
				t.Fatalf("POST /clubs: %v", err)
			}
			envelope := decode(t, resp, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if envelope.Error == nil {
				t.Fatal("expected error payload")
			}
		})
	}
}

func TestCreateClubDuplicateUpstreamID(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"upstream_id": "123456", "name": "River Runners"}`)
	if resp, err := http.Post(env.server.URL+"/api/v1/clubs", "application/json", bytes.NewReader(body)); err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create failed: %v, %v", err, resp)
	}

	resp, err := http.Post(env.server.URL+"/api/v1/clubs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("second POST /clubs: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	envelope := decode(t, resp, nil)
	if envelope.Error == nil || envelope.Error.Code != "ALREADY_EXISTS" {
		t.Errorf("error = %+v, want ALREADY_EXISTS", envelope.Error)
	}
}

func TestEventsFiltering(t *testing.T) {
	env := newTestEnv(t)

	club := &models.Club{UpstreamID: "111", Name: "A"}
	if err := env.store.CreateClub(context.Background(), club); err != nil {
		t.Fatalf("create club: %v", err)
	}
	env.seedEvent(t, club.ID, "1", "Easy Run", testNow.Add(24*time.Hour), models.PaceBeginner)
	env.seedEvent(t, club.ID, "2", "Tempo", testNow.Add(48*time.Hour), models.PaceAdvanced)
	env.seedEvent(t, club.ID, "3", "Old Run", testNow.Add(-24*time.Hour), models.PaceBeginner)

	resp, err := http.Get(env.server.URL + "/api/v1/events?pace=beginner&from=" + testNow.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	var events []models.ClubEvent
	envelope := decode(t, resp, &events)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(events) != 1 || events[0].Title != "Easy Run" {
		t.Fatalf("expected only the upcoming beginner event, got %+v", events)
	}
	if envelope.Metadata.Count != 1 {
		t.Errorf("metadata count = %d, want 1", envelope.Metadata.Count)
	}
}

func TestEventsRejectsBadTimestamp(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/events?from=tomorrow")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	envelope := decode(t, resp, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
	}
}

func TestClubEventsScopedToClub(t *testing.T) {
	env := newTestEnv(t)

	a := &models.Club{UpstreamID: "111", Name: "A"}
	b := &models.Club{UpstreamID: "222", Name: "B"}
	for _, c := range []*models.Club{a, b} {
		if err := env.store.CreateClub(context.Background(), c); err != nil {
			t.Fatalf("create club: %v", err)
		}
	}
	env.seedEvent(t, a.ID, "1", "A Run", testNow.Add(24*time.Hour), models.PaceBeginner)
	env.seedEvent(t, b.ID, "2", "B Run", testNow.Add(24*time.Hour), models.PaceBeginner)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/clubs/%d/events", env.server.URL, a.ID))
	if err != nil {
		t.Fatalf("GET club events: %v", err)
	}
	var events []models.ClubEvent
	decode(t, resp, &events)
	if len(events) != 1 || events[0].ClubID != a.ID {
		t.Fatalf("expected only club A's event, got %+v", events)
	}
}

func TestSyncEndpointsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	club := &models.Club{
		UpstreamID: "123456",
		Name:       "River Runners",
		Credentials: models.Credentials{
			AccessToken:  "tok",
			RefreshToken: "ref",
			ExpiresAt:    testNow.Add(12 * time.Hour),
		},
	}
	if err := env.store.CreateClub(context.Background(), club); err != nil {
		t.Fatalf("create club: %v", err)
	}
	env.client.events[123456] = []strava.GroupEvent{{
		ID:             42,
		Title:          "Tempo Tuesday",
		StartDate:      testNow.Add(48 * time.Hour).Format(time.RFC3339),
		StartDateLocal: testNow.Add(48 * time.Hour).Format("2006-01-02T15:04:05"),
	}}

	resp, err := http.Post(env.server.URL+"/api/v1/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /sync: %v", err)
	}
	var results []models.ClubSyncResult
	decode(t, resp, &results)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(results) != 1 || results[0].Added != 1 {
		t.Fatalf("sync results = %+v, want one add", results)
	}

	resp, err = http.Get(env.server.URL + "/api/v1/sync/status")
	if err != nil {
		t.Fatalf("GET /sync/status: %v", err)
	}
	var status models.SyncStatus
	decode(t, resp, &status)
	if status.TotalAdded != 1 {
		t.Errorf("status.TotalAdded = %d, want 1", status.TotalAdded)
	}
	if len(status.TokenHealth) != 1 || !status.TokenHealth[0].Present {
		t.Errorf("token health = %+v, want one present entry", status.TokenHealth)
	}

	resp, err = http.Post(env.server.URL+"/api/v1/sync/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /sync/reset: %v", err)
	}
	decode(t, resp, &results)
	if resp.StatusCode != http.StatusOK || results[0].Added != 1 {
		t.Fatalf("reset results = %+v, want full rebuild", results)
	}
}

func TestResetDisabledByDefault(t *testing.T) {
	env := newTestEnvWithReset(t, false)

	resp, err := http.Post(env.server.URL+"/api/v1/sync/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /sync/reset: %v", err)
	}
	envelope := decode(t, resp, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "RESET_DISABLED" {
		t.Errorf("error = %+v, want RESET_DISABLED", envelope.Error)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready", "/api/v1/health"} {
		resp, err := http.Get(env.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", resp.StatusCode)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
