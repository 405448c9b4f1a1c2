// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STRAVA_CLIENT_ID", "12345")
	t.Setenv("STRAVA_CLIENT_SECRET", "shhh")
	t.Setenv(ConfigPathEnvVar, "/nonexistent/config.yaml")
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Strava.BaseURL != "https://www.strava.com/api/v3" {
		t.Errorf("Strava.BaseURL = %q, want Strava v3 API", cfg.Strava.BaseURL)
	}
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty by default, got %q", cfg.Strava.ClientID)
	}
	if cfg.Strava.MinInterval != 500*time.Millisecond {
		t.Errorf("Strava.MinInterval = %v, want 500ms", cfg.Strava.MinInterval)
	}
	if cfg.Strava.BackoffCap != 2*time.Minute {
		t.Errorf("Strava.BackoffCap = %v, want 2m", cfg.Strava.BackoffCap)
	}
	if !cfg.Strava.BreakerEnabled {
		t.Error("Strava.BreakerEnabled should be true by default")
	}

	if cfg.Database.Path != "/data/clubsync.duckdb" {
		t.Errorf("Database.Path = %q, want /data/clubsync.duckdb", cfg.Database.Path)
	}

	if cfg.Sync.Interval != time.Hour {
		t.Errorf("Sync.Interval = %v, want 1h", cfg.Sync.Interval)
	}
	if cfg.Sync.RefreshWindow != 30*time.Minute {
		t.Errorf("Sync.RefreshWindow = %v, want 30m", cfg.Sync.RefreshWindow)
	}

	if cfg.Server.Port != 8095 {
		t.Errorf("Server.Port = %d, want 8095", cfg.Server.Port)
	}
	if cfg.API.DefaultPageSize != 50 {
		t.Errorf("API.DefaultPageSize = %d, want 50", cfg.API.DefaultPageSize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging defaults = %q/%q, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadRequiresClientCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRAVA_CLIENT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STRAVA_CLIENT_ID is missing")
	}
	if !strings.Contains(err.Error(), "STRAVA_CLIENT_ID") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("SYNC_INTERVAL", "2h")
	t.Setenv("SYNC_TIMEZONE", "Europe/London")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Sync.Interval != 2*time.Hour {
		t.Errorf("Sync.Interval = %v, want 2h", cfg.Sync.Interval)
	}
	if cfg.Sync.Location().String() != "Europe/London" {
		t.Errorf("Location = %v, want Europe/London", cfg.Sync.Location())
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadConfigFileLayeredUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7070
  host: 127.0.0.1
sync:
  interval: 30m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	setRequiredEnv(t)
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SYNC_INTERVAL", "45m") // env must beat the file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from file", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1 from file", cfg.Server.Host)
	}
	if cfg.Sync.Interval != 45*time.Minute {
		t.Errorf("Sync.Interval = %v, want env override 45m", cfg.Sync.Interval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad timezone", func(c *Config) { c.Sync.Timezone = "Mars/Olympus" }, "SYNC_TIMEZONE"},
		{"cap below base", func(c *Config) { c.Strava.BackoffCap = time.Millisecond }, "STRAVA_BACKOFF_CAP"},
		{"page sizes inverted", func(c *Config) { c.API.MaxPageSize = 1 }, "API_MAX_PAGE_SIZE"},
		{"short sync interval", func(c *Config) { c.Sync.Interval = time.Second }, "SYNC_INTERVAL"},
		{"bad base url", func(c *Config) { c.Strava.BaseURL = "ftp://example.com" }, "STRAVA_BASE_URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Strava.ClientID = "id"
			cfg.Strava.ClientSecret = "secret"
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error should mention %s, got: %v", tc.want, err)
			}
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	s := SyncConfig{Timezone: ""}
	if s.Location() != time.UTC {
		t.Errorf("empty timezone should resolve to UTC, got %v", s.Location())
	}
	s.Timezone = "Not/AZone"
	if s.Location() != time.UTC {
		t.Errorf("unknown timezone should resolve to UTC, got %v", s.Location())
	}
}
