// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment
// variables and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Strava   StravaConfig   `koanf:"strava"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Cache    CacheConfig    `koanf:"cache"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// StravaConfig holds the upstream platform client settings, including the
// request queue and backoff tuning shared by every outbound call.
type StravaConfig struct {
	BaseURL      string        `koanf:"base_url"`
	TokenURL     string        `koanf:"token_url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	Timeout      time.Duration `koanf:"timeout"`

	// Request queue tuning. Concurrency is the number of in-flight
	// requests; MinInterval spaces dispatches; LowWater pauses dispatch
	// when that many short-window requests remain.
	Concurrency int           `koanf:"concurrency"`
	MinInterval time.Duration `koanf:"min_interval"`
	MaxRetries  int           `koanf:"max_retries"`
	BackoffBase time.Duration `koanf:"backoff_base"`
	BackoffCap  time.Duration `koanf:"backoff_cap"`
	LowWater    int           `koanf:"low_water"`

	// BreakerEnabled wraps the client in a circuit breaker.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU

	// InMemory switches to the in-memory store, for development and tests.
	InMemory bool `koanf:"in_memory"`
}

// SyncConfig holds the synchronization loop settings.
type SyncConfig struct {
	Interval        time.Duration `koanf:"interval"`
	RefreshWindow   time.Duration `koanf:"refresh_window"`
	RunTimeout      time.Duration `koanf:"run_timeout"`
	Timezone        string        `koanf:"timezone"` // IANA zone for free-text date recovery
	MaxRecentErrors int           `koanf:"max_recent_errors"`

	// AllowDestructiveReset gates the reset endpoint, which wipes every
	// local event before rebuilding from upstream.
	AllowDestructiveReset bool `koanf:"allow_destructive_reset"`
}

// CacheConfig holds the query cache TTLs.
type CacheConfig struct {
	EventTTL time.Duration `koanf:"event_ttl"`
	ClubTTL  time.Duration `koanf:"club_ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	Host              string        `koanf:"host"`
	Timeout           time.Duration `koanf:"timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// APIConfig holds pagination and response limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds zerolog settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Location resolves the configured timezone, falling back to UTC when the
// zone name is empty or unknown.
func (s SyncConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
