// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/clubsync/config.yaml",
	"/etc/clubsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are
// loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Strava: StravaConfig{
			BaseURL:        "https://www.strava.com/api/v3",
			TokenURL:       "https://www.strava.com/oauth/token",
			ClientID:       "",
			ClientSecret:   "",
			Timeout:        30 * time.Second,
			Concurrency:    2,
			MinInterval:    500 * time.Millisecond,
			MaxRetries:     5,
			BackoffBase:    time.Second,
			BackoffCap:     2 * time.Minute,
			LowWater:       5,
			BreakerEnabled: true,
		},
		Database: DatabaseConfig{
			Path:      "/data/clubsync.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
			InMemory:  false,
		},
		Sync: SyncConfig{
			Interval:        time.Hour,
			RefreshWindow:   30 * time.Minute,
			RunTimeout:      15 * time.Minute,
			Timezone:        "",
			MaxRecentErrors: 20,
		},
		Cache: CacheConfig{
			EventTTL: 5 * time.Minute,
			ClubTTL:  10 * time.Minute,
		},
		Server: ServerConfig{
			Port:              8095,
			Host:              "0.0.0.0",
			Timeout:           30 * time.Second,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// STRAVA_CLIENT_ID -> strava.client_id, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as env var strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		// Already a slice from the YAML file.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables map to "" and are ignored, so unrelated environment
// noise never leaks into the config tree.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var envMappings = map[string]string{
	// Platform client
	"strava_base_url":        "strava.base_url",
	"strava_token_url":       "strava.token_url",
	"strava_client_id":       "strava.client_id",
	"strava_client_secret":   "strava.client_secret",
	"strava_timeout":         "strava.timeout",
	"strava_concurrency":     "strava.concurrency",
	"strava_min_interval":    "strava.min_interval",
	"strava_max_retries":     "strava.max_retries",
	"strava_backoff_base":    "strava.backoff_base",
	"strava_backoff_cap":     "strava.backoff_cap",
	"strava_low_water":       "strava.low_water",
	"strava_breaker_enabled": "strava.breaker_enabled",

	// Database
	"duckdb_path":        "database.path",
	"duckdb_max_memory":  "database.max_memory",
	"duckdb_threads":     "database.threads",
	"database_in_memory": "database.in_memory",

	// Sync
	"sync_interval":                "sync.interval",
	"sync_refresh_window":          "sync.refresh_window",
	"sync_run_timeout":             "sync.run_timeout",
	"sync_timezone":                "sync.timezone",
	"sync_max_recent_errors":       "sync.max_recent_errors",
	"sync_allow_destructive_reset": "sync.allow_destructive_reset",

	// Cache
	"cache_event_ttl": "cache.event_ttl",
	"cache_club_ttl":  "cache.club_ttl",

	// Server
	"http_port":           "server.port",
	"http_host":           "server.host",
	"http_timeout":        "server.timeout",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",
	"cors_origins":        "server.cors_origins",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}
