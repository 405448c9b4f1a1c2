// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateStrava(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStrava() error {
	if c.Strava.ClientID == "" {
		return fmt.Errorf("STRAVA_CLIENT_ID is required")
	}
	if c.Strava.ClientSecret == "" {
		return fmt.Errorf("STRAVA_CLIENT_SECRET is required")
	}
	if err := validateHTTPURL(c.Strava.BaseURL, "STRAVA_BASE_URL"); err != nil {
		return err
	}
	if err := validateHTTPURL(c.Strava.TokenURL, "STRAVA_TOKEN_URL"); err != nil {
		return err
	}
	if c.Strava.Concurrency < 1 {
		return fmt.Errorf("STRAVA_CONCURRENCY must be at least 1, got: %d", c.Strava.Concurrency)
	}
	if c.Strava.MaxRetries < 0 {
		return fmt.Errorf("STRAVA_MAX_RETRIES must not be negative, got: %d", c.Strava.MaxRetries)
	}
	if c.Strava.BackoffCap < c.Strava.BackoffBase {
		return fmt.Errorf("STRAVA_BACKOFF_CAP (%s) must not be below STRAVA_BACKOFF_BASE (%s)",
			c.Strava.BackoffCap, c.Strava.BackoffBase)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.InMemory {
		return nil
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got: %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1m, got: %s", c.Sync.Interval)
	}
	if c.Sync.RunTimeout <= 0 {
		return fmt.Errorf("SYNC_RUN_TIMEOUT must be positive, got: %s", c.Sync.RunTimeout)
	}
	if c.Sync.Timezone != "" {
		if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
			return fmt.Errorf("SYNC_TIMEZONE is not a valid IANA zone: %q", c.Sync.Timezone)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got: %s", c.Server.Timeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got: %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got: %s", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1, got: %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must not be below API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL validates that a URL is a plain http(s) base URL with a
// host and no query parameters.
func validateHTTPURL(rawURL, fieldName string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsed.RawQuery)
	}
	return nil
}
