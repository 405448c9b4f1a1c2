// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package config provides layered configuration loading with Koanf v2.
//
// Configuration is assembled from three sources in increasing priority:
// built-in defaults, an optional YAML config file, and environment
// variables. Every setting has a default; only the platform OAuth client
// credentials are mandatory.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load config")
//	}
//	// cfg.Strava.ClientID, cfg.Database.Path, etc. are now populated
package config
