// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package main is the entry point for the clubsync server.
//
// Clubsync aggregates group events from running clubs on a rate-limited
// fitness platform, enriches them with pace and distance classification,
// and serves the merged schedule over a REST API.
//
// # Startup order
//
//  1. Configuration: layered defaults, config file, environment (Koanf v2)
//  2. Store: embedded DuckDB file, or in-memory for development
//  3. Platform client: shared dispatch queue, optional circuit breaker
//  4. Sync manager: periodic reconciliation against the upstream platform
//  5. HTTP server: REST API with Prometheus metrics
//
// The sync manager and HTTP server run under a suture supervisor tree so
// either can crash and restart without taking the other down.
//
// # Configuration
//
// Configuration is loaded via Koanf with layered sources (highest wins):
// environment variables, config file (CONFIG_PATH or config.yaml), then
// built-in defaults. STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET are the
// only required settings.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the sync manager finishes or abandons the current
// run, and the store is closed last.
//
// # Example usage
//
//	export STRAVA_CLIENT_ID=12345
//	export STRAVA_CLIENT_SECRET=secret
//	export DB_PATH=/data/clubsync.duckdb
//	./clubsync
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/clubsync/internal/api"
	"github.com/tomtom215/clubsync/internal/cache"
	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/config"
	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/store"
	"github.com/tomtom215/clubsync/internal/strava"
	"github.com/tomtom215/clubsync/internal/supervisor"
	"github.com/tomtom215/clubsync/internal/sync"
)

// version is injected at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors surface through the default logger since logging
		// is not configured yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting clubsync")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("in_memory", cfg.Database.InMemory).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Configuration loaded")

	st, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store initialized")

	clk := clock.System{}
	client := newPlatformClient(cfg, clk)
	defer client.Close()

	queryCache := cache.NewQueryCache(cfg.Cache.EventTTL, cfg.Cache.ClubTTL, clk)
	defer queryCache.Close()

	syncManager := sync.NewManager(st, client, queryCache, sync.Config{
		Interval:        cfg.Sync.Interval,
		RefreshWindow:   cfg.Sync.RefreshWindow,
		Location:        cfg.Sync.Location(),
		RunTimeout:      cfg.Sync.RunTimeout,
		MaxRecentErrors: cfg.Sync.MaxRecentErrors,
	}, clk)

	handler := api.NewHandler(st, syncManager, cfg, version)
	router := api.NewRouter(handler, api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
	}))

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// sutureslog wants slog; the supervisor logs through the zerolog
	// bridge so everything lands in the same stream.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(supervisor.NewSyncService(syncManager))
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// openStore picks the persistent DuckDB store or the in-memory store
// depending on configuration.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.InMemory {
		logging.Warn().Msg("Using in-memory store; all data is lost on restart")
		return store.NewMemory(), nil
	}
	return store.NewDuckDB(store.DuckDBConfig{
		Path:      cfg.Database.Path,
		Threads:   cfg.Database.Threads,
		MaxMemory: cfg.Database.MaxMemory,
	})
}

// platformClient extends the sync manager's client interface with the
// queue shutdown both concrete clients provide.
type platformClient interface {
	sync.PlatformClient
	Close()
}

// newPlatformClient builds the upstream client, wrapped in a circuit
// breaker unless disabled.
func newPlatformClient(cfg *config.Config, clk clock.Clock) platformClient {
	client := strava.NewClient(strava.Config{
		BaseURL:      cfg.Strava.BaseURL,
		TokenURL:     cfg.Strava.TokenURL,
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		Timeout:      cfg.Strava.Timeout,
		Queue: strava.QueueConfig{
			Concurrency: cfg.Strava.Concurrency,
			MinInterval: cfg.Strava.MinInterval,
			MaxRetries:  cfg.Strava.MaxRetries,
			BackoffBase: cfg.Strava.BackoffBase,
			BackoffCap:  cfg.Strava.BackoffCap,
			LowWater:    cfg.Strava.LowWater,
		},
	}, clk)

	if !cfg.Strava.BreakerEnabled {
		logging.Warn().Msg("Platform circuit breaker disabled")
		return client
	}
	return strava.NewBreakerClient(client)
}
