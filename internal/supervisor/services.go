// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StartStopManager matches the sync.Manager lifecycle so the wrapper can
// adapt Start/Stop to suture's Serve pattern without importing the
// manager directly.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService wraps the sync manager as a supervised service.
//
// The manager runs its own goroutines internally, so Serve only has to
// orchestrate the lifecycle: start, wait for cancellation, stop.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates a supervised wrapper around the sync manager.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "sync-manager",
	}
}

// Serve implements suture.Service.
//
// If Start fails the error is returned immediately, which makes suture
// restart the service with its backoff policy.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *SyncService) String() string {
	return s.name
}

// HTTPServer matches *http.Server's lifecycle methods, allowing tests to
// substitute a mock.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService wraps an HTTP server as a supervised service, translating
// the blocking ListenAndServe pattern into suture's context-aware Serve.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPService creates a supervised wrapper around an HTTP server.
// shutdownTimeout bounds how long graceful shutdown may take; values
// <= 0 fall back to 10 seconds.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service.
//
// ListenAndServe runs in a goroutine; Serve waits for either a server
// error or context cancellation, shutting down gracefully in the latter
// case. http.ErrServerClosed is expected on shutdown and treated as nil.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The original context is already canceled, so shutdown gets
		// its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (h *HTTPService) String() string {
	return h.name
}
