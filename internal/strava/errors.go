// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package strava

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransientNetworkError wraps a failure that produced no HTTP response at
// all. Always retryable.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// RateLimitedError reports an HTTP 429. Retryable after the advertised
// delay, when the server supplied one.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// UpstreamServerError reports a 5xx from the platform. Retryable.
type UpstreamServerError struct {
	Status int
}

func (e *UpstreamServerError) Error() string {
	return fmt.Sprintf("upstream server error: HTTP %d", e.Status)
}

// TerminalClientError reports a non-retryable 4xx: bad request, bad
// credentials, missing resource. Surfaced to the caller immediately.
type TerminalClientError struct {
	Status int
	Body   string
}

func (e *TerminalClientError) Error() string {
	return fmt.Sprintf("terminal client error: HTTP %d: %s", e.Status, e.Body)
}

// CredentialExpiredError signals that a club's access token was rejected
// and a refresh is required. It aborts only that club's sync.
type CredentialExpiredError struct {
	ClubID int64
}

func (e *CredentialExpiredError) Error() string {
	return fmt.Sprintf("club %d: access token expired or revoked", e.ClubID)
}

// ErrRetriesExhausted is returned when a retryable request has spent its
// retry budget; the last underlying error is wrapped alongside it.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// classifyStatus maps an HTTP response status to the error taxonomy.
// 2xx returns nil.
func classifyStatus(status int, body string, retryAfter time.Duration) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: retryAfter}
	case status >= 500:
		return &UpstreamServerError{Status: status}
	default:
		return &TerminalClientError{Status: status, Body: body}
	}
}

// retryable reports whether the dispatcher should re-queue the request.
func retryable(err error) bool {
	var (
		netErr  *TransientNetworkError
		rateErr *RateLimitedError
		srvErr  *UpstreamServerError
	)
	return errors.As(err, &netErr) || errors.As(err, &rateErr) || errors.As(err, &srvErr)
}
