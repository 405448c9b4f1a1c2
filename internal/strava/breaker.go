// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package strava

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/metrics"
	"github.com/tomtom215/clubsync/internal/models/strava"
)

// BreakerClient wraps Client with a circuit breaker so a dead or degraded
// platform stops consuming retry budget and rate-limit quota.
//
// The breaker uses real time for its interval and timeout; that timing
// governs recovery, not data integrity, so tests exercise the wrapped
// client directly instead of mocking the breaker.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewBreakerClient wraps client with a circuit breaker. The circuit opens
// after a 60% failure rate over at least 10 requests, waits 2 minutes
// before probing, and allows 3 concurrent probes half-open.
func NewBreakerClient(client *Client) *BreakerClient {
	cbName := "strava-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// Terminal 4xx responses are the caller's problem, not a platform
		// outage; they never count against the circuit.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var terminal *TerminalClientError
			var expired *CredentialExpiredError
			return errors.As(err, &terminal) || errors.As(err, &expired)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// execute wraps a platform call with circuit breaker protection.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
			counts := bc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bc.name).Set(0)
	return result, nil
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Close stops the wrapped client's dispatch queue.
func (bc *BreakerClient) Close() {
	bc.client.Close()
}

// RateLimitSnapshot exposes the wrapped client's quota counters.
func (bc *BreakerClient) RateLimitSnapshot() (shortUsage, shortLimit, dailyUsage, dailyLimit int) {
	return bc.client.RateLimitSnapshot()
}

// ExchangeCode trades an authorization code with circuit breaker protection.
func (bc *BreakerClient) ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error) {
	return castResult[strava.TokenResponse](bc.execute(func() (interface{}, error) {
		return bc.client.ExchangeCode(ctx, code)
	}))
}

// RefreshToken exchanges a refresh token with circuit breaker protection.
func (bc *BreakerClient) RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error) {
	return castResult[strava.TokenResponse](bc.execute(func() (interface{}, error) {
		return bc.client.RefreshToken(ctx, refreshToken)
	}))
}

// GetClub fetches a club summary with circuit breaker protection.
func (bc *BreakerClient) GetClub(ctx context.Context, accessToken string, clubID int64) (*strava.SummaryClub, error) {
	return castResult[strava.SummaryClub](bc.execute(func() (interface{}, error) {
		return bc.client.GetClub(ctx, accessToken, clubID)
	}))
}

// ListAthleteClubs lists the athlete's clubs with circuit breaker protection.
func (bc *BreakerClient) ListAthleteClubs(ctx context.Context, accessToken string) ([]strava.SummaryClub, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.client.ListAthleteClubs(ctx, accessToken)
	})
	if err != nil {
		return nil, err
	}
	clubs, ok := result.([]strava.SummaryClub)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return clubs, nil
}

// ListClubEvents fetches a club's group events with circuit breaker
// protection.
func (bc *BreakerClient) ListClubEvents(ctx context.Context, accessToken string, clubID int64) ([]strava.GroupEvent, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.client.ListClubEvents(ctx, accessToken, clubID)
	})
	if err != nil {
		return nil, err
	}
	events, ok := result.([]strava.GroupEvent)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return events, nil
}
