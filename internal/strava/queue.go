// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package strava

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/metrics"
)

// QueueConfig tunes the shared dispatch queue.
type QueueConfig struct {
	// Concurrency caps in-flight requests. Defaults to 2.
	Concurrency int

	// MinInterval is the spacing between dispatches regardless of outcome.
	MinInterval time.Duration

	// MaxRetries bounds re-queues per request before the failure is
	// surfaced as terminal.
	MaxRetries int

	// BackoffBase and BackoffCap shape the retry delay
	// min(cap, base*2^retry + jitter).
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// LowWater is the remaining-quota threshold below which dispatch
	// pauses until the window resets.
	LowWater int
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 2 * time.Minute
	}
	if c.LowWater <= 0 {
		c.LowWater = 5
	}
	return c
}

// callResult carries the outcome of one executed call back to its waiter.
type callResult struct {
	err error
}

// call is one queued request. The operation closure performs the HTTP
// round trip and decodes into caller-owned memory, so the queue never
// inspects payloads.
type call struct {
	seq       uint64
	op        func(ctx context.Context) error
	label     string
	ctx       context.Context
	done      chan callResult
	retries   int
	notBefore time.Time
	lastErr   error
}

// Queue serializes all outbound platform calls through one dispatch loop
// under a shared concurrency cap. Retryable failures re-enter at the front
// of the queue with a per-item earliest-dispatch time, so a retrying
// request keeps its priority without blocking the loop.
type Queue struct {
	cfg     QueueConfig
	limits  *rateLimitState
	limiter *rate.Limiter
	clk     clock.Clock

	mu      sync.Mutex
	items   []*call // front at index 0
	nextSeq uint64
	wake    chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
	doneCh   chan struct{}
}

// NewQueue builds and starts a dispatch queue.
func NewQueue(cfg QueueConfig, limits *rateLimitState, clk clock.Clock) *Queue {
	cfg = cfg.withDefaults()
	if clk == nil {
		clk = clock.System{}
	}
	q := &Queue{
		cfg:     cfg,
		limits:  limits,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		clk:     clk,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go q.dispatchLoop()
	return q
}

// Submit enqueues op at the back of the queue and blocks until it
// completes, exhausts its retries, or ctx is cancelled.
func (q *Queue) Submit(ctx context.Context, label string, op func(ctx context.Context) error) error {
	c := &call{
		op:    op,
		label: label,
		ctx:   ctx,
		done:  make(chan callResult, 1),
	}

	q.mu.Lock()
	select {
	case <-q.stop:
		q.mu.Unlock()
		return errors.New("request queue closed")
	default:
	}
	q.nextSeq++
	c.seq = q.nextSeq
	q.items = append(q.items, c)
	depth := len(q.items)
	q.mu.Unlock()

	metrics.RequestQueueDepth.Set(float64(depth))
	q.signal()

	select {
	case res := <-c.done:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the dispatch loop. Queued calls fail with a closed-queue
// error; in-flight calls finish.
func (q *Queue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
	<-q.doneCh
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop is the single logical dispatcher. It owns queue order and
// all pause decisions; only request execution fans out, bounded by the
// concurrency cap.
func (q *Queue) dispatchLoop() {
	defer close(q.doneCh)

	slots := make(chan struct{}, q.cfg.Concurrency)
	var inflight sync.WaitGroup

	for {
		c, wait := q.next()
		if c == nil {
			if !q.idle(wait) {
				inflight.Wait()
				q.drain()
				return
			}
			continue
		}

		// Dropped callers are discarded without consuming a slot.
		if c.ctx.Err() != nil {
			c.done <- callResult{err: c.ctx.Err()}
			continue
		}

		if pauseAt := q.limits.PauseUntil(q.cfg.LowWater); !pauseAt.IsZero() {
			// Stamp the head with the pause deadline so next() reports
			// the remaining delay and the loop sleeps instead of
			// re-popping the same call for the whole pause.
			c.notBefore = pauseAt
			q.requeueFront(c)
			logging.Warn().Time("until", pauseAt).Str("request", c.label).Msg("Rate limit low water, pausing dispatch")
			metrics.RateLimitPauses.Inc()
			if !q.idle(pauseAt.Sub(q.clk.Now())) {
				inflight.Wait()
				q.drain()
				return
			}
			continue
		}

		if err := q.waitSpacing(); err != nil {
			q.requeueFront(c)
			inflight.Wait()
			q.drain()
			return
		}

		select {
		case slots <- struct{}{}:
		case <-q.stop:
			q.requeueFront(c)
			inflight.Wait()
			q.drain()
			return
		}

		inflight.Add(1)
		go func(c *call) {
			defer inflight.Done()
			defer func() { <-slots; q.signal() }()
			q.execute(c)
		}(c)
	}
}

// next pops the first eligible call. When the queue is non-empty but the
// head is still backing off, it returns the remaining delay instead.
func (q *Queue) next() (*call, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, 0
	}
	head := q.items[0]
	if now := q.clk.Now(); head.notBefore.After(now) {
		return nil, head.notBefore.Sub(now)
	}
	q.items = q.items[1:]
	metrics.RequestQueueDepth.Set(float64(len(q.items)))
	return head, 0
}

// idle sleeps for d (or until woken) and reports false when the queue is
// stopping. d <= 0 means wait indefinitely for a wake-up.
func (q *Queue) idle(d time.Duration) bool {
	var timerC <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timerC = t.C
	}
	select {
	case <-q.wake:
		return true
	case <-timerC:
		return true
	case <-q.stop:
		return false
	}
}

// waitSpacing enforces the minimum inter-request delay.
func (q *Queue) waitSpacing() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-q.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return q.limiter.Wait(ctx)
}

func (q *Queue) requeueFront(c *call) {
	q.mu.Lock()
	q.items = append([]*call{c}, q.items...)
	metrics.RequestQueueDepth.Set(float64(len(q.items)))
	q.mu.Unlock()
	q.signal()
}

// execute runs the call and routes its outcome: success and terminal
// errors complete the waiter, retryable errors re-enter at the queue front
// with an exponential-backoff earliest-dispatch time.
func (q *Queue) execute(c *call) {
	err := c.op(c.ctx)
	if err == nil {
		metrics.PlatformRequests.WithLabelValues(c.label, "success").Inc()
		c.done <- callResult{}
		return
	}

	if !retryable(err) {
		metrics.PlatformRequests.WithLabelValues(c.label, "terminal").Inc()
		c.done <- callResult{err: err}
		return
	}

	c.lastErr = err
	if c.retries >= q.cfg.MaxRetries {
		metrics.PlatformRequests.WithLabelValues(c.label, "exhausted").Inc()
		c.done <- callResult{err: fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.retries+1, err)}
		return
	}

	delay := q.backoff(c.retries, err)
	c.retries++
	c.notBefore = q.clk.Now().Add(delay)

	logging.Warn().Err(err).Str("request", c.label).Int("retry", c.retries).Dur("delay", delay).Msg("Retryable failure, re-queuing at front")
	metrics.PlatformRequests.WithLabelValues(c.label, "retry").Inc()
	q.requeueFront(c)
}

// backoff computes min(cap, base*2^retry + jitter). A server-advertised
// Retry-After wins when it is longer.
func (q *Queue) backoff(retry int, err error) time.Duration {
	d := q.cfg.BackoffBase << uint(retry)
	if d > q.cfg.BackoffCap || d <= 0 {
		d = q.cfg.BackoffCap
	} else {
		d += time.Duration(rand.Int63n(int64(q.cfg.BackoffBase)))
		if d > q.cfg.BackoffCap {
			d = q.cfg.BackoffCap
		}
	}

	var rateErr *RateLimitedError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > d {
		d = rateErr.RetryAfter
	}
	return d
}

// drain fails every remaining queued call.
func (q *Queue) drain() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	for _, c := range items {
		c.done <- callResult{err: errors.New("request queue closed")}
	}
}
