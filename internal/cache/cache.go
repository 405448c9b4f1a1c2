// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package cache provides the TTL key-value store that fronts the read path.
//
// Cache is a generic thread-safe map with per-entry expiration. QueryCache
// layers the pipeline's semantics on top: canonical predicate digests as
// keys, per-data-class TTLs, and club-scoped invalidation.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clubsync/internal/clock"
	"github.com/tomtom215/clubsync/internal/metrics"
)

// cleanupInterval is how often the background sweep removes expired entries.
// Expiry is still enforced on every Get; the sweep only reclaims memory.
const cleanupInterval = 5 * time.Minute

// Entry represents a cached item with expiration.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
}

// Cache is a thread-safe in-memory cache with TTL support. Entries are
// never served past their expiry: Get checks expiration on every lookup,
// and a background sweep reclaims expired entries periodically.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	clk     clock.Clock

	// label identifies this cache in exported Prometheus metrics.
	label string

	statsMu sync.Mutex
	stats   Stats

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache with the given default TTL, reading the system clock.
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, clock.System{})
}

// NewWithClock creates a cache with an injected clock. Tests use a fixed
// clock to exercise expiry without sleeping.
func NewWithClock(ttl time.Duration, clk clock.Clock) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		clk:     clk,
		label:   "default",
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// SetMetricsLabel names the cache in the exported Prometheus series.
// Call before the cache sees traffic.
func (c *Cache) SetMetricsLabel(label string) {
	c.label = label
}

// Get retrieves a value by key. Expired entries are removed and reported
// as misses; a miss always falls through to the authoritative store.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.record(func(s *Stats) { s.Misses++ })
		metrics.CacheMisses.WithLabelValues(c.label).Inc()
		return nil, false
	}

	if c.clk.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		metrics.CacheMisses.WithLabelValues(c.label).Inc()
		metrics.CacheEvictions.WithLabelValues(c.label).Inc()
		return nil, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	metrics.CacheHits.WithLabelValues(c.label).Inc()
	return entry.Data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL, overwriting any existing entry.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: c.clk.Now().Add(ttl),
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) { s.TotalKeys = total })
	metrics.CacheSize.WithLabelValues(c.label).Set(float64(total))
}

// Delete removes a single entry. Safe to call for missing keys.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.record(func(s *Stats) { s.Evictions++ })
	metrics.CacheEvictions.WithLabelValues(c.label).Inc()
}

// Clear removes all entries in one atomic map swap.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.record(func(s *Stats) { s.Evictions += evicted; s.TotalKeys = 0 })
	metrics.CacheEvictions.WithLabelValues(c.label).Add(float64(evicted))
	metrics.CacheSize.WithLabelValues(c.label).Set(0)
}

// Keys returns a snapshot of the current key space.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// GetStats returns a snapshot of the performance counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns the hit rate as a percentage.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) record(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

// cleanupLoop periodically removes expired entries.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes all expired entries.
func (c *Cache) cleanup() {
	now := c.clk.Now()
	c.mu.Lock()
	evicted := int64(0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) { s.Evictions += evicted; s.TotalKeys = total })
	metrics.CacheEvictions.WithLabelValues(c.label).Add(float64(evicted))
	metrics.CacheSize.WithLabelValues(c.label).Set(float64(total))
}

// GenerateKey creates a cache key from a method name and parameters by
// hashing their JSON form. Callers must pre-normalize parameters; the
// digest is order-sensitive.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to a plain string key
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
