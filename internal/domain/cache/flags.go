// Package cache holds the process-wide, TTL-bounded caches that protect
// the storage backend from abusively fast clients.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scorecard/internal/adapters/kvstore"
	"github.com/okian/scorecard/internal/domain/model"
)

// Default cache lifetimes, in line with the original deployment defaults.
const (
	DefaultFlagTTL  = 30.0 // seconds
	DefaultScoreTTL = 30.0 // seconds
)

// FlagCache is a whole-snapshot cache of every flag definition. Refreshes
// replace the snapshot atomically under the lock; stale reads inside the
// TTL window are the accepted tradeoff for backend-load reduction.
type FlagCache struct {
	source kvstore.Scanner

	mu          sync.RWMutex
	flags       []model.FlagDefinition
	refreshedAt time.Time
	ttl         float64 // seconds, mutable per request
	primed      bool

	now func() time.Time
}

// FlagOption applies a configuration option to a FlagCache.
type FlagOption func(*FlagCache)

// WithFlagTTL sets the initial cache lifetime in seconds.
func WithFlagTTL(seconds float64) FlagOption {
	return func(c *FlagCache) {
		if seconds >= 0 {
			c.ttl = seconds
		}
	}
}

// WithFlagNow injects the clock used for staleness checks.
func WithFlagNow(now func() time.Time) FlagOption {
	return func(c *FlagCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewFlagCache creates a cache over the flag definition store.
func NewFlagCache(source kvstore.Scanner, opts ...FlagOption) *FlagCache {
	c := &FlagCache{
		source: source,
		ttl:    DefaultFlagTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the flag snapshot, refreshing it from the store when the
// TTL elapsed or the cache was never primed. A non-nil requestedTTL
// overwrites the cache lifetime before the staleness check; any request
// may lower (or raise) it for subsequent callers.
func (c *FlagCache) Current(ctx context.Context, requestedTTL *float64) ([]model.FlagDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if requestedTTL != nil && *requestedTTL >= 0 {
		c.ttl = *requestedTTL
	}

	now := c.now()
	if c.primed && now.Sub(c.refreshedAt).Seconds() < c.ttl {
		return c.flags, nil
	}

	items, err := c.source.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh flag snapshot: %w", err)
	}
	flags := make([]model.FlagDefinition, 0, len(items))
	for _, item := range items {
		def, err := model.FlagFromItem(item)
		if err != nil {
			return nil, fmt.Errorf("refresh flag snapshot: %w", err)
		}
		flags = append(flags, def)
	}

	// Replace the snapshot wholesale; readers holding the previous slice
	// keep a consistent view.
	c.flags = flags
	c.refreshedAt = now
	c.primed = true
	return c.flags, nil
}

// TTL returns the currently effective cache lifetime in seconds.
func (c *FlagCache) TTL() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}

// RefreshedAt returns the time of the last successful refresh.
func (c *FlagCache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
