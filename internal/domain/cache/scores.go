package cache

import (
	"sync"
	"time"

	"github.com/okian/scorecard/internal/domain/bitmask"
)

// TeamScore is one computed tally snapshot.
type TeamScore struct {
	Team       int
	Score      float64
	Bitmask    []bitmask.Entry
	ComputedAt time.Time
}

// ScoreCache caches computed tallies per team. Entries are invalidated
// only by TTL elapse; a full recomputation replaces the entry wholesale.
type ScoreCache struct {
	mu      sync.RWMutex
	entries map[int]TeamScore
	ttl     float64 // seconds, mutable per request

	now func() time.Time
}

// ScoreOption applies a configuration option to a ScoreCache.
type ScoreOption func(*ScoreCache)

// WithScoreTTL sets the initial cache lifetime in seconds.
func WithScoreTTL(seconds float64) ScoreOption {
	return func(c *ScoreCache) {
		if seconds >= 0 {
			c.ttl = seconds
		}
	}
}

// WithScoreNow injects the clock used for staleness checks.
func WithScoreNow(now func() time.Time) ScoreOption {
	return func(c *ScoreCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewScoreCache creates an empty per-team score cache.
func NewScoreCache(opts ...ScoreOption) *ScoreCache {
	c := &ScoreCache{
		entries: make(map[int]TeamScore),
		ttl:     DefaultScoreTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTTL overwrites the cache lifetime in seconds. Negative values are
// ignored.
func (c *ScoreCache) SetTTL(seconds float64) {
	if seconds < 0 {
		return
	}
	c.mu.Lock()
	c.ttl = seconds
	c.mu.Unlock()
}

// Get returns the cached tally for team when one exists and is still
// fresh.
func (c *ScoreCache) Get(team int) (TeamScore, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[team]
	if !ok {
		return TeamScore{}, false
	}
	if c.now().Sub(entry.ComputedAt).Seconds() >= c.ttl {
		return TeamScore{}, false
	}
	return entry, true
}

// Put stores a freshly computed tally for its team, stamping ComputedAt.
func (c *ScoreCache) Put(entry TeamScore) TeamScore {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.ComputedAt = c.now()
	c.entries[entry.Team] = entry
	return entry
}

// Len returns the number of cached teams, fresh or stale.
func (c *ScoreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the currently effective cache lifetime in seconds.
func (c *ScoreCache) TTL() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}
