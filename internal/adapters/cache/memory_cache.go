package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
)

// MemoryCache keeps analysis results in process memory. Entries are copied
// on the way in and out so callers cannot alias them.
type MemoryCache struct {
	mu      sync.RWMutex
	results map[string]core.CacheEntry
	logger  *zap.Logger
	sweep   *sweeper
}

// NewMemoryCache creates a memory cache. A positive sweepEvery removes
// expired entries in the background until Stop is called.
func NewMemoryCache(logger *zap.Logger, sweepEvery time.Duration) *MemoryCache {
	c := &MemoryCache{
		results: make(map[string]core.CacheEntry),
		logger:  logger,
		sweep:   newSweeper(sweepEvery),
	}
	c.sweep.start(c.Cleanup, logger)
	return c
}

// Get returns the entry for key, or core.ErrCacheMiss once it has expired
func (c *MemoryCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.results[key]
	c.mu.RUnlock()

	if !ok || !entry.ExpiresAt.After(time.Now()) {
		return nil, core.ErrCacheMiss
	}
	return &entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	c.mu.Lock()
	c.results[entry.Key] = *entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.results, key)
	c.mu.Unlock()
	return nil
}

// Cleanup drops every expired entry
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.results {
		if !entry.ExpiresAt.After(now) {
			delete(c.results, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Expired analysis results removed",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.results)))
	}
	return nil
}

// Stop ends the background sweep. It is safe to call more than once.
func (c *MemoryCache) Stop() {
	c.sweep.stop()
}
