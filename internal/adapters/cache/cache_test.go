package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ core.CacheRepository = (*MemoryCache)(nil)
	_ core.CacheRepository = (*SQLiteCache)(nil)
	_ core.CacheRepository = (*MySQLCache)(nil)
)

func newEntry(key string, ttl time.Duration) *core.CacheEntry {
	now := time.Now()
	return &core.CacheEntry{
		Key:        key,
		Text:       "Vertretung für 12.05.2025 (Mo)",
		Raw:        "Vertretung für 12.05.2025",
		ModelUsed:  "gpt-4o-mini",
		AnalyzedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

func exerciseRepository(t *testing.T, repo core.CacheRepository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, newEntry("live", time.Hour)))
	got, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "Vertretung für 12.05.2025 (Mo)", got.Text)
	assert.Equal(t, "Vertretung für 12.05.2025", got.Raw)
	assert.Equal(t, "gpt-4o-mini", got.ModelUsed)

	require.NoError(t, repo.Set(ctx, newEntry("expired", -time.Hour)))
	_, err = repo.Get(ctx, "expired")
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	require.NoError(t, repo.Cleanup(ctx))
	_, err = repo.Get(ctx, "live")
	assert.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.Get(ctx, "live")
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()
	exerciseRepository(t, c)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()
	ctx := context.Background()

	entry := newEntry("k", time.Hour)
	require.NoError(t, c.Set(ctx, entry))
	entry.Text = "mutated"

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.Text)
}

func TestMemoryCacheBackgroundCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 10*time.Millisecond)
	defer c.Stop()

	require.NoError(t, c.Set(context.Background(), newEntry("old", -time.Minute)))
	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.results) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCacheStopIsIdempotent(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	c.Stop()
	assert.NotPanics(t, c.Stop)
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), 0)
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	defer c.Stop()
	exerciseRepository(t, c)
}

func TestSQLiteCacheStopIsIdempotent(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), time.Hour)
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	c.Stop()
	assert.NotPanics(t, c.Stop)
}
