package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
)

// sqlCache implements core.CacheRepository on an analysis_cache table.
// Timestamps are stored as unix seconds. Only the upsert differs per dialect.
type sqlCache struct {
	db     *sql.DB
	name   string
	upsert string
	logger *zap.Logger
	sweep  *sweeper
}

func newSQLCache(db *sql.DB, name, upsert string, logger *zap.Logger, sweepEvery time.Duration) *sqlCache {
	c := &sqlCache{
		db:     db,
		name:   name,
		upsert: upsert,
		logger: logger,
		sweep:  newSweeper(sweepEvery),
	}
	c.sweep.start(c.Cleanup, logger)
	return c
}

// Get returns the live entry for key or core.ErrCacheMiss
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		entry                 core.CacheEntry
		model                 sql.NullString
		analyzedAt, expiresAt int64
	)

	row := c.db.QueryRowContext(ctx,
		`SELECT result_text, raw_text, model_used, analyzed_at, expires_at
		 FROM analysis_cache WHERE content_key = ? AND expires_at > ?`,
		key, time.Now().Unix())
	if err := row.Scan(&entry.Text, &entry.Raw, &model, &analyzedAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read %s cache: %w", c.name, err)
	}

	entry.Key = key
	entry.ModelUsed = model.String
	entry.AnalyzedAt = time.Unix(analyzedAt, 0)
	entry.ExpiresAt = time.Unix(expiresAt, 0)
	return &entry, nil
}

// Set inserts or replaces the entry
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	if _, err := c.db.ExecContext(ctx, c.upsert,
		entry.Key, entry.Text, entry.Raw, entry.ModelUsed,
		entry.AnalyzedAt.Unix(), entry.ExpiresAt.Unix()); err != nil {
		return fmt.Errorf("failed to write %s cache: %w", c.name, err)
	}
	return nil
}

func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache WHERE content_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete from %s cache: %w", c.name, err)
	}
	return nil
}

// Cleanup drops every expired row
func (c *sqlCache) Cleanup(ctx context.Context) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up %s cache: %w", c.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.logger.Debug("Expired analysis results removed",
			zap.String("cache", c.name),
			zap.Int64("removed", n))
	}
	return nil
}

// Stop ends the background sweep and closes the database. Later calls do nothing.
func (c *sqlCache) Stop() {
	if !c.sweep.stop() {
		return
	}
	if err := c.db.Close(); err != nil {
		c.logger.Warn("Failed to close cache database", zap.String("cache", c.name), zap.Error(err))
	}
}

// initSchema runs each statement and closes db if one fails
func initSchema(db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("failed to create cache schema: %w", err)
		}
	}
	return nil
}
