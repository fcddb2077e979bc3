package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteUpsert = `INSERT OR REPLACE INTO analysis_cache
	(content_key, result_text, raw_text, model_used, analyzed_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?)`

// SQLiteCache stores analysis results in a local SQLite file
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache opens or creates the cache database at dbPath
func NewSQLiteCache(dbPath string, logger *zap.Logger, sweepEvery time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	err = initSchema(db,
		`CREATE TABLE IF NOT EXISTS analysis_cache (
			content_key TEXT PRIMARY KEY,
			result_text TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			model_used TEXT,
			analyzed_at INTEGER,
			expires_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_expires_at ON analysis_cache(expires_at)`,
	)
	if err != nil {
		return nil, err
	}

	return &SQLiteCache{newSQLCache(db, "sqlite", sqliteUpsert, logger, sweepEvery)}, nil
}
