package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlUpsert = `INSERT INTO analysis_cache
	(content_key, result_text, raw_text, model_used, analyzed_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		result_text = VALUES(result_text),
		raw_text = VALUES(raw_text),
		model_used = VALUES(model_used),
		analyzed_at = VALUES(analyzed_at),
		expires_at = VALUES(expires_at)`

// MySQLCache stores analysis results in a shared MySQL database so several
// machines can reuse them
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache connects to dsn and creates the cache table if needed
func NewMySQLCache(dsn string, logger *zap.Logger, sweepEvery time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	err = initSchema(db, `CREATE TABLE IF NOT EXISTS analysis_cache (
		content_key CHAR(64) PRIMARY KEY,
		result_text MEDIUMTEXT NOT NULL,
		raw_text MEDIUMTEXT NOT NULL,
		model_used VARCHAR(128),
		analyzed_at BIGINT,
		expires_at BIGINT,
		INDEX idx_analysis_expires_at (expires_at)
	)`)
	if err != nil {
		return nil, err
	}

	return &MySQLCache{newSQLCache(db, "mysql", mysqlUpsert, logger, sweepEvery)}, nil
}
