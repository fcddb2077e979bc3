package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLRoamingStore keeps settings in a MySQL table shared by all devices of
// a user. Reads are served from a snapshot loaded when the store is opened;
// Set changes the snapshot and SaveAsync writes pending changes back.
type MySQLRoamingStore struct {
	db          *sql.DB
	logger      *zap.Logger
	saveTimeout time.Duration

	mu       sync.RWMutex
	snapshot map[string]string
	pending  map[string]string
}

// NewMySQLRoamingStore connects to dsn and loads the current settings
func NewMySQLRoamingStore(dsn string, logger *zap.Logger, saveTimeout time.Duration) (*MySQLRoamingStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS roaming_settings (
			setting_key VARCHAR(255) PRIMARY KEY,
			setting_value TEXT NOT NULL,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLRoamingStore{
		db:          db,
		logger:      logger,
		saveTimeout: saveTimeout,
		snapshot:    make(map[string]string),
		pending:     make(map[string]string),
	}

	if err := store.load(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *MySQLRoamingStore) load() error {
	rows, err := s.db.Query(`SELECT setting_key, setting_value FROM roaming_settings`)
	if err != nil {
		return fmt.Errorf("failed to load roaming settings: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan roaming setting: %w", err)
		}
		s.snapshot[key] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load roaming settings: %w", err)
	}

	s.logger.Debug("Loaded roaming settings", zap.Int("count", len(s.snapshot)))
	return nil
}

// Get retrieves a value from the loaded snapshot
func (s *MySQLRoamingStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.snapshot[key]
	return value, ok, nil
}

// Set changes a value locally; it is written by the next SaveAsync
func (s *MySQLRoamingStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot[key] = value
	s.pending[key] = value
	return nil
}

// SaveAsync writes pending changes in the background and reports the outcome
func (s *MySQLRoamingStore) SaveAsync(callback func(error)) {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]string)
	s.mu.Unlock()

	go func() {
		err := s.save(batch)
		if err != nil {
			// Keep the batch for the next save unless newer values arrived
			s.mu.Lock()
			for k, v := range batch {
				if _, ok := s.pending[k]; !ok {
					s.pending[k] = v
				}
			}
			s.mu.Unlock()
		}
		if callback != nil {
			callback(err)
		}
	}()
}

func (s *MySQLRoamingStore) save(batch map[string]string) error {
	if len(batch) == 0 {
		return nil
	}

	ctx := context.Background()
	if s.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.saveTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range batch {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roaming_settings (setting_key, setting_value, updated_at)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value), updated_at = VALUES(updated_at)
		`, key, value, now)
		if err != nil {
			return fmt.Errorf("failed to save roaming setting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit roaming settings: %w", err)
	}

	s.logger.Debug("Saved roaming settings", zap.Int("count", len(batch)))
	return nil
}

// Close closes the database connection
func (s *MySQLRoamingStore) Close() error {
	return s.db.Close()
}
