package factory

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/adapters/storage"
	"github.com/mikey/vertretungsanalyse/internal/config"
	"github.com/mikey/vertretungsanalyse/internal/credentials"
	"go.uber.org/zap"
)

// StorageFactory creates the credential storage backends
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLocalStore creates the durable local backend. A backend that cannot
// be opened is reported as absent (nil) so the credential store fails closed.
func (f *StorageFactory) CreateLocalStore() (credentials.KeyValueStore, io.Closer, error) {
	storageCfg, err := f.cfg.GetStorage()
	if err != nil {
		return nil, nil, err
	}

	switch storageCfg.LocalType {
	case "none":
		return nil, nil, nil
	case "memory":
		return storage.NewMemoryStore(), nil, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storageCfg.LocalSQLitePath), 0o700); err != nil {
			f.logger.Warn("Local settings store unavailable", zap.Error(err))
			return nil, nil, nil
		}
		store, err := storage.NewSQLiteStore(storageCfg.LocalSQLitePath, f.logger)
		if err != nil {
			f.logger.Warn("Local settings store unavailable", zap.Error(err))
			return nil, nil, nil
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported local storage type: %s", storageCfg.LocalType)
	}
}

// CreateRoamingStore creates the roaming backend, or nil when none is configured
func (f *StorageFactory) CreateRoamingStore() (credentials.RoamingStore, io.Closer, error) {
	storageCfg, err := f.cfg.GetStorage()
	if err != nil {
		return nil, nil, err
	}

	switch storageCfg.RoamingType {
	case "none", "":
		return nil, nil, nil
	case "memory":
		return storage.NewMemoryStore(), nil, nil
	case "mysql":
		store, err := storage.NewMySQLRoamingStore(storageCfg.RoamingMySQLDSN, f.logger, storageCfg.RoamingSaveTimeout)
		if err != nil {
			f.logger.Warn("Roaming settings store unavailable", zap.Error(err))
			return nil, nil, nil
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported roaming storage type: %s", storageCfg.RoamingType)
	}
}

// RoamingSaveTimeout returns how long a roaming save may take
func (f *StorageFactory) RoamingSaveTimeout() (time.Duration, error) {
	storageCfg, err := f.cfg.GetStorage()
	if err != nil {
		return 0, err
	}
	return storageCfg.RoamingSaveTimeout, nil
}
