package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
)

const (
	// APIKeyName is the settings key the credential is stored under in both backends
	APIKeyName = "openai_api_key"
	// DefaultRoamingSaveTimeout bounds how long StoreRoaming waits for the save callback
	DefaultRoamingSaveTimeout = 5 * time.Second

	selfTestKey   = "_test_store_"
	selfTestValue = "test"
	promptMessage = "Please enter your OpenAI API key: "
)

// Source names where a credential was found
type Source string

const (
	SourceNone    Source = ""
	SourceRoaming Source = "roaming"
	SourceLocal   Source = "local"
	SourceManual  Source = "manual"
)

// Store validates, persists and retrieves the API credential. Storage
// failures never surface as errors; they read as a missing value.
type Store struct {
	local              KeyValueStore
	roaming            RoamingStore
	prompter           Prompter
	logger             *zap.Logger
	roamingSaveTimeout time.Duration

	mu         sync.Mutex
	lastSource Source
}

// NewStore creates a credential store. Any backend and the prompter may be nil.
func NewStore(local KeyValueStore, roaming RoamingStore, prompter Prompter, logger *zap.Logger, roamingSaveTimeout time.Duration) *Store {
	if roamingSaveTimeout <= 0 {
		roamingSaveTimeout = DefaultRoamingSaveTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		local:              local,
		roaming:            roaming,
		prompter:           prompter,
		logger:             logger,
		roamingSaveTimeout: roamingSaveTimeout,
	}
}

// Store writes value to the durable local backend after a write/read-back
// self-test. It returns false if the backend is missing or not working.
func (s *Store) Store(key, value string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Error storing value in local store", zap.String("key", key), zap.Any("panic", r))
			ok = false
		}
	}()

	if s.local == nil {
		s.logger.Warn("Local store is not available", zap.String("key", key))
		return false
	}

	if err := s.selfTest(); err != nil {
		s.logger.Warn("Local store is not working properly", zap.Error(err))
		return false
	}

	if err := s.local.Set(key, value); err != nil {
		s.logger.Error("Error storing value in local store", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Retrieve reads key from the durable local backend
func (s *Store) Retrieve(key string) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Error retrieving value from local store", zap.String("key", key), zap.Any("panic", r))
			value, ok = "", false
		}
	}()

	if s.local == nil {
		return "", false
	}

	value, found, err := s.local.Get(key)
	if err != nil {
		s.logger.Error("Error retrieving value from local store", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, found
}

// StoreRoaming sets value in the roaming backend and waits for the save to
// settle. A save that does not report back within the timeout counts as failed.
func (s *Store) StoreRoaming(ctx context.Context, key, value string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Error storing value in roaming store", zap.String("key", key), zap.Any("panic", r))
			ok = false
		}
	}()

	if s.roaming == nil {
		return false
	}

	if err := s.roaming.Set(key, value); err != nil {
		s.logger.Error("Error storing value in roaming store", zap.String("key", key), zap.Error(err))
		return false
	}

	// Single-resolution cell: the first settlement fills it, later ones are dropped
	result := make(chan bool, 1)
	settle := func(saved bool) {
		select {
		case result <- saved:
		default:
		}
	}

	timer := time.NewTimer(s.roamingSaveTimeout)
	defer timer.Stop()

	s.roaming.SaveAsync(func(err error) {
		if err != nil {
			s.logger.Warn("Roaming store save failed", zap.String("key", key), zap.Error(err))
		}
		settle(err == nil)
	})

	select {
	case saved := <-result:
		return saved
	case <-timer.C:
		settle(false)
		s.logger.Warn("Roaming store save timed out",
			zap.String("key", key),
			zap.Duration("timeout", s.roamingSaveTimeout))
		return <-result
	case <-ctx.Done():
		settle(false)
		return <-result
	}
}

// RetrieveRoaming reads key from the roaming backend
func (s *Store) RetrieveRoaming(key string) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Error retrieving value from roaming store", zap.String("key", key), zap.Any("panic", r))
			value, ok = "", false
		}
	}()

	if s.roaming == nil {
		return "", false
	}

	value, found, err := s.roaming.Get(key)
	if err != nil {
		s.logger.Error("Error retrieving value from roaming store", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, found
}

// Obtain returns the API key, trying the roaming store, then the local store,
// then manual entry. A manually entered key is validated and persisted to
// both backends on a best-effort basis.
func (s *Store) Obtain(ctx context.Context) (string, error) {
	if key, ok := s.RetrieveRoaming(APIKeyName); ok {
		if IsValidFormat(key) {
			s.setSource(SourceRoaming)
			return key, nil
		}
		s.logger.Warn("Ignoring malformed API key from roaming store", zap.String("key", Mask(key)))
	}

	if key, ok := s.Retrieve(APIKeyName); ok {
		if IsValidFormat(key) {
			s.setSource(SourceLocal)
			return key, nil
		}
		s.logger.Warn("Ignoring malformed API key from local store", zap.String("key", Mask(key)))
	}

	if s.prompter == nil {
		return "", core.ErrNoCredential
	}

	entered, err := s.prompter.Prompt(ctx, promptMessage)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}

	if err := s.Set(ctx, entered); err != nil {
		return "", err
	}
	s.setSource(SourceManual)
	return normalize(entered), nil
}

// Set validates key and stores it in both backends. Persistence failures are
// logged; only an invalid format is returned as an error.
func (s *Store) Set(ctx context.Context, key string) error {
	if !IsValidFormat(key) {
		return core.ErrInvalidCredentialFormat
	}
	key = normalize(key)

	storedLocal := s.Store(APIKeyName, key)
	storedRoaming := s.StoreRoaming(ctx, APIKeyName, key)
	if !storedLocal && !storedRoaming {
		s.logger.Warn("API key could not be persisted, it is only used for this run",
			zap.String("key", Mask(key)))
	} else {
		s.logger.Info("API key stored",
			zap.String("key", Mask(key)),
			zap.Bool("local", storedLocal),
			zap.Bool("roaming", storedRoaming))
	}
	return nil
}

// Source reports where the credential returned by the last Obtain came from
func (s *Store) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSource
}

func (s *Store) setSource(src Source) {
	s.mu.Lock()
	s.lastSource = src
	s.mu.Unlock()
	s.logger.Debug("API key obtained", zap.String("source", string(src)))
}

func (s *Store) selfTest() error {
	if err := s.local.Set(selfTestKey, selfTestValue); err != nil {
		return err
	}
	got, found, err := s.local.Get(selfTestKey)
	if err != nil {
		return err
	}
	if !found || got != selfTestValue {
		return errors.New("local store self-test failed")
	}
	return s.local.Delete(selfTestKey)
}
