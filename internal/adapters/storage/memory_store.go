package storage

import (
	"sync"
)

// MemoryStore is an in-memory settings store. It satisfies both the local and
// the roaming store contracts; SaveAsync reports success asynchronously.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a new in-memory settings store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
	}
}

// Get retrieves a value
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok, nil
}

// Set stores a value
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete removes a value
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// SaveAsync has nothing to persist and reports success on a new goroutine
func (s *MemoryStore) SaveAsync(callback func(error)) {
	if callback == nil {
		return
	}
	go callback(nil)
}
