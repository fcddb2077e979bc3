package credentials

import "context"

// KeyValueStore is a durable local settings backend
type KeyValueStore interface {
	// Get returns the value stored under key and whether it was present
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// RoamingStore is a settings backend synchronized across devices. Set only
// changes the local view; SaveAsync persists it and reports through callback,
// which may never be called.
type RoamingStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	SaveAsync(callback func(error))
}

// Prompter asks the user to enter a value manually
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}
