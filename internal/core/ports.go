package core

import (
	"context"
)

// LLMClient defines the interface for interacting with LLM services.
// Implementations translate provider failures into ErrNetwork, ErrTimeout,
// ErrMalformedResponse or *HTTPError.
type LLMClient interface {
	// Complete sends the email content with the analysis prompt and returns the model text
	Complete(ctx context.Context, emailContent string, credential string) (string, error)

	// RequiresCredential reports whether Complete needs a credential from the CredentialStore
	RequiresCredential() bool

	// ModelName returns the model used for completions
	ModelName() string
}

// CacheRepository defines the interface for caching analysis results
type CacheRepository interface {
	// Get retrieves a live cache entry, or ErrCacheMiss
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// Reachability reports whether the analysis API can be reached at all
type Reachability interface {
	Online(ctx context.Context) bool
}

// DateAnnotator rewrites dates in model output
type DateAnnotator interface {
	AnnotateText(text string) string
}

// CredentialProvider hands out the API credential for a call
type CredentialProvider interface {
	Obtain(ctx context.Context) (string, error)
}

// BodyProcessor prepares an email body for the prompt
type BodyProcessor interface {
	ProcessText(text string, maxSize int) string
}

// SenderPolicy decides whether an email is analyzed at all
type SenderPolicy interface {
	IsAllowed(from string) bool
}

// MetricsRecorder receives analysis outcomes
type MetricsRecorder interface {
	ObserveAnalysis(outcome string, seconds float64)
	ObserveCacheHit()
}
