package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Email represents an email message handed over by the mail source
type Email struct {
	Subject string
	From    string
	To      []string
	Cc      []string
	Body    string
	Headers map[string][]string
}

// Content assembles the header and body blob that is sent for analysis.
// Missing headers render as empty strings.
func (e *Email) Content() string {
	return fmt.Sprintf("Subject: %s\nFrom: %s\nTo: %s\nCC: %s\n\n%s",
		e.Subject,
		e.From,
		strings.Join(e.To, "; "),
		strings.Join(e.Cc, "; "),
		e.Body,
	)
}

// AnalysisResult represents the result of an email analysis
type AnalysisResult struct {
	// Raw is the model output as returned by the provider (trimmed)
	Raw string
	// Text is Raw with every date and date range annotated with its weekday
	Text       string
	ModelUsed  string
	AnalyzedAt time.Time
	FromCache  bool
}

// CacheEntry is a stored analysis keyed by the hash of the request content
type CacheEntry struct {
	Key        string
	Text       string
	Raw        string
	ModelUsed  string
	AnalyzedAt time.Time
	ExpiresAt  time.Time
}

// ContentKey returns the cache key for an analysis request blob sent to model.
// Results of different models never share a key.
func ContentKey(model, content string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + content))
	return hex.EncodeToString(sum[:])
}
