package credentials

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// KeyPrefix is the literal every OpenAI secret key starts with
	KeyPrefix = "sk-"
	// MinKeyLength is the shortest accepted key, prefix included
	MinKeyLength = 48
)

// IsValidFormat reports whether candidate looks like an OpenAI API key: after
// trimming it starts with "sk-", is at least MinKeyLength characters long and
// contains no whitespace.
func IsValidFormat(candidate string) bool {
	key := strings.TrimSpace(candidate)
	if !strings.HasPrefix(key, KeyPrefix) || len(key) < MinKeyLength {
		return false
	}
	return strings.IndexFunc(key, unicode.IsSpace) < 0
}

// IsValidValue is IsValidFormat for values of unknown type, such as settings
// read from a config file. Non-string values are invalid.
func IsValidValue(v any) bool {
	s, ok := v.(string)
	return ok && IsValidFormat(s)
}

// Mask returns a representation of a key that is safe to log or print
func Mask(key string) string {
	if key == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[key:%d chars]", len(key))
}

// Hint returns the prefix and last four characters of a key for display
func Hint(key string) string {
	if len(key) < len(KeyPrefix)+8 {
		return Mask(key)
	}
	return key[:len(KeyPrefix)] + "..." + key[len(key)-4:]
}

func normalize(key string) string {
	return strings.TrimSpace(key)
}
