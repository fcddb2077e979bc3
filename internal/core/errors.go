package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFormatMismatch is reported when a date token is not DD.MM.YYYY.
	// It never leaves the formatter.
	ErrFormatMismatch = errors.New("date does not match DD.MM.YYYY")
	// ErrInvalidCredentialFormat is returned when a manually entered API key is rejected
	ErrInvalidCredentialFormat = errors.New("invalid API key format, please enter a valid OpenAI API key")
	// ErrNoCredential is returned when no API key could be obtained from any source
	ErrNoCredential = errors.New("no API key available")
	// ErrOffline is returned when the environment reports no connectivity
	ErrOffline = errors.New("no internet connection, please check your network and try again")
	// ErrTimeout is returned when the analysis request exceeded its deadline
	ErrTimeout = errors.New("request timed out, the server took too long to respond")
	// ErrNetwork is returned when the API could not be reached
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse is returned when a success response carries no usable text
	ErrMalformedResponse = errors.New("invalid response format from analysis API")
	// ErrStorageUnavailable is returned by storage backends that cannot be used
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	// ErrCacheMiss is returned by cache repositories when no live entry exists
	ErrCacheMiss = errors.New("cache entry not found")
	// ErrSenderNotAllowed is returned when the sender domain is not on the allowlist
	ErrSenderNotAllowed = errors.New("sender domain is not allowed for analysis")
)

// HTTPError is a non-success response from the analysis API
type HTTPError struct {
	StatusCode int
	Message    string
}

// NewHTTPError builds an HTTPError, falling back to the status text when the
// response carried no error message
func NewHTTPError(statusCode int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &HTTPError{StatusCode: statusCode, Message: message}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// ErrorKind groups analysis failures by what the user can do about them
type ErrorKind string

const (
	KindOffline           ErrorKind = "offline"
	KindTimeout           ErrorKind = "timeout"
	KindCanceled          ErrorKind = "canceled"
	KindNetwork           ErrorKind = "network"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindRateLimit         ErrorKind = "rate_limit"
	KindServer            ErrorKind = "server_error"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindUnknown           ErrorKind = "unknown"
)

// AnalysisError is the caller-facing error of an analysis. Error returns a
// message that can be shown to the user as is.
type AnalysisError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	return e.Message
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status behind the error, or 0
func (e *AnalysisError) StatusCode() int {
	var httpErr *HTTPError
	if errors.As(e.Err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// ClassifyError maps a lower level failure to a caller-facing AnalysisError.
// Errors that are already classified are returned unchanged.
func ClassifyError(err error) *AnalysisError {
	if err == nil {
		return nil
	}

	var classified *AnalysisError
	if errors.As(err, &classified) {
		return classified
	}

	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrOffline):
		return &AnalysisError{Kind: KindOffline, Message: "No internet connection. Please check your network and try again.", Err: err}
	case errors.Is(err, ErrTimeout):
		return &AnalysisError{Kind: KindTimeout, Message: "Request timed out. The server took too long to respond.", Err: err}
	case errors.Is(err, context.Canceled):
		return &AnalysisError{Kind: KindCanceled, Message: "Analysis was cancelled.", Err: err}
	case errors.Is(err, ErrNetwork):
		return &AnalysisError{Kind: KindNetwork, Message: "Network error when connecting to the analysis service. Please check your internet connection and try again.", Err: err}
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized:
		return &AnalysisError{Kind: KindInvalidCredential, Message: "Invalid API key. Please check your API key and try again.", Err: err}
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests:
		return &AnalysisError{Kind: KindRateLimit, Message: "API rate limit exceeded. Please try again later.", Err: err}
	case errors.As(err, &httpErr) && httpErr.StatusCode >= 500 && httpErr.StatusCode < 600:
		return &AnalysisError{Kind: KindServer, Message: "Analysis server error. Please try again later.", Err: err}
	case errors.Is(err, ErrMalformedResponse):
		return &AnalysisError{Kind: KindMalformedResponse, Message: "failed to analyze email: " + err.Error(), Err: err}
	default:
		return &AnalysisError{Kind: KindUnknown, Message: "failed to analyze email: " + err.Error(), Err: err}
	}
}
