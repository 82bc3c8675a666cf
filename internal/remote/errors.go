package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by Client operations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, remote.ErrNotFound) {
//	    // use the default document
//	}
var (
	// ErrNotFound is returned when the document does not exist yet.
	ErrNotFound = errors.New("remote document not found")

	// ErrConflict is returned when the revision sent with a write is stale.
	ErrConflict = errors.New("remote revision conflict")

	// ErrUnauthorized is returned when the token is rejected.
	ErrUnauthorized = errors.New("remote token rejected")

	// ErrNotConfigured is returned when owner, repository or token is missing.
	ErrNotConfigured = errors.New("remote not configured")
)

// APIError is a non-success response that maps to no sentinel.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsRetryable returns true if the error is likely to succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// A fresh revision resolves the conflict
	if errors.Is(err, ErrConflict) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func statusError(method, path string, status int, message string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrConflict)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	return &APIError{Method: method, Path: path, StatusCode: status, Message: message}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
