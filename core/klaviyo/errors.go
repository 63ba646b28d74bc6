package klaviyo

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoCredentials is returned when neither an API key nor OAuth client
	// credentials are configured.
	ErrNoCredentials = errors.New("klaviyo: no credentials configured")

	// ErrNoContent is returned by Response.Decode for bodiless responses.
	ErrNoContent = errors.New("klaviyo: response has no content")
)

// AuthError is returned when the token endpoint rejects a refresh.
// It is never retried: a rejected refresh token will not become valid.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("klaviyo: oauth refresh rejected (status %d): %s", e.StatusCode, e.Body)
}

// PersistenceError wraps a failure to durably store refreshed credentials.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("klaviyo: failed to persist credentials: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// TransportError wraps connection-level failures where no response arrived.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("klaviyo: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned when HTTP 429 persists after the allowed retry.
type RateLimitError struct {
	Method   string
	Path     string
	Reset    time.Duration
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("klaviyo: %s %s: rate limited after %d attempt(s), reset in %s", e.Method, e.Path, e.Attempts, e.Reset)
}

// UpstreamError is any other non-2xx response from a data endpoint.
type UpstreamError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("klaviyo: %s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsFatal reports whether err will affect every following record, i.e. an
// authentication or credential persistence failure.
func IsFatal(err error) bool {
	var authErr *AuthError
	var persistErr *PersistenceError
	return errors.As(err, &authErr) || errors.As(err, &persistErr)
}
