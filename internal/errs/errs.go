// Package errs defines the error kinds surfaced by the session layer.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoConnection covers unreachable hosts, timeouts and TLS failures.
	ErrNoConnection = errors.New("no connection with server")
	// ErrMalformedResponse is returned when a payload cannot be decoded into
	// the expected shape. It is handled like ErrNoConnection.
	ErrMalformedResponse = errors.New("malformed server response")
	// ErrUnauthorized is returned when the server rejects the account's credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrServiceUnavailable is returned when the server reports maintenance mode
	// or is not installed.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrNoAccount is for callers that want to turn an empty account
	// resolution into a user-facing failure. The core never returns it for a
	// stale preference.
	ErrNoAccount = errors.New("no account available")
)

// HTTPError describes an unexpected HTTP status from the server.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps well-known statuses onto the sentinel kinds.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusServiceUnavailable:
		return ErrServiceUnavailable
	case e.StatusCode >= 500:
		return ErrNoConnection
	}
	return nil
}

// IsConnectivity reports whether err belongs to the connectivity class,
// which includes malformed responses.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrNoConnection) || errors.Is(err, ErrMalformedResponse)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Malformed wraps a decode failure as ErrMalformedResponse.
func Malformed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", what, ErrMalformedResponse)
	}
	return fmt.Errorf("%s: %w: %v", what, ErrMalformedResponse, err)
}

// NoConnection wraps a transport failure as ErrNoConnection.
func NoConnection(what string, err error) error {
	return fmt.Errorf("%s: %w: %v", what, ErrNoConnection, err)
}
