package remote

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the service does not accept the access
// token or the credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError is returned when the service rejects a request because of
// its content, e.g. an unknown member or article.
type ValidationError struct {
	// Status is the HTTP status code of the response.
	Status int

	// Message is the error text reported by the service, if any.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rejected by service (status %d)", e.Status)
	}
	return fmt.Sprintf("rejected by service (status %d): %s", e.Status, e.Message)
}

// NetworkError wraps transport failures and server side errors.
type NetworkError struct {
	// Op names the failed request, e.g. "list users".
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is or wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransient reports whether err is a network error that may succeed when
// retried unchanged.
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
