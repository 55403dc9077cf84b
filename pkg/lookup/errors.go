package lookup

import (
	"errors"
	"fmt"
)

// ErrCancelled indicates the lookup was aborted by a cancellation request.
var ErrCancelled = errors.New("lookup cancelled")

// TransientDriverError indicates the lookup session is unusable but
// recoverable by resetting it. These failures are worth retrying.
type TransientDriverError struct {
	// Reason describes what broke, e.g. "session disconnected".
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *TransientDriverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient driver error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transient driver error: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *TransientDriverError) Unwrap() error {
	return e.Err
}

// NewTransientDriverError creates a transient driver error with an
// optional cause.
func NewTransientDriverError(reason string, err error) *TransientDriverError {
	return &TransientDriverError{Reason: reason, Err: err}
}

// IsCancelled checks if an error is a cancellation signal.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTransient checks if an error is a transient driver error.
func IsTransient(err error) bool {
	var transient *TransientDriverError
	return errors.As(err, &transient)
}
