package channels

import (
	"errors"
	"fmt"
)

// ErrNotSupported is returned for operations outside a provider's
// capability set.
var ErrNotSupported = errors.New("operation not supported by this provider")

// ErrNotConfigured is returned when an adapter is missing credentials or
// base URLs. Callers log and skip; they never surface this to an end caller.
var ErrNotConfigured = errors.New("provider is not configured")

// transientError marks an error as retryable (rate limit, server error,
// timeout). Wrapping keeps the cause inspectable with errors.Is/As.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Transientf formats a retryable error.
func Transientf(format string, args ...interface{}) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// classifyStatus converts an HTTP response status into an error, marking
// 429 and 5xx as transient. 2xx returns nil.
func classifyStatus(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 429 || status >= 500:
		return Transientf("provider returned status %d: %s", status, body)
	default:
		return fmt.Errorf("provider returned status %d: %s", status, body)
	}
}
