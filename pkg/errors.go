package pkg

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing the assessment boundary. The HTTP
// layer maps kinds to status codes; callers never see untyped errors.
type ErrorKind string

const (
	// ErrInvalidRequest is a caller error (empty symptoms, implausible age).
	ErrInvalidRequest ErrorKind = "invalid_request"
	// ErrUpstreamUnavailable is a transport/auth/rate-limit failure from an
	// external capability.
	ErrUpstreamUnavailable ErrorKind = "upstream_unavailable"
	// ErrModelOutputMalformed means the completion could not be parsed as the
	// expected JSON shape, even after one repair pass.
	ErrModelOutputMalformed ErrorKind = "model_output_malformed"
	// ErrPersistenceFailure means the finished assessment could not be saved;
	// the assessment is considered not to have happened.
	ErrPersistenceFailure ErrorKind = "persistence_failure"
)

// Error is the typed error surfaced to callers of the assessment core.
type Error struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient failure worth one more
// attempt. Only upstream failures are ever retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == ErrUpstreamUnavailable && e.Retryable
	}
	return false
}
