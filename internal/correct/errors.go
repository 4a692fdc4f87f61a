package correct

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/otoscribe/otoscribe/internal/dictionary"
)

// Kind classifies pipeline failures. Every error the orchestrator or the
// learner returns is an [*Error] carrying one of these kinds; collaborator
// failures are never passed through raw.
type Kind int

const (
	// KindValidation marks malformed or missing input. Never retried.
	KindValidation Kind = iota

	// KindConflict marks a duplicate rule submission on the strict
	// (manual) path. The conflicting entry is attached for display.
	KindConflict

	// KindRateLimit marks an LLM call that was still throttled after the
	// bounded internal retries.
	KindRateLimit

	// KindAPI marks a non-rate-limit LLM failure. Not retried.
	KindAPI

	// KindStorage marks a dictionary store read or write failure.
	KindStorage

	// KindUnknown is the catch-all for unexpected failures.
	KindUnknown
)

// String returns the wire-level error code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimit:
		return "RATE_LIMIT"
	case KindAPI:
		return "API_ERROR"
	case KindStorage:
		return "STORAGE_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// HTTPStatus maps the kind to its HTTP status code equivalent.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error type produced by the correction pipeline.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Message is the caller-facing description. It never contains
	// provider payloads or stack traces.
	Message string

	// Err is the wrapped underlying cause, kept for diagnostics.
	Err error

	// Conflict is the existing rule that collided with a strict-mode
	// submission. Only set when Kind is [KindConflict].
	Conflict *dictionary.Rule
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// newError constructs an [*Error] without a cause.
func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wrapError constructs an [*Error] around an underlying cause.
func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the [Kind] from err. Errors that are not [*Error]
// classify as [KindUnknown].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
