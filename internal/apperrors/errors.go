// Package apperrors defines the tagged error kinds shared across the
// shortener core. Every layer - normalizer, generator, repository,
// service - returns one of these instead of ad-hoc sentinel values, so
// the HTTP boundary has a single place to map a failure to a status
// code and a log level.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind tags the category of failure. The HTTP adapter switches on Kind,
// never on the wrapped cause.
type Kind int

const (
	// KindInvalidURL covers validation and normalization rejections.
	KindInvalidURL Kind = iota
	// KindShortCodeNotFound covers a resolve miss.
	KindShortCodeNotFound
	// KindDuplicateNormalizedURL signals a unique-constraint hit on
	// normalized_url; the service recovers from this locally.
	KindDuplicateNormalizedURL
	// KindDuplicateShortCode signals a primary-key collision; the
	// service retries a bounded number of times before surfacing
	// KindInternal.
	KindDuplicateShortCode
	// KindClockMovedBackwards signals the generator observed the wall
	// clock step backwards.
	KindClockMovedBackwards
	// KindStorageUnavailable covers connection failures, timeouts, and
	// anything else that means the storage layer could not be reached.
	KindStorageUnavailable
	// KindInternal covers everything that should never happen under
	// correct collaborator behavior.
	KindInternal
)

// String renders the kind as the short category label used in the
// HTTP error envelope's "error" field.
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindShortCodeNotFound:
		return "not_found"
	case KindDuplicateNormalizedURL:
		return "duplicate_normalized_url"
	case KindDuplicateShortCode:
		return "duplicate_short_code"
	case KindClockMovedBackwards:
		return "clock_moved_backwards"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "internal_error"
	}
}

// Error is the tagged-variant error type used across the core. It
// never carries a stack trace; Message is safe to surface verbatim to
// a caller.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, target) match when target is an *Error of
// the same kind (for example apperrors.New(KindInvalidURL, "")),
// ignoring message and cause - callers should prefer Is(err, kind)
// below instead.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind, anywhere in
// its wrap chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal when
// err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
