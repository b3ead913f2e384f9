// Package apperr defines the error taxonomy shared across the RAG service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of HTTP mapping and counters.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindRateLimited         Kind = "rate_limited"
	KindOverloaded          Kind = "overloaded"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindExtraction          Kind = "extraction_error"
	KindGraphInvariant      Kind = "graph_invariant"
	KindInternal            Kind = "internal_error"
)

// Error is a typed, wrapped error carrying a Kind for classification.
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

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return KindInternal
}
