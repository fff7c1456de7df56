// Package apierr defines the closed set of failure kinds surfaced by the gateway.
package apierr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure for callers and the transport boundary.
type Kind int

// Kind constants; the zero value is Internal so unclassified errors never leak detail.
const (
	Internal Kind = iota
	InvalidArgument
	QuotaExceeded
	RateLimited
	UpstreamUnavailable
	EmptyResponse
	DuplicateKey
	NotFound
	Unauthorized
	Forbidden
)

var kindNames = map[Kind]string{
	Internal:            "internal",
	InvalidArgument:     "invalid_argument",
	QuotaExceeded:       "quota_exceeded",
	RateLimited:         "rate_limited",
	UpstreamUnavailable: "upstream_unavailable",
	EmptyResponse:       "empty_response",
	DuplicateKey:        "duplicate_key",
	NotFound:            "not_found",
	Unauthorized:        "unauthorized",
	Forbidden:           "forbidden",
}

// String returns the stable machine-readable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "internal"
}

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // Set for RateLimited.
	Err        error         // Underlying cause, never shown to callers.
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid reports malformed caller input.
func Invalid(format string, args ...any) *Error {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

// Quota reports an entitlement denial with its reason.
func Quota(reason string) *Error {
	return New(QuotaExceeded, reason)
}

// Limited reports an admission rejection with the time until the window resets.
func Limited(retryAfter time.Duration) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{Kind: RateLimited, Message: "too many requests, please try again later", RetryAfter: retryAfter}
}

// Missing reports a referenced entity that does not exist.
func Missing(what string) *Error {
	return New(NotFound, what+" not found")
}

// KindOf returns the kind of err, or Internal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// As extracts the classified error, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
