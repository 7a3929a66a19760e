package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrKind distinguishes the provider error taxonomy. The registry keys its
// failover decisions off the kind, never the concrete message.
type ErrKind string

const (
	KindNotFound       ErrKind = "not_found"
	KindRateLimited    ErrKind = "rate_limited"
	KindUnavailable    ErrKind = "unavailable"
	KindAuthentication ErrKind = "authentication"
)

// Error is the uniform provider failure record.
type Error struct {
	Provider   string
	Kind       ErrKind
	Message    string
	RetryAfter time.Duration // set only for KindRateLimited
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NotFound reports that a provider does not have the requested resource.
func NotFound(provider, id string, cat Category) *Error {
	return &Error{Provider: provider, Kind: KindNotFound, Message: fmt.Sprintf("resource %s/%s not found", cat, id)}
}

// RateLimited reports quota exhaustion with a suggested retry delay.
func RateLimited(provider string, retryAfter time.Duration) *Error {
	return &Error{
		Provider:   provider,
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("rate limited, retry after %s", retryAfter),
		RetryAfter: retryAfter,
	}
}

// Unavailable reports a transport-level failure.
func Unavailable(provider, message string, cause error) *Error {
	return &Error{Provider: provider, Kind: KindUnavailable, Message: message, Cause: cause}
}

// AuthFailed reports rejected credentials. Terminal; never retried.
func AuthFailed(provider, message string) *Error {
	return &Error{Provider: provider, Kind: KindAuthentication, Message: message}
}

// KindOf extracts the taxonomy kind from any error, normalizing non-provider
// errors to KindUnavailable.
func KindOf(err error) ErrKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// IsNotFound reports whether err is a per-provider terminal miss.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
