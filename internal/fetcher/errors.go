package fetcher

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTooManyRedirects is returned when a fetch exceeds the redirect bound.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrHTTPStatus is wrapped by errors for non-2xx responses.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// Kind tells whether a failure was worth retrying.
type Kind int

const (
	// Transient failures are timeouts, connection resets, 5xx and 429.
	Transient Kind = iota + 1

	// Permanent failures are everything else: 4xx, redirect loops, bad responses.
	Permanent
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// FetchError is returned once a fetch has failed for good, after any retries.
type FetchError struct {
	// Kind classifies the last failure.
	Kind Kind

	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of the last response, or 0 if there was none.
	StatusCode int

	// Attempts is the number of requests made.
	Attempts int

	// Err is the underlying failure.
	Err error

	// retryAfter is the server's Retry-After hint, if any.
	retryAfter time.Duration
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed (%s, %d attempt(s)): %v", e.URL, e.Kind, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the last failure was transient.
func (e *FetchError) Transient() bool {
	return e.Kind == Transient
}
