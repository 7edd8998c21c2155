// Package entities contains core business entities and errors.
package entities

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration signals an invalid or incomplete configuration,
	// e.g. a transition referencing a stage absent from the stage order.
	// Fatal: never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks a failure worth retrying: connect/timeout/5xx.
	ErrTransient = errors.New("transient failure")
	// ErrMalformedResponse signals a response body that does not parse as
	// the expected shape. Retrying will not fix a schema mismatch.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRetryExhausted is matched by RetryExhaustedError.
	ErrRetryExhausted = errors.New("retry budget exhausted")
	// ErrRateLimited is matched by RateLimitError.
	ErrRateLimited = errors.New("rate limited")
)

// RetryExhaustedError wraps the last underlying failure after the retry
// budget is spent. It carries the original cause for diagnostics.
type RetryExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrRetryExhausted) match regardless of cause.
func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

// RateLimitError is the distinguished 429-equivalent signal. It is never
// counted against the retry budget; callers pause for RetryAfter and
// re-issue the same request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Transient wraps err so the backoff executor will retry it.
func Transient(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrTransient)
}

// Transientf creates a new retryable failure.
func Transientf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrTransient)
}

// Malformed wraps a parse failure so it is surfaced without retrying.
func Malformed(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrMalformedResponse)
}
