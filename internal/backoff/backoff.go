// Package backoff retries fallible operations with exponential backoff.
package backoff

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

const (
	// DefaultMaxAttempts bounds the retry budget unless a call site asks
	// for a tighter one.
	DefaultMaxAttempts = 15
	// DefaultBase is the deterministic component of the first delay.
	DefaultBase = time.Second
)

// Matcher reports whether a failure belongs to the retryable set. Failures
// outside the set propagate on the first attempt so programming errors are
// never masked.
type Matcher func(error) bool

// TransientOnly matches the failures marked retryable by the HTTP layer.
func TransientOnly(err error) bool {
	return errors.Is(err, entities.ErrTransient)
}

// Executor retries operations with delay base*2^(attempt-1) plus a uniform
// [0,1s) jitter. The loop is explicit and bounded; there is no recursion.
type Executor struct {
	Base        time.Duration
	MaxAttempts int

	log    *zap.SugaredLogger
	sleep  func(time.Duration)
	jitter func() time.Duration
}

// New builds an Executor with the default budget.
func New(log *zap.SugaredLogger) *Executor {
	return &Executor{
		Base:        DefaultBase,
		MaxAttempts: DefaultMaxAttempts,
		log:         log.Named("backoff"),
		sleep:       time.Sleep,
		jitter:      func() time.Duration { return time.Duration(rand.Int63n(int64(time.Second))) },
	}
}

// WithMaxAttempts returns a copy with a tighter (or looser) budget.
// Interactive call sites use this to fail fast.
func (e *Executor) WithMaxAttempts(n int) *Executor {
	c := *e
	c.MaxAttempts = n
	return &c
}

// WithSleeper returns a copy that waits through sleep instead of
// time.Sleep. Tests use this to run retry loops instantly.
func (e *Executor) WithSleeper(sleep func(time.Duration)) *Executor {
	c := *e
	c.sleep = sleep
	return &c
}

// Execute invokes op until it succeeds, fails with a non-matchable error,
// or the budget is spent. The final failure is wrapped in
// *entities.RetryExhaustedError carrying the original cause.
func (e *Executor) Execute(op func() error, retryable Matcher) error {
	var err error
	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == e.MaxAttempts {
			break
		}
		delay := e.Base*(1<<(attempt-1)) + e.jitter()
		e.log.Warnw("retrying after failure",
			"attempt", attempt,
			"max_attempts", e.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		e.sleep(delay)
	}
	return &entities.RetryExhaustedError{Attempts: e.MaxAttempts, Cause: err}
}
