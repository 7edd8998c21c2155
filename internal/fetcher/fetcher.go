package fetcher

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// defaultRateLimitPause is used when the server sends 429 without a
// Retry-After hint.
const defaultRateLimitPause = time.Second

// PageFunc produces the page at the given cursor. Implementations classify
// their failures: transient ones are retried by the backoff executor,
// rate-limit signals pause the fetch, anything else surfaces immediately.
type PageFunc func(ctx context.Context, cur Cursor) (*Page, error)

// Fetcher drains a paginated endpoint page by page, in order, with no
// reordering or deduplication. Callers must not assume global uniqueness of
// records unless the API guarantees it.
type Fetcher struct {
	log   *zap.SugaredLogger
	exec  *backoff.Executor
	sleep func(time.Duration)
}

// New builds a Fetcher on top of the given retry executor.
func New(log *zap.SugaredLogger, exec *backoff.Executor) *Fetcher {
	return &Fetcher{
		log:   log.Named("fetcher"),
		exec:  exec,
		sleep: time.Sleep,
	}
}

type fetchOptions struct {
	partialOnExhausted bool
}

// Option tweaks a single FetchAll call.
type Option func(*fetchOptions)

// ReturnPartialOnExhausted makes FetchAll return the records accumulated so
// far alongside the RetryExhausted error, instead of discarding prior valid
// pages when one page gives up.
func ReturnPartialOnExhausted() Option {
	return func(o *fetchOptions) { o.partialOnExhausted = true }
}

// FetchAll requests pages until the pager's termination rule fires,
// concatenating records first-page-first. A rate-limit signal suspends the
// loop for the server-suggested duration and re-issues the same page
// request; it never consumes a retry attempt.
func (f *Fetcher) FetchAll(ctx context.Context, fn PageFunc, pager Pager, opts ...Option) ([]Record, error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	var records []Record
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := pager.Cursor()
		var page *Page
		err := f.exec.Execute(func() error {
			p, err := fn(ctx, cur)
			if err != nil {
				return err
			}
			page = p
			return nil
		}, backoff.TransientOnly)

		if err != nil {
			var rl *entities.RateLimitError
			if errors.As(err, &rl) {
				pause := rl.RetryAfter
				if pause <= 0 {
					pause = defaultRateLimitPause
				}
				f.log.Infow("rate limited, pausing", "pause", pause, "pages_fetched", pages)
				f.sleep(pause)
				continue // same cursor, not a retry
			}
			if o.partialOnExhausted && errors.Is(err, entities.ErrRetryExhausted) {
				f.log.Warnw("returning partial result set",
					"pages_fetched", pages, "records", len(records), "error", err)
				return records, err
			}
			return nil, err
		}

		records = append(records, page.Records...)
		pages++
		if pager.Done(page) {
			f.log.Debugw("fetch complete", "pages", pages, "records", len(records))
			return records, nil
		}
		pager.Advance(page)
	}
}
