// Package domain implements the report jobs: each one pulls a period's
// activity from its source and upserts the numbers into the ledger.
package domain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/cache"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/mapper"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/github"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/jira"
)

// Report sheet names. Row labels live in column 0; period columns carry
// "Month Year" headers.
const (
	sheetCycleTime      = "Cycle Time"
	sheetMetrics        = "Metrics"
	sheetMerges         = "Merges"
	sheetReviews        = "Reviews"
	sheetCodeChanges    = "Code Changes"
	sheetMeetings       = "Meetings"
	sheetTimeInMeetings = "Time in Meetings"
	sheetAdHocMeetings  = "Ad-hoc Meetings"
	sheetBuildMetrics   = "Build Metrics"
	sheetAliases        = "Aliases"
)

// IssueSource is the Jira surface the jobs depend on.
type IssueSource interface {
	Project() string
	SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error)
	SearchAssignees(ctx context.Context, jql string) ([]string, error)
	CountIssues(ctx context.Context, jql string) (int, error)
}

// ActivitySource is the GitHub surface.
type ActivitySource interface {
	Activity(ctx context.Context, aliases entities.AliasMap, p period.Period) (*github.Activity, error)
}

// BuildSource is the CI surface.
type BuildSource interface {
	BuildCounts(ctx context.Context, p period.Period) ([]entities.BuildCount, error)
}

// MeetingSource is the Zoom surface.
type MeetingSource interface {
	MeetingData(ctx context.Context, aliases entities.AliasMap, p period.Period) (map[string]entities.MeetingMetrics, error)
}

// Sources bundles the per-tool clients a Runner reads from. A job whose
// source is nil cannot run; the others are unaffected.
type Sources struct {
	Issues   IssueSource
	Activity ActivitySource
	Builds   BuildSource
	Meetings MeetingSource
}

// Runner implements the report jobs.
type Runner struct {
	ctx     context.Context
	log     *zap.SugaredLogger
	cfg     *config.Config
	store   ledger.Store
	exec    *backoff.Executor
	sources Sources
	timeout time.Duration

	aliases *cache.Value[entities.AliasMap]
}

// New constructs the Runner with its dependencies.
func New(
	log *zap.SugaredLogger,
	ctx context.Context,
	cfg *config.Config,
	store ledger.Store,
	exec *backoff.Executor,
	sources Sources,
	timeout time.Duration,
) *Runner {
	ttl := cfg.Report.AliasTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Runner{
		ctx:     ctx,
		log:     log.Named("report"),
		cfg:     cfg,
		store:   store,
		exec:    exec,
		sources: sources,
		timeout: timeout,
		aliases: cache.New[entities.AliasMap](ttl),
	}
}

// upserter builds a fresh per-batch Upserter so each job run re-reads the
// sheet axes once and works against a consistent view.
func (r *Runner) upserter() *ledger.Upserter {
	return ledger.NewUpserter(r.log, r.store, r.exec)
}

// aliasMap reads the alias table from the ledger, cached across jobs
// within its freshness window.
func (r *Runner) aliasMap(ctx context.Context) (entities.AliasMap, error) {
	return r.aliases.GetOrFill(func() (entities.AliasMap, error) {
		accounts, err := r.store.Column(ctx, sheetAliases, 0)
		if err != nil {
			return nil, err
		}
		names, err := r.store.Column(ctx, sheetAliases, 1)
		if err != nil {
			return nil, err
		}
		m, err := mapper.AliasMap(accounts, names)
		if err != nil {
			return nil, err
		}
		r.log.Infow("alias table loaded", "engineers", len(m.Names()))
		return m, nil
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
