package report

import (
	"context"

	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// Runner abstracts the report jobs for the delivery layers. Each job
// recomputes and upserts one ledger surface for the given periods; all of
// them are idempotent under replay.
type Runner interface {
	CycleTime(ctx context.Context, months []period.Period) error
	ICCompletions(ctx context.Context, months []period.Period) error
	GitHubActivity(ctx context.Context, months []period.Period) error
	BuildMetrics(ctx context.Context, months []period.Period) error
	Meetings(ctx context.Context, months []period.Period) error
	IssueMetrics(ctx context.Context, months []period.Period) error
}
