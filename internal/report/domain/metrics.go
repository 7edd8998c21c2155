package domain

import (
	"context"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// IssueMetrics runs each configured named JQL count query and writes the
// totals into the "Metrics" sheet. The queries carry their own relative
// date windows (startOfMonth(-1) and friends), so the period only labels
// the column being written.
func (r *Runner) IssueMetrics(ctx context.Context, months []period.Period) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if r.sources.Issues == nil {
		return errors.Mark(errors.New("jira source is not configured"), entities.ErrConfiguration)
	}
	if len(r.cfg.Report.MetricsQueries) == 0 {
		return errors.Mark(errors.New("report.metrics_queries is empty"), entities.ErrConfiguration)
	}

	names := make([]string, 0, len(r.cfg.Report.MetricsQueries))
	for name := range r.cfg.Report.MetricsQueries {
		names = append(names, name)
	}
	sort.Strings(names)

	up := r.upserter()
	for _, p := range months {
		for _, name := range names {
			count, err := r.sources.Issues.CountIssues(ctx, r.cfg.Report.MetricsQueries[name])
			if err != nil {
				return err
			}
			r.log.Infow("metric counted", "metric", name, "period", p.String(), "count", count)

			if err := up.Upsert(ctx, sheetMetrics, name, p.Label(), strconv.Itoa(count),
				ledger.SkipMissing, ledger.InsertAfterAnchor); err != nil {
				return err
			}
		}
	}
	return nil
}
