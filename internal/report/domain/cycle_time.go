package domain

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/mapper"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/jira"
	"github.com/ryanspoone/sdlc-metrics/internal/timeline"
)

// CycleTime computes the mean stage-to-stage duration for each configured
// issue selection and writes one cell per row per period into the
// "Cycle Time" sheet. The newest period column is inserted right after the
// label column; rows absent from the sheet are skipped, not fabricated.
func (r *Runner) CycleTime(ctx context.Context, months []period.Period) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if r.sources.Issues == nil {
		return errors.Mark(errors.New("jira source is not configured"), entities.ErrConfiguration)
	}
	order, err := timeline.NewStageOrder(r.cfg.Report.StageOrder)
	if err != nil {
		return err
	}

	up := r.upserter()
	for _, p := range months {
		for _, row := range r.cfg.Report.CycleTime {
			jql := jira.BuildJQL(r.sources.Issues.Project(), row.IssueTypes, row.Labels, p)
			issues, err := r.sources.Issues.SearchIssues(ctx, jql)
			if err != nil {
				return err
			}
			timelines, err := mapper.IssueTimelines(issues)
			if err != nil {
				return err
			}

			mean, err := timeline.MeanCycleTime(timelines, order, row.StartStage, row.EndStage)
			if err != nil {
				return err
			}
			r.log.Infow("cycle time computed",
				"row", row.RowName, "period", p.String(), "issues", len(timelines), "mean_days", mean)

			value := strconv.FormatFloat(mean, 'f', 2, 64)
			if err := up.Upsert(ctx, sheetCycleTime, row.RowName, p.Label(), value,
				ledger.SkipMissing, ledger.InsertAfterAnchor); err != nil {
				return err
			}
		}
	}
	return nil
}
