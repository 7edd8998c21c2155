package domain

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/jira"
)

// ICCompletions writes each engineer's resolved-issue count per issue
// family into its own sheet (Stories, Epics, Bugs, Tasks, Support Bugs).
// Assignee emails resolve through the alias table; engineers without a
// completion in a family keep an explicit zero. Rows absent from a sheet
// are skipped, not fabricated.
func (r *Runner) ICCompletions(ctx context.Context, months []period.Period) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if r.sources.Issues == nil {
		return errors.Mark(errors.New("jira source is not configured"), entities.ErrConfiguration)
	}
	if len(r.cfg.Report.ICCompletions) == 0 {
		return errors.Mark(errors.New("report.ic_completions is empty"), entities.ErrConfiguration)
	}
	aliases, err := r.aliasMap(ctx)
	if err != nil {
		return err
	}

	up := r.upserter()
	for _, p := range months {
		for _, sheet := range r.cfg.Report.ICCompletions {
			jql := jira.BuildJQL(r.sources.Issues.Project(), sheet.IssueTypes, sheet.Labels, p)
			assignees, err := r.sources.Issues.SearchAssignees(ctx, jql)
			if err != nil {
				return err
			}

			counts := make(map[string]int, len(aliases))
			for _, name := range aliases.Names() {
				counts[name] = 0
			}
			for _, email := range assignees {
				if name := aliases.Resolve(email); name != "" {
					counts[name]++
				}
			}
			r.log.Infow("ic completions counted",
				"sheet", sheet.SheetName, "period", p.String(), "issues", len(assignees))

			for name, count := range counts {
				if err := up.Upsert(ctx, sheet.SheetName, name, p.Label(), strconv.Itoa(count),
					ledger.SkipMissing, ledger.InsertAfterAnchor); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
