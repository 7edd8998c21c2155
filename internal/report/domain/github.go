package domain

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// GitHubActivity writes each engineer's merge, review and code-change
// counts into the "Merges", "Reviews" and "Code Changes" sheets. Rows are
// the engineers already present on each sheet; accounts resolve through
// the cached alias table.
func (r *Runner) GitHubActivity(ctx context.Context, months []period.Period) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if r.sources.Activity == nil {
		return errors.Mark(errors.New("github source is not configured"), entities.ErrConfiguration)
	}
	aliases, err := r.aliasMap(ctx)
	if err != nil {
		return err
	}

	up := r.upserter()
	for _, p := range months {
		act, err := r.sources.Activity.Activity(ctx, aliases, p)
		if err != nil {
			return err
		}

		for sheet, counts := range map[string]map[string]int{
			sheetMerges:      act.Merges,
			sheetReviews:     act.Reviews,
			sheetCodeChanges: act.Changes,
		} {
			for name, count := range counts {
				if err := up.Upsert(ctx, sheet, name, p.Label(), strconv.Itoa(count),
					ledger.SkipMissing, ledger.InsertAfterAnchor); err != nil {
					return err
				}
			}
		}
		r.log.Infow("github activity written", "period", p.String(), "engineers", len(act.Merges))
	}
	return nil
}
