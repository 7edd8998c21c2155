package domain

import (
	"context"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// BuildMetrics writes per-project CI result tallies into the
// "Build Metrics" sheet, one period column per month. Projects are the
// row universe of the data itself, so unknown projects are appended.
func (r *Runner) BuildMetrics(ctx context.Context, months []period.Period) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if r.sources.Builds == nil {
		return errors.Mark(errors.New("semaphore source is not configured"), entities.ErrConfiguration)
	}

	up := r.upserter()
	for _, p := range months {
		counts, err := r.sources.Builds.BuildCounts(ctx, p)
		if err != nil {
			return err
		}

		for _, count := range counts {
			if err := up.Upsert(ctx, sheetBuildMetrics, count.Project, p.Label(), formatBuildCount(count),
				ledger.AppendMissing, ledger.AppendEnd); err != nil {
				return err
			}
		}
		r.log.Infow("build metrics written", "period", p.String(), "projects", len(counts))
	}
	return nil
}

// formatBuildCount renders a tally as "12 passed / 3 failed", with any
// other job results appended by name.
func formatBuildCount(c entities.BuildCount) string {
	out := fmt.Sprintf("%d passed / %d failed", c.Passed, c.Failed)
	for _, name := range sortedKeys(c.Other) {
		out += fmt.Sprintf(" / %d %s", c.Other[name], name)
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
