package domain

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// Meetings writes each engineer's meeting count, hours in meetings and
// ad-hoc meeting count into their three sheets.
func (r *Runner) Meetings(ctx context.Context, months []period.Period) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if r.sources.Meetings == nil {
		return errors.Mark(errors.New("zoom source is not configured"), entities.ErrConfiguration)
	}
	aliases, err := r.aliasMap(ctx)
	if err != nil {
		return err
	}

	up := r.upserter()
	for _, p := range months {
		data, err := r.sources.Meetings.MeetingData(ctx, aliases, p)
		if err != nil {
			return err
		}

		for name, metrics := range data {
			cells := []struct {
				sheet string
				value string
			}{
				{sheetMeetings, strconv.Itoa(metrics.MeetingCount)},
				{sheetTimeInMeetings, strconv.FormatFloat(metrics.HoursInMeetings, 'f', 2, 64)},
				{sheetAdHocMeetings, strconv.Itoa(metrics.AdHocCount)},
			}
			for _, cell := range cells {
				if err := up.Upsert(ctx, cell.sheet, name, p.Label(), cell.value,
					ledger.SkipMissing, ledger.InsertAfterAnchor); err != nil {
					return err
				}
			}
		}
		r.log.Infow("meeting metrics written", "period", p.String(), "engineers", len(data))
	}
	return nil
}
