package timeline

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

const dayDuration = 24 * time.Hour

// CycleTime computes the fractional days an issue spent between the start
// and end stage boundaries.
//
// The start boundary is the LATEST transition to a stage at or before the
// start stage: reopened issues pass through pre-start stages repeatedly and
// the last visit is the true beginning of the interval. The end boundary is
// the EARLIEST transition to a stage at or past the end stage: the first
// arrival closes the interval even if the issue later regresses.
//
// A negative result indicates an inverted or malformed event log and is
// surfaced as-is, never clamped, so data-quality problems stay visible.
func CycleTime(tl entities.IssueTimeline, order *StageOrder, start, end string) (float64, error) {
	startIdx, err := order.Index(start)
	if err != nil {
		return 0, err
	}
	endIdx, err := order.Index(end)
	if err != nil {
		return 0, err
	}
	if tl.ResolvedAt == nil {
		return 0, errors.Mark(errors.Newf("issue %s has no resolution timestamp", tl.Key), entities.ErrConfiguration)
	}

	startTime := tl.CreatedAt
	endTime := *tl.ResolvedAt
	for _, tr := range tl.Transitions {
		idx, err := order.Index(tr.Stage)
		if err != nil {
			return 0, err
		}
		if idx <= startIdx && tr.At.After(startTime) {
			startTime = tr.At
		}
		if idx >= endIdx && tr.At.Before(endTime) {
			endTime = tr.At
		}
	}

	return float64(endTime.Sub(startTime)) / float64(dayDuration), nil
}

// MeanCycleTime averages CycleTime over resolved issues. An empty set (or
// one with only unresolved issues) yields 0: "no data for this stage pair
// this period" is a legitimate state, not an error.
func MeanCycleTime(issues []entities.IssueTimeline, order *StageOrder, start, end string) (float64, error) {
	var sum float64
	n := 0
	for _, tl := range issues {
		if !tl.Resolved() {
			continue
		}
		d, err := CycleTime(tl, order, start, end)
		if err != nil {
			return 0, err
		}
		sum += d
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}
