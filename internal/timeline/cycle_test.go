package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

func mustOrder(t *testing.T, names ...string) *StageOrder {
	t.Helper()
	o, err := NewStageOrder(names)
	require.NoError(t, err)
	return o
}

func day(t *testing.T, d string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", d)
	require.NoError(t, err)
	return ts
}

func resolved(ts time.Time) *time.Time { return &ts }

func TestNewStageOrderValidation(t *testing.T) {
	_, err := NewStageOrder(nil)
	require.ErrorIs(t, err, entities.ErrConfiguration)

	_, err = NewStageOrder([]string{"Open", "", "Closed"})
	require.ErrorIs(t, err, entities.ErrConfiguration)

	_, err = NewStageOrder([]string{"Open", "Open"})
	require.ErrorIs(t, err, entities.ErrConfiguration)

	o := mustOrder(t, "Open", "In Progress", "Merged", "Closed")
	i, err := o.Index("Merged")
	require.NoError(t, err)
	require.Equal(t, 2, i)
	require.True(t, o.Contains("Open"))
	require.False(t, o.Contains("Deployed"))
}

func TestCycleTimeBoundaries(t *testing.T) {
	order := mustOrder(t, "Open", "In Progress", "Merged", "Closed")
	tl := entities.IssueTimeline{
		Key:        "ENG-1",
		CreatedAt:  day(t, "2024-01-01"),
		ResolvedAt: resolved(day(t, "2024-01-25")),
		Transitions: []entities.Transition{
			{At: day(t, "2024-01-05"), Stage: "In Progress"},
			{At: day(t, "2024-01-10"), Stage: "Open"}, // reopened
			{At: day(t, "2024-01-20"), Stage: "Merged"},
		},
	}

	// latest at-or-before Open is 01-10, earliest at-or-past Merged is 01-20
	got, err := CycleTime(tl, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, 10.0, got, 1e-9)
}

func TestCycleTimeDefaultsToCreatedAndResolved(t *testing.T) {
	order := mustOrder(t, "Open", "In Progress", "Merged", "Closed")
	tl := entities.IssueTimeline{
		Key:        "ENG-2",
		CreatedAt:  day(t, "2024-02-01"),
		ResolvedAt: resolved(day(t, "2024-02-08")),
	}

	got, err := CycleTime(tl, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, 7.0, got, 1e-9)
}

func TestCycleTimeEndRegressionKeepsEarliest(t *testing.T) {
	order := mustOrder(t, "Open", "In Progress", "Merged", "Closed")
	tl := entities.IssueTimeline{
		Key:        "ENG-3",
		CreatedAt:  day(t, "2024-03-01"),
		ResolvedAt: resolved(day(t, "2024-03-30")),
		Transitions: []entities.Transition{
			{At: day(t, "2024-03-10"), Stage: "Merged"},
			{At: day(t, "2024-03-12"), Stage: "In Progress"}, // regressed
			{At: day(t, "2024-03-20"), Stage: "Merged"},      // re-reached
		},
	}

	got, err := CycleTime(tl, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, 9.0, got, 1e-9, "first arrival at Merged closes the interval")
}

func TestCycleTimeNegativeSurfaced(t *testing.T) {
	order := mustOrder(t, "Open", "In Progress", "Merged", "Closed")
	tl := entities.IssueTimeline{
		Key:        "ENG-4",
		CreatedAt:  day(t, "2024-04-01"),
		ResolvedAt: resolved(day(t, "2024-04-20")),
		Transitions: []entities.Transition{
			{At: day(t, "2024-04-05"), Stage: "Merged"},
			{At: day(t, "2024-04-15"), Stage: "Open"}, // inverted log
		},
	}

	got, err := CycleTime(tl, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, -10.0, got, 1e-9, "inverted logs surface as negative, never clamped")
}

func TestCycleTimeFractionalDays(t *testing.T) {
	order := mustOrder(t, "Open", "Merged")
	created := day(t, "2024-05-01")
	res := created.Add(36 * time.Hour)
	tl := entities.IssueTimeline{Key: "ENG-5", CreatedAt: created, ResolvedAt: resolved(res)}

	got, err := CycleTime(tl, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, 1.5, got, 1e-9)
}

func TestCycleTimeUnknownStageIsFatal(t *testing.T) {
	order := mustOrder(t, "Open", "Merged")
	tl := entities.IssueTimeline{
		Key:        "ENG-6",
		CreatedAt:  day(t, "2024-06-01"),
		ResolvedAt: resolved(day(t, "2024-06-10")),
		Transitions: []entities.Transition{
			{At: day(t, "2024-06-05"), Stage: "Waiting for Godot"},
		},
	}

	_, err := CycleTime(tl, order, "Open", "Merged")
	require.ErrorIs(t, err, entities.ErrConfiguration)

	_, err = CycleTime(tl, order, "Nope", "Merged")
	require.ErrorIs(t, err, entities.ErrConfiguration)
}

func TestMeanCycleTime(t *testing.T) {
	order := mustOrder(t, "Open", "Merged")
	mk := func(key string, days int) entities.IssueTimeline {
		created := day(t, "2024-07-01")
		res := created.AddDate(0, 0, days)
		return entities.IssueTimeline{Key: key, CreatedAt: created, ResolvedAt: resolved(res)}
	}

	got, err := MeanCycleTime([]entities.IssueTimeline{mk("a", 2), mk("b", 4)}, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, 3.0, got, 1e-9)

	// unresolved issues are excluded
	unresolved := entities.IssueTimeline{Key: "c", CreatedAt: day(t, "2024-07-01")}
	got, err = MeanCycleTime([]entities.IssueTimeline{mk("a", 2), unresolved}, order, "Open", "Merged")
	require.NoError(t, err)
	require.InDelta(t, 2.0, got, 1e-9)
}

func TestMeanCycleTimeEmptySetIsZero(t *testing.T) {
	order := mustOrder(t, "Open", "Merged")

	got, err := MeanCycleTime(nil, order, "Open", "Merged")
	require.NoError(t, err)
	require.Zero(t, got)

	onlyUnresolved := []entities.IssueTimeline{{Key: "x", CreatedAt: day(t, "2024-07-01")}}
	got, err = MeanCycleTime(onlyUnresolved, order, "Open", "Merged")
	require.NoError(t, err)
	require.Zero(t, got)
}
