package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// gridSink is an in-memory Sink with the same coordinate conventions as
// the real backends: row 0 = header, column 0 = labels.
type gridSink struct {
	cells map[string]map[[2]int]string

	headerReads int
	columnReads int
	cellWrites  int
	failures    int // remaining transient failures to inject
}

func newGridSink() *gridSink {
	return &gridSink{cells: map[string]map[[2]int]string{}}
}

func (g *gridSink) seed(sheet string, rows [][]string) {
	m := map[[2]int]string{}
	for r, row := range rows {
		for c, v := range row {
			m[[2]int{r, c}] = v
		}
	}
	g.cells[sheet] = m
}

func (g *gridSink) dims(sheet string) (rows, cols int) {
	for k := range g.cells[sheet] {
		if k[0] >= rows {
			rows = k[0] + 1
		}
		if k[1] >= cols {
			cols = k[1] + 1
		}
	}
	return rows, cols
}

func (g *gridSink) fail() error {
	if g.failures > 0 {
		g.failures--
		return entities.Transientf("injected")
	}
	return nil
}

func (g *gridSink) HeaderRow(_ context.Context, sheet string) ([]string, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	g.headerReads++
	_, cols := g.dims(sheet)
	out := make([]string, cols)
	for c := 0; c < cols; c++ {
		out[c] = g.cells[sheet][[2]int{0, c}]
	}
	return out, nil
}

func (g *gridSink) Column(_ context.Context, sheet string, index int) ([]string, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	g.columnReads++
	rows, _ := g.dims(sheet)
	out := make([]string, rows)
	for r := 0; r < rows; r++ {
		out[r] = g.cells[sheet][[2]int{r, index}]
	}
	return out, nil
}

func (g *gridSink) InsertColumn(_ context.Context, sheet string, index int, label string) error {
	if err := g.fail(); err != nil {
		return err
	}
	rows, cols := g.dims(sheet)
	for r := 0; r < rows; r++ {
		for c := cols - 1; c >= index; c-- {
			if v, ok := g.cells[sheet][[2]int{r, c}]; ok {
				g.cells[sheet][[2]int{r, c + 1}] = v
			}
			delete(g.cells[sheet], [2]int{r, c})
		}
	}
	g.cells[sheet][[2]int{0, index}] = label
	return nil
}

func (g *gridSink) AppendRow(_ context.Context, sheet string, label string) (int, error) {
	if err := g.fail(); err != nil {
		return 0, err
	}
	rows, _ := g.dims(sheet)
	g.cells[sheet][[2]int{rows, 0}] = label
	return rows, nil
}

func (g *gridSink) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	if err := g.fail(); err != nil {
		return err
	}
	g.cellWrites++
	g.cells[sheet][[2]int{row, col}] = value
	return nil
}

func testUpserter(t *testing.T, sink Sink) *Upserter {
	t.Helper()
	exec := backoff.New(zap.NewNop().Sugar()).
		WithMaxAttempts(5).
		WithSleeper(func(time.Duration) {})
	return NewUpserter(zap.NewNop().Sugar(), sink, exec)
}

func TestUpsertIdempotence(t *testing.T) {
	sink := newGridSink()
	sink.seed("Meetings", [][]string{
		{"Engineer - IC"},
		{"Alice"},
		{"Bob"},
	})
	u := testUpserter(t, sink)
	ctx := context.Background()

	require.NoError(t, u.Upsert(ctx, "Meetings", "Alice", "March 2024", "5", SkipMissing, InsertAfterAnchor))
	require.NoError(t, u.Upsert(ctx, "Meetings", "Alice", "March 2024", "5", SkipMissing, InsertAfterAnchor))

	headers, err := sink.HeaderRow(ctx, "Meetings")
	require.NoError(t, err)
	require.Equal(t, []string{"Engineer - IC", "March 2024"}, headers, "exactly one period column")
	require.Equal(t, "5", sink.cells["Meetings"][[2]int{1, 1}], "overwrite, not accumulation")
}

func TestEnsureColumnInsertAfterAnchor(t *testing.T) {
	sink := newGridSink()
	sink.seed("Cycle Time", [][]string{
		{"Type", "February 2024", "January 2024"},
		{"Bug Resolution Time", "3.1", "4.0"},
	})
	u := testUpserter(t, sink)
	ctx := context.Background()

	idx, err := u.EnsureColumn(ctx, "Cycle Time", "March 2024", InsertAfterAnchor)
	require.NoError(t, err)
	require.Equal(t, 1, idx, "newest period reserves position 2")

	headers, err := sink.HeaderRow(ctx, "Cycle Time")
	require.NoError(t, err)
	require.Equal(t, []string{"Type", "March 2024", "February 2024", "January 2024"}, headers)

	// existing cells shifted with their columns
	require.Equal(t, "3.1", sink.cells["Cycle Time"][[2]int{1, 2}])

	// repeated ensure in the same batch finds the cached column
	again, err := u.EnsureColumn(ctx, "Cycle Time", "March 2024", InsertAfterAnchor)
	require.NoError(t, err)
	require.Equal(t, 1, again)
	require.Equal(t, 1, sink.headerReads, "header read once per batch")
}

func TestEnsureColumnAppendEnd(t *testing.T) {
	sink := newGridSink()
	sink.seed("Build Metrics", [][]string{
		{"Project Name", "February 2024"},
	})
	u := testUpserter(t, sink)

	idx, err := u.EnsureColumn(context.Background(), "Build Metrics", "March 2024", AppendEnd)
	require.NoError(t, err)
	require.Equal(t, 2, idx)
}

func TestColumnAutoCreationOnce(t *testing.T) {
	sink := newGridSink()
	sink.seed("Merges", [][]string{
		{"Engineer - IC"},
		{"Alice"},
	})
	u := testUpserter(t, sink)
	ctx := context.Background()

	require.NoError(t, u.Upsert(ctx, "Merges", "Alice", "March 2024", "2", SkipMissing, InsertAfterAnchor))
	require.NoError(t, u.Upsert(ctx, "Merges", "Alice", "March 2024", "3", SkipMissing, InsertAfterAnchor))

	headers, err := sink.HeaderRow(ctx, "Merges")
	require.NoError(t, err)
	count := 0
	for _, h := range headers {
		if h == "March 2024" {
			count++
		}
	}
	require.Equal(t, 1, count, "column appended once even when written twice in a batch")
	require.Equal(t, "3", sink.cells["Merges"][[2]int{1, 1}], "last value wins")
}

func TestUpsertRowPolicies(t *testing.T) {
	sink := newGridSink()
	sink.seed("Build Metrics", [][]string{
		{"Project Name"},
		{"api"},
	})
	u := testUpserter(t, sink)
	ctx := context.Background()

	// SkipMissing: unknown row writes nothing
	require.NoError(t, u.Upsert(ctx, "Build Metrics", "ghost", "March 2024", "1", SkipMissing, AppendEnd))
	require.Equal(t, 0, sink.cellWrites)

	// AppendMissing: unknown row is appended once
	require.NoError(t, u.Upsert(ctx, "Build Metrics", "web", "March 2024", "7", AppendMissing, AppendEnd))
	require.NoError(t, u.Upsert(ctx, "Build Metrics", "web", "March 2024", "8", AppendMissing, AppendEnd))

	labels, err := sink.Column(ctx, "Build Metrics", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"Project Name", "api", "web"}, labels)
	require.Equal(t, "8", sink.cells["Build Metrics"][[2]int{2, 1}])
}

func TestUpsertRetriesTransientSinkFailures(t *testing.T) {
	sink := newGridSink()
	sink.seed("Metrics", [][]string{
		{"Metric", "March 2024"},
		{"Issues completed"},
	})
	sink.failures = 2
	u := testUpserter(t, sink)

	err := u.Upsert(context.Background(), "Metrics", "Issues completed", "March 2024", "41", SkipMissing, InsertAfterAnchor)
	require.NoError(t, err)
	require.Equal(t, "41", sink.cells["Metrics"][[2]int{1, 1}])
}

func TestUpsertSurfacesExhaustion(t *testing.T) {
	sink := newGridSink()
	sink.seed("Metrics", [][]string{{"Metric"}})
	sink.failures = 100
	u := testUpserter(t, sink)

	err := u.Upsert(context.Background(), "Metrics", "x", "March 2024", "1", SkipMissing, AppendEnd)
	require.ErrorIs(t, err, entities.ErrRetryExhausted)
}
