package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
)

// ColumnPolicy selects where a missing period column is created.
type ColumnPolicy int

const (
	// AppendEnd creates missing columns after the last existing one.
	AppendEnd ColumnPolicy = iota
	// InsertAfterAnchor creates missing columns immediately after the
	// label column, reserving position 2 for the newest period so recent
	// months stay visible without scrolling.
	InsertAfterAnchor
)

// RowPolicy selects what happens when a row label is absent.
type RowPolicy int

const (
	// SkipMissing silently skips the write. Used by jobs that only update
	// pre-existing rows and must not fabricate new ones.
	SkipMissing RowPolicy = iota
	// AppendMissing appends a new row for the label. Used by jobs whose
	// row universe is the data itself.
	AppendMissing
)

// Upserter maps (row-label, column-label) pairs onto grid coordinates,
// creating rows and columns on demand without ever duplicating them.
// Re-running an upsert for the same pair overwrites the same single cell,
// so a job can be replayed for a period without corrupting earlier writes.
//
// The header row and label column are read once per sheet per Upserter and
// extended in memory as columns/rows are created, bounding round-trips when
// a batch writes many cells. Construct one Upserter per logical batch.
type Upserter struct {
	sink Sink
	exec *backoff.Executor
	log  *zap.SugaredLogger

	headers map[string][]string
	labels  map[string][]string
}

// NewUpserter builds an Upserter whose individual store operations are
// retried by exec. Writes are not batched: each cell is one independently
// retried request, so a partial failure leaves already-written cells intact.
func NewUpserter(log *zap.SugaredLogger, sink Sink, exec *backoff.Executor) *Upserter {
	return &Upserter{
		sink:    sink,
		exec:    exec,
		log:     log.Named("ledger"),
		headers: make(map[string][]string),
		labels:  make(map[string][]string),
	}
}

// EnsureColumn locates the column for label, creating it per policy when
// absent. The in-memory header view is extended so later lookups in the
// same batch see the new column without re-reading.
func (u *Upserter) EnsureColumn(ctx context.Context, sheet, label string, policy ColumnPolicy) (int, error) {
	headers, err := u.headerRow(ctx, sheet)
	if err != nil {
		return 0, err
	}
	if idx := indexOf(headers, label); idx >= 0 {
		return idx, nil
	}

	idx := len(headers)
	if policy == InsertAfterAnchor && len(headers) > 0 {
		idx = 1
	}
	err = u.exec.Execute(func() error {
		return u.sink.InsertColumn(ctx, sheet, idx, label)
	}, backoff.TransientOnly)
	if err != nil {
		return 0, err
	}

	extended := make([]string, 0, len(headers)+1)
	extended = append(extended, headers[:idx]...)
	extended = append(extended, label)
	extended = append(extended, headers[idx:]...)
	u.headers[sheet] = extended

	u.log.Infow("created column", "sheet", sheet, "label", label, "index", idx)
	return idx, nil
}

// Upsert writes value at (rowLabel, colLabel), creating the column per
// colPolicy and resolving a missing row per rowPolicy. Exactly one cell
// update is issued per call.
func (u *Upserter) Upsert(ctx context.Context, sheet, rowLabel, colLabel, value string, rowPolicy RowPolicy, colPolicy ColumnPolicy) error {
	col, err := u.EnsureColumn(ctx, sheet, colLabel, colPolicy)
	if err != nil {
		return err
	}

	labels, err := u.labelColumn(ctx, sheet)
	if err != nil {
		return err
	}

	row := indexOf(labels, rowLabel)
	if row < 0 {
		switch rowPolicy {
		case SkipMissing:
			u.log.Debugw("row absent, skipping", "sheet", sheet, "row", rowLabel)
			return nil
		case AppendMissing:
			err = u.exec.Execute(func() error {
				var appendErr error
				row, appendErr = u.sink.AppendRow(ctx, sheet, rowLabel)
				return appendErr
			}, backoff.TransientOnly)
			if err != nil {
				return err
			}
			u.labels[sheet] = append(labels, rowLabel)
			u.log.Infow("created row", "sheet", sheet, "label", rowLabel, "index", row)
		}
	}

	err = u.exec.Execute(func() error {
		return u.sink.UpdateCell(ctx, sheet, row, col, value)
	}, backoff.TransientOnly)
	if err != nil {
		return err
	}
	u.log.Debugw("cell written", "sheet", sheet, "row", rowLabel, "column", colLabel, "value", value)
	return nil
}

// RowLabels exposes the cached label column, header corner included.
func (u *Upserter) RowLabels(ctx context.Context, sheet string) ([]string, error) {
	labels, err := u.labelColumn(ctx, sheet)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out, nil
}

func (u *Upserter) headerRow(ctx context.Context, sheet string) ([]string, error) {
	if h, ok := u.headers[sheet]; ok {
		return h, nil
	}
	var h []string
	err := u.exec.Execute(func() error {
		var readErr error
		h, readErr = u.sink.HeaderRow(ctx, sheet)
		return readErr
	}, backoff.TransientOnly)
	if err != nil {
		return nil, err
	}
	u.headers[sheet] = h
	return h, nil
}

func (u *Upserter) labelColumn(ctx context.Context, sheet string) ([]string, error) {
	if l, ok := u.labels[sheet]; ok {
		return l, nil
	}
	var l []string
	err := u.exec.Execute(func() error {
		var readErr error
		l, readErr = u.sink.Column(ctx, sheet, 0)
		return readErr
	}, backoff.TransientOnly)
	if err != nil {
		return nil, err
	}
	u.labels[sheet] = l
	return l, nil
}

// indexOf finds label by exact string match.
func indexOf(values []string, label string) int {
	for i, v := range values {
		if v == label {
			return i
		}
	}
	return -1
}
