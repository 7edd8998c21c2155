// Package ledger writes computed metrics into a 2-D labeled grid: row axis
// keyed by a domain label, column axis keyed by a period label.
package ledger

import "context"

// Sink is the narrow contract the upserter requires of a tabular store.
// Coordinates are 0-based grid indices: row 0 is the header row, column 0
// is the label column. Any spreadsheet-like or database-like store
// satisfies the contract if it provides these operations with
// read-after-write consistency within a single process.
type Sink interface {
	// HeaderRow returns the full first row: the corner cell followed by
	// the period column labels.
	HeaderRow(ctx context.Context, sheet string) ([]string, error)
	// Column returns the full values of a column, header cell first.
	// Column 0 is the label column.
	Column(ctx context.Context, sheet string, index int) ([]string, error)
	// InsertColumn inserts an empty column at index and writes label into
	// its header cell, shifting existing columns right.
	InsertColumn(ctx context.Context, sheet string, index int, label string) error
	// AppendRow adds a row labeled label after the last existing row and
	// returns its grid index.
	AppendRow(ctx context.Context, sheet string, label string) (int, error)
	// UpdateCell overwrites the value at (row, col).
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
}

// Lifecycle describes store startup/shutdown hooks.
type Lifecycle interface {
	OnStart(_ context.Context) error
	OnStop(_ context.Context) error
}

// Store is a managed ledger backend.
type Store interface {
	Sink
	Lifecycle
}
