package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// The grid is positional only on its axes: ledger_columns and ledger_rows
// carry (label, position) per sheet, while cells are keyed by labels so
// that axis shifts never have to rewrite them. Position 0 of the column
// axis is the label column; row positions start at 1 below the header.
const (
	headerQuery = `SELECT label FROM ledger_columns WHERE sheet=$1 ORDER BY position`
	rowsQuery   = `SELECT label FROM ledger_rows WHERE sheet=$1 ORDER BY position`

	columnLabelQuery = `SELECT label FROM ledger_columns WHERE sheet=$1 AND position=$2`
	rowLabelQuery    = `SELECT label FROM ledger_rows WHERE sheet=$1 AND position=$2`

	shiftColumnsQuery = `UPDATE ledger_columns SET position = position + 1 WHERE sheet=$1 AND position >= $2`
	insertColumnQuery = `INSERT INTO ledger_columns (sheet, label, position) VALUES ($1, $2, $3)`

	appendRowQuery = `
INSERT INTO ledger_rows (sheet, label, position)
SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM ledger_rows WHERE sheet=$1
RETURNING position`

	cellValuesQuery = `
SELECT r.position, c.value
FROM ledger_cells c
JOIN ledger_rows r ON r.sheet = c.sheet AND r.label = c.row_label
WHERE c.sheet=$1 AND c.col_label=$2`

	upsertCellQuery = `
INSERT INTO ledger_cells (sheet, row_label, col_label, value, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (sheet, row_label, col_label) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// HeaderRow returns the column labels ordered by position, the label-column
// header first.
func (p *Postgres) HeaderRow(ctx context.Context, sheet string) ([]string, error) {
	return p.labelList(ctx, headerQuery, sheet)
}

// Column returns a column's values, header first. Column 0 is the label
// column; other columns are reassembled from cells by row position, with
// blanks for rows that have no value yet.
func (p *Postgres) Column(ctx context.Context, sheet string, index int) ([]string, error) {
	rowLabels, err := p.labelList(ctx, rowsQuery, sheet)
	if err != nil {
		return nil, err
	}

	var header string
	err = p.db.QueryRow(ctx, columnLabelQuery, sheet, index).Scan(&header)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("column %d header: %w", index, err)
	}

	if index == 0 {
		return append([]string{header}, rowLabels...), nil
	}

	out := make([]string, len(rowLabels)+1)
	out[0] = header
	rows, err := p.db.Query(ctx, cellValuesQuery, sheet, header)
	if err != nil {
		return nil, fmt.Errorf("column %d cells: %w", index, err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		var val string
		if err := rows.Scan(&pos, &val); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		if pos >= 1 && pos < len(out) {
			out[pos] = val
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}
	return out, nil
}

// InsertColumn shifts later columns right and registers the new label.
// Cells are keyed by label, so no cell data moves.
func (p *Postgres) InsertColumn(ctx context.Context, sheet string, index int, label string) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert column: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, shiftColumnsQuery, sheet, index); err != nil {
		return fmt.Errorf("shift columns: %w", err)
	}
	if _, err := tx.Exec(ctx, insertColumnQuery, sheet, label, index); err != nil {
		return fmt.Errorf("insert column: %w", err)
	}
	return tx.Commit(ctx)
}

// AppendRow registers a new row label at the next free position.
func (p *Postgres) AppendRow(ctx context.Context, sheet string, label string) (int, error) {
	var pos int
	if err := p.db.QueryRow(ctx, appendRowQuery, sheet, label).Scan(&pos); err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}
	return pos, nil
}

// UpdateCell resolves the axis labels for (row, col) and upserts the cell.
func (p *Postgres) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	var colLabel string
	if err := p.db.QueryRow(ctx, columnLabelQuery, sheet, col).Scan(&colLabel); err != nil {
		return fmt.Errorf("resolve column %d: %w", col, err)
	}
	var rowLabel string
	if err := p.db.QueryRow(ctx, rowLabelQuery, sheet, row).Scan(&rowLabel); err != nil {
		return fmt.Errorf("resolve row %d: %w", row, err)
	}
	if _, err := p.db.Exec(ctx, upsertCellQuery, sheet, rowLabel, colLabel, value); err != nil {
		return fmt.Errorf("upsert cell: %w", err)
	}
	return nil
}

func (p *Postgres) labelList(ctx context.Context, query, sheet string) ([]string, error) {
	rows, err := p.db.Query(ctx, query, sheet)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out = append(out, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return out, nil
}
