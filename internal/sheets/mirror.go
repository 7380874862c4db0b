// Package sheets mirrors ledger transactions into a spreadsheet, one row per
// transaction keyed by the transaction ID in the first column.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"dompet/internal/core"
	"dompet/internal/export"
)

// Header is written to row 1 when the tab is empty.
var Header = []any{"ID", "Date", "Category", "Description", "Amount", "Type", "Project", "Added By"}

type Mirror struct {
	table Table
}

func NewMirror(table Table) *Mirror {
	return &Mirror{table: table}
}

func (m *Mirror) Name() string { return "sheets" }

// Upsert rewrites the row holding tx.ID, or appends one when none exists.
func (m *Mirror) Upsert(ctx context.Context, tx core.Transaction) error {
	ids, err := m.table.Column(ctx)
	if err != nil {
		return fmt.Errorf("read id column: %w", err)
	}
	if len(ids) == 0 {
		if err := m.table.AppendRow(ctx, Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	values := Row(tx)
	if row := findRow(ids, tx.ID); row > 0 {
		if err := m.table.UpdateRow(ctx, row, values); err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		return nil
	}
	if err := m.table.AppendRow(ctx, values); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// Remove deletes the row holding id. A missing row is not an error.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	ids, err := m.table.Column(ctx)
	if err != nil {
		return fmt.Errorf("read id column: %w", err)
	}
	row := findRow(ids, id)
	if row == 0 {
		return nil
	}
	if err := m.table.DeleteRow(ctx, row); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

// Row renders tx as spreadsheet cells.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.UTC().Format("2006-01-02"),
		string(tx.Category),
		tx.Description,
		tx.Amount,
		export.RowType(tx.Category),
		tx.ProjectID,
		tx.Author,
	}
}

// findRow returns the 1-based row of id, skipping the header, or 0.
func findRow(ids []string, id string) int {
	for i, v := range ids {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(v) == id {
			return i + 1
		}
	}
	return 0
}
