package sheets

import "context"

// Table is one spreadsheet tab addressed by 1-based row numbers.
type Table interface {
	// Column returns the values of the first column, row 1 first.
	Column(ctx context.Context) ([]string, error)
	UpdateRow(ctx context.Context, row int, values []any) error
	AppendRow(ctx context.Context, values []any) error
	DeleteRow(ctx context.Context, row int) error
}
