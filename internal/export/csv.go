// Package export renders ledger views as CSV and reads them back.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
)

// Header is the first line of every export.
var Header = []string{"Date", "Category", "Description", "Amount", "Type"}

const (
	TypeIncome  = "Income"
	TypeExpense = "Expense"
)

// ErrBadHeader is returned by Parse when the first record is not Header.
var ErrBadHeader = errors.New("csv: unexpected header")

// Filename is the download name for a selection.
func Filename(sel core.Selector) string {
	return fmt.Sprintf("expenses-%s.csv", sel)
}

// RowType classifies a transaction for the Type column. Saving counts as
// Income because it moves money into the savings pot.
func RowType(c core.Category) string {
	switch c {
	case core.Saving, core.Income:
		return TypeIncome
	case core.Living, core.Playing:
		return TypeExpense
	}
	return TypeExpense
}

// Write emits the header and one row per transaction in the given order.
// The description is always quoted with inner quotes doubled.
func Write(w io.Writer, txs []core.Transaction) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
		return err
	}
	for _, tx := range txs {
		line := strings.Join([]string{
			core.ISODate(tx.Date),
			string(tx.Category),
			quote(tx.Description),
			strconv.FormatInt(tx.Amount, 10),
			RowType(tx.Category),
		}, ",")
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Parse reads an export back into transactions. Only date, category,
// description and amount are restored.
func Parse(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err == io.EOF {
		return nil, ErrBadHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range Header {
		if strings.TrimPrefix(head[i], "\ufeff") != Header[i] {
			return nil, ErrBadHeader
		}
	}

	var out []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		tx, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseRecord(rec []string) (core.Transaction, error) {
	date, err := time.Parse(time.RFC3339Nano, rec[0])
	if err != nil {
		return core.Transaction{}, core.Invalid(core.ErrInvalidDate)
	}
	cat, err := core.ParseCategory(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return core.Transaction{}, core.Invalid(core.ErrInvalidAmount)
	}
	return core.Transaction{
		Date:        date.UTC(),
		Category:    cat,
		Description: rec[2],
		Amount:      amount,
	}, nil
}
