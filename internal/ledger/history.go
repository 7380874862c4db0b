package ledger

import (
	"sort"
	"strings"

	"dompet/internal/core"
)

// HistoryFilter restricts the history to one spending category. The zero
// value includes every non-Income category.
type HistoryFilter core.Category

const HistoryAll HistoryFilter = ""

// ParseHistoryFilter accepts "", "All" or a spending category.
func ParseHistoryFilter(s string) (HistoryFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return HistoryAll, nil
	}
	c, err := core.ParseCategory(s)
	if err != nil || c == core.Income {
		return HistoryAll, core.Invalid(core.ErrInvalidCategory)
	}
	return HistoryFilter(c), nil
}

func (f HistoryFilter) includes(c core.Category) bool {
	return f == HistoryAll || core.Category(f) == c
}

// MonthSeries is one month of the spending history.
type MonthSeries struct {
	Month   core.Month
	Living  int64
	Playing int64
	Saving  int64
	Total   int64
}

// Series is ordered ascending by month.
type Series []MonthSeries

// HistoricalSeries groups non-Income spending by calendar month. Only months
// present in the data appear.
func HistoricalSeries(txs []core.Transaction, filter HistoryFilter) Series {
	byMonth := make(map[core.Month]*MonthSeries)
	for _, tx := range txs {
		if tx.Category.IsIncome() || !filter.includes(tx.Category) {
			continue
		}
		m := core.MonthOf(tx.Date)
		row, ok := byMonth[m]
		if !ok {
			row = &MonthSeries{Month: m}
			byMonth[m] = row
		}
		row.Total += tx.Amount
		switch tx.Category {
		case core.Living:
			row.Living += tx.Amount
		case core.Playing:
			row.Playing += tx.Amount
		case core.Saving:
			row.Saving += tx.Amount
		case core.Income:
		}
	}

	out := make(Series, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Trailing returns the n most recent months, still ascending.
func (s Series) Trailing(n int) Series {
	if n <= 0 {
		return Series{}
	}
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
