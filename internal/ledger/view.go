package ledger

import (
	"sort"
	"strings"
	"time"

	"dompet/internal/core"
)

// SortOrder orders the transaction list.
type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortHighest SortOrder = "highest"
	SortLowest  SortOrder = "lowest"
)

// ParseSortOrder defaults to newest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortHighest:
		return SortHighest, nil
	case SortLowest:
		return SortLowest, nil
	}
	return "", core.Invalid(core.ErrInvalidSort)
}

// ListOptions narrows and orders the transaction list.
type ListOptions struct {
	Selector core.Selector
	// Category is empty for every category.
	Category core.Category
	Sort     SortOrder
}

// Filter returns a new slice holding the matching transactions in the
// requested order. Ties fall back to creation time, newest first.
func Filter(txs []core.Transaction, opts ListOptions) []core.Transaction {
	sel := opts.Selector
	if sel == "" {
		sel = core.AllTime
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !sel.Matches(tx.Date) {
			continue
		}
		if opts.Category != "" && tx.Category != opts.Category {
			continue
		}
		out = append(out, tx)
	}

	var less func(a, b core.Transaction) bool
	switch opts.Sort {
	case SortOldest:
		less = func(a, b core.Transaction) bool { return a.Date.Before(b.Date) }
	case SortHighest:
		less = func(a, b core.Transaction) bool { return a.Amount > b.Amount }
	case SortLowest:
		less = func(a, b core.Transaction) bool { return a.Amount < b.Amount }
	default:
		less = func(a, b core.Transaction) bool { return a.Date.After(b.Date) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

// AvailableMonths lists every month with data plus the month of now,
// newest first.
func AvailableMonths(txs []core.Transaction, now time.Time) []core.Month {
	seen := map[core.Month]struct{}{core.MonthOf(now): {}}
	for _, tx := range txs {
		seen[core.MonthOf(tx.Date)] = struct{}{}
	}
	out := make([]core.Month, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
