package ledger

import (
	"github.com/shopspring/decimal"

	"dompet/internal/core"
)

// FallbackBudget is the monthly limit used when no stored override and no
// history exist.
const FallbackBudget int64 = 5_000_000

var cautionRatio = decimal.RequireFromString("0.8")

// BudgetStatus is the health of a month's spending against its limit.
type BudgetStatus string

const (
	Healthy    BudgetStatus = "healthy"
	Caution    BudgetStatus = "caution"
	OverBudget BudgetStatus = "over_budget"
)

// BudgetSource tells where an effective limit came from.
type BudgetSource string

const (
	SourceManual   BudgetSource = "manual"
	SourceAverage  BudgetSource = "average"
	SourceFallback BudgetSource = "fallback"
)

// Budget is the limit in force for a selection and how it was chosen.
type Budget struct {
	Limit  int64
	Source BudgetSource
}

// ClassifyBudget compares spending against a limit. Both thresholds are
// exclusive: spending exactly at the limit is Caution, not OverBudget.
func ClassifyBudget(expense, limit int64) BudgetStatus {
	if expense > limit {
		return OverBudget
	}
	if decimal.NewFromInt(expense).GreaterThan(decimal.NewFromInt(limit).Mul(cautionRatio)) {
		return Caution
	}
	return Healthy
}

// Remaining is the room left under the limit, floored at zero.
func Remaining(expense, limit int64) int64 {
	if expense >= limit {
		return 0
	}
	return limit - expense
}

// UsedPercent is spending as a percentage of the limit, capped at 100.
func UsedPercent(expense, limit int64) decimal.Decimal {
	if limit <= 0 {
		return decimal.Zero
	}
	p := decimal.NewFromInt(expense).Mul(hundred).Div(decimal.NewFromInt(limit)).Round(2)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// DefaultBudget is the rounded mean of the non-Income totals of every month
// other than the selected one. With no such month it returns fallback.
// The AllTime selector excludes nothing.
func DefaultBudget(txs []core.Transaction, sel core.Selector, fallback int64) (int64, bool) {
	totals := make(map[core.Month]int64)
	for _, tx := range txs {
		if tx.Category.IsIncome() {
			continue
		}
		m := core.MonthOf(tx.Date)
		if !sel.IsAll() && m == sel.Month() {
			continue
		}
		totals[m] += tx.Amount
	}
	if len(totals) == 0 {
		return fallback, false
	}

	var sum int64
	for _, v := range totals {
		sum += v
	}
	// Halves round toward positive infinity: -0.5 becomes 0, 1500.5 becomes 1501.
	mean := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(totals))))
	return mean.Add(decimal.New(5, -1)).Floor().IntPart(), true
}

// EffectiveBudget prefers a stored override and otherwise derives the limit
// from history.
func EffectiveBudget(override *int64, txs []core.Transaction, sel core.Selector, fallback int64) Budget {
	if override != nil {
		return Budget{Limit: *override, Source: SourceManual}
	}
	limit, fromHistory := DefaultBudget(txs, sel, fallback)
	if fromHistory {
		return Budget{Limit: limit, Source: SourceAverage}
	}
	return Budget{Limit: limit, Source: SourceFallback}
}
