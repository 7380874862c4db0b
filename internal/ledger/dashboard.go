package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"dompet/internal/core"
)

// HistoryWindow is how many months the dashboard chart shows.
const HistoryWindow = 6

// Dashboard bundles every figure the overview page needs.
type Dashboard struct {
	Selector     core.Selector
	Totals       Totals
	Breakdown    Breakdown
	Shares       []Share
	History      Series
	Budget       Budget
	BudgetStatus BudgetStatus
	Remaining    int64
	UsedPercent  decimal.Decimal
	TotalSavings int64
	Months       []core.Month
}

// DashboardInput carries the non-transaction inputs of Summarize.
type DashboardInput struct {
	Selector       core.Selector
	History        HistoryFilter
	BudgetOverride *int64
	FallbackBudget int64
	Now            time.Time
}

// Summarize computes the dashboard for txs.
func Summarize(txs []core.Transaction, in DashboardInput) Dashboard {
	fallback := in.FallbackBudget
	if fallback <= 0 {
		fallback = FallbackBudget
	}
	totals := MonthlyTotals(txs, in.Selector)
	breakdown := CategoryBreakdown(txs, in.Selector)
	budget := EffectiveBudget(in.BudgetOverride, txs, in.Selector, fallback)

	return Dashboard{
		Selector:     in.Selector,
		Totals:       totals,
		Breakdown:    breakdown,
		Shares:       breakdown.Shares(),
		History:      HistoricalSeries(txs, in.History).Trailing(HistoryWindow),
		Budget:       budget,
		BudgetStatus: ClassifyBudget(totals.Expense, budget.Limit),
		Remaining:    Remaining(totals.Expense, budget.Limit),
		UsedPercent:  UsedPercent(totals.Expense, budget.Limit),
		TotalSavings: TotalSavings(txs),
		Months:       AvailableMonths(txs, in.Now),
	}
}
