package ledger

import "dompet/internal/core"

// Totals are the headline figures for a selection.
type Totals struct {
	Income  int64
	Expense int64
	// Balance is net worth over the whole ledger, not the selection.
	Balance int64
	// CashFlow is Income minus Expense within the selection.
	CashFlow int64
}

// MonthlyTotals sums income and spending for the selected month.
//
// Expense is the plain sum of every non-Income amount, so savings withdrawals
// (negative Saving rows) reduce the figure.
func MonthlyTotals(txs []core.Transaction, sel core.Selector) Totals {
	var t Totals
	for _, tx := range txs {
		if !sel.Matches(tx.Date) {
			continue
		}
		if tx.Category.IsIncome() {
			t.Income += tx.Amount
		} else {
			t.Expense += tx.Amount
		}
	}
	t.Balance = AllTimeBalance(txs)
	t.CashFlow = t.Income - t.Expense
	return t
}

// AllTimeBalance is the sum of Income minus the sum of everything else.
// Withdrawals are negative, so subtracting them restores the balance.
func AllTimeBalance(txs []core.Transaction) int64 {
	var balance int64
	for _, tx := range txs {
		if tx.Category.IsIncome() {
			balance += tx.Amount
		} else {
			balance -= tx.Amount
		}
	}
	return balance
}

// TotalSavings is deposits minus withdrawals over the whole ledger.
func TotalSavings(txs []core.Transaction) int64 {
	var total int64
	for _, tx := range txs {
		if tx.Category == core.Saving {
			total += tx.Amount
		}
	}
	return total
}
