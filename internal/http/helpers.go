package http

import (
	"time"

	"github.com/shopspring/decimal"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

// Views below are the JSON shapes of the API. Amounts are whole currency
// units; the *_display fields are formatted for the configured currency.

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Display  string `json:"display_name"`
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID, Email: u.Email, Username: u.Username, FullName: u.FullName, Display: u.DisplayName()}
}

type projectView struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	OwnerID             string  `json:"owner_id"`
	Role                string  `json:"role,omitempty"`
	OwnerName           string  `json:"owner_name,omitempty"`
	LastTransactionDate *string `json:"last_transaction_date,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

func newProjectView(p core.Project, role core.Role) projectView {
	return projectView{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		Role:      string(role),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newProjectDetailsView(d core.ProjectDetails) projectView {
	v := newProjectView(d.Project, d.Role)
	v.OwnerName = d.OwnerName
	if d.LastTransactionDate != nil {
		s := d.LastTransactionDate.UTC().Format(dateLayout)
		v.LastTransactionDate = &s
	}
	return v
}

type transactionView struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	UserID        string `json:"user_id"`
	Author        string `json:"author,omitempty"`
	Withdrawal    bool   `json:"withdrawal,omitempty"`
}

func newTransactionView(tx core.Transaction, currency string) transactionView {
	signed := tx.Amount
	if !tx.Category.IsIncome() {
		signed = -signed
	}
	return transactionView{
		ID:            tx.ID,
		Amount:        tx.Amount,
		AmountDisplay: core.FormatSignedAmount(signed, currency),
		Category:      tx.Category.String(),
		Description:   tx.Description,
		Date:          tx.Date.UTC().Format(dateLayout),
		UserID:        tx.UserID,
		Author:        tx.Author,
		Withdrawal:    tx.IsWithdrawal(),
	}
}

type amountView struct {
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

func newAmountView(v int64, currency string) amountView {
	return amountView{Amount: v, Display: core.FormatAmount(v, currency)}
}

type shareView struct {
	Category string          `json:"category"`
	Amount   int64           `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

type historyView struct {
	Month   string `json:"month"`
	Living  int64  `json:"living"`
	Playing int64  `json:"playing"`
	Saving  int64  `json:"saving"`
	Total   int64  `json:"total"`
}

type budgetView struct {
	Limit       amountView      `json:"limit"`
	Source      string          `json:"source"`
	Status      string          `json:"status"`
	Remaining   amountView      `json:"remaining"`
	UsedPercent decimal.Decimal `json:"used_percent"`
}

type dashboardView struct {
	Selector     string        `json:"selector"`
	Income       amountView    `json:"income"`
	Expense      amountView    `json:"expense"`
	Balance      amountView    `json:"balance"`
	CashFlow     amountView    `json:"cash_flow"`
	TotalSavings amountView    `json:"total_savings"`
	Shares       []shareView   `json:"shares"`
	History      []historyView `json:"history"`
	Budget       budgetView    `json:"budget"`
	Months       []string      `json:"months"`
}

func newDashboardView(d ledger.Dashboard, currency string) dashboardView {
	v := dashboardView{
		Selector:     d.Selector.String(),
		Income:       newAmountView(d.Totals.Income, currency),
		Expense:      newAmountView(d.Totals.Expense, currency),
		Balance:      newAmountView(d.Totals.Balance, currency),
		CashFlow:     newAmountView(d.Totals.CashFlow, currency),
		TotalSavings: newAmountView(d.TotalSavings, currency),
		Shares:       make([]shareView, 0, len(d.Shares)),
		History:      make([]historyView, 0, len(d.History)),
		Budget: budgetView{
			Limit:       newAmountView(d.Budget.Limit, currency),
			Source:      string(d.Budget.Source),
			Status:      string(d.BudgetStatus),
			Remaining:   newAmountView(d.Remaining, currency),
			UsedPercent: d.UsedPercent,
		},
		Months: make([]string, 0, len(d.Months)),
	}
	for _, s := range d.Shares {
		v.Shares = append(v.Shares, shareView{Category: s.Category.String(), Amount: s.Amount, Percent: s.Percent})
	}
	for _, h := range d.History {
		v.History = append(v.History, historyView{
			Month: string(h.Month), Living: h.Living, Playing: h.Playing, Saving: h.Saving, Total: h.Total,
		})
	}
	for _, m := range d.Months {
		v.Months = append(v.Months, string(m))
	}
	return v
}
