package ledger

import (
	"github.com/shopspring/decimal"

	"dompet/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Breakdown holds per-category spending for a selection. Income is excluded.
type Breakdown struct {
	Living  int64
	Playing int64
	Saving  int64
}

// Share is one category's portion of total spending, in percent.
type Share struct {
	Category core.Category
	Amount   int64
	Percent  decimal.Decimal
}

// CategoryBreakdown sums non-Income amounts per category for the selection.
func CategoryBreakdown(txs []core.Transaction, sel core.Selector) Breakdown {
	var b Breakdown
	for _, tx := range txs {
		if !sel.Matches(tx.Date) {
			continue
		}
		b.add(tx.Category, tx.Amount)
	}
	return b
}

func (b *Breakdown) add(c core.Category, amount int64) {
	switch c {
	case core.Living:
		b.Living += amount
	case core.Playing:
		b.Playing += amount
	case core.Saving:
		b.Saving += amount
	case core.Income:
	}
}

// Amount returns the total for one category. Income is always zero.
func (b Breakdown) Amount(c core.Category) int64 {
	switch c {
	case core.Living:
		return b.Living
	case core.Playing:
		return b.Playing
	case core.Saving:
		return b.Saving
	default:
		return 0
	}
}

// Total is the non-Income spending of the selection.
func (b Breakdown) Total() int64 {
	return b.Living + b.Playing + b.Saving
}

// Shares returns each category's percentage of Total, rounded to two
// places. When Total is non-zero the rounding residue goes to the largest
// category so the shares add up to exactly 100. When Total is zero every
// share is zero.
func (b Breakdown) Shares() []Share {
	cats := core.ExpenseCategories()
	shares := make([]Share, len(cats))
	total := b.Total()
	for i, c := range cats {
		shares[i] = Share{Category: c, Amount: b.Amount(c), Percent: decimal.Zero}
	}
	if total == 0 {
		return shares
	}

	denom := decimal.NewFromInt(total)
	sum := decimal.Zero
	largest := 0
	for i := range shares {
		p := decimal.NewFromInt(shares[i].Amount).Mul(hundred).Div(denom).Round(2)
		shares[i].Percent = p
		sum = sum.Add(p)
		if abs(shares[i].Amount) > abs(shares[largest].Amount) {
			largest = i
		}
	}
	shares[largest].Percent = shares[largest].Percent.Add(hundred.Sub(sum))
	return shares
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
