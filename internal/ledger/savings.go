package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"dompet/internal/core"
)

// PaymentSource says what an expense is paid from.
type PaymentSource string

const (
	FromBalance PaymentSource = "balance"
	FromSavings PaymentSource = "savings"
)

// ParsePaymentSource accepts "", "balance" or "savings".
func ParsePaymentSource(s string) (PaymentSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "balance":
		return FromBalance, nil
	case "savings", "saving":
		return FromSavings, nil
	}
	return "", core.Invalid(fmt.Errorf("unknown payment source %q", s))
}

// Plan is what the writer must persist for one submitted transaction.
type Plan struct {
	Primary core.Transaction
	// Offset is the savings withdrawal, set only when paying from savings.
	Offset *core.Transaction
}

// Paired reports whether the plan needs two records.
func (p Plan) Paired() bool { return p.Offset != nil }

// ValidateSavingsWithdrawal rejects withdrawals larger than the savings pot.
// Withdrawing exactly everything is allowed.
func ValidateSavingsWithdrawal(amount, totalSavings int64) error {
	if amount > totalSavings {
		return fmt.Errorf("%w: requested %d, available %d", core.ErrInsufficientFunds, amount, totalSavings)
	}
	return nil
}

// PlanPayment validates tx and decides which records to create. For a
// savings-funded expense it adds a negative Saving entry with the same date,
// project and author.
func PlanPayment(tx core.Transaction, source PaymentSource, totalSavings int64) (Plan, error) {
	if err := tx.Validate(); err != nil {
		return Plan{}, err
	}
	if source != FromSavings {
		return Plan{Primary: tx}, nil
	}
	if !tx.Category.Fundable() {
		return Plan{}, core.Invalid(core.ErrNotFundable)
	}
	if err := ValidateSavingsWithdrawal(tx.Amount, totalSavings); err != nil {
		return Plan{}, err
	}
	offset := CoverFor(tx)
	return Plan{Primary: tx, Offset: &offset}, nil
}

// CoverFor builds the withdrawal that offsets tx.
func CoverFor(tx core.Transaction) core.Transaction {
	return core.Transaction{
		Amount:      -tx.Amount,
		Category:    core.Saving,
		Description: coverDescription(tx.Description),
		Date:        tx.Date,
		ProjectID:   tx.ProjectID,
		UserID:      tx.UserID,
	}
}

// IsCover reports whether tx looks like a withdrawal created by CoverFor.
func IsCover(tx core.Transaction) bool {
	return tx.IsWithdrawal() && strings.HasPrefix(tx.Description, core.CoverPrefix)
}

func coverDescription(desc string) string {
	d := core.CoverPrefix + desc
	for len(d) > core.MaxDescriptionLength {
		_, size := utf8.DecodeLastRuneInString(d)
		d = d[:len(d)-size]
	}
	return d
}
