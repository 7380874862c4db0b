// Package core provides the ledger domain model.
//
// This file contains parsing of user-entered amounts and display formatting
// for the configured currency.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
)

// DefaultCurrency is used for display when none is configured.
const DefaultCurrency = money.IDR

// ParseAmount converts user input to a positive whole-unit amount.
//
// Dots are accepted as thousands separators, as typed into the amount field
// ("50.000" is fifty thousand). Signs, decimals and anything that is not a
// digit are rejected.
//
// Examples:
//
//	ParseAmount("50.000") -> 50000, nil
//	ParseAmount("1200")   -> 1200, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return 0, Invalid(ErrInvalidAmount)
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, Invalid(ErrInvalidAmount)
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, Invalid(ErrInvalidAmount)
	}
	return v, nil
}

// FormatAmount renders whole units in the given currency, e.g. "Rp1.000,00".
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	cur := *money.New(0, currency).Currency()
	minor := amount
	for i := 0; i < cur.Fraction; i++ {
		minor *= 10
	}
	return cur.Formatter().Format(minor)
}

// FormatSignedAmount prefixes non-zero amounts with their direction, the way
// ledger rows show inflows and outflows.
func FormatSignedAmount(amount int64, currency string) string {
	switch {
	case amount > 0:
		return "+" + FormatAmount(amount, currency)
	case amount < 0:
		return "-" + FormatAmount(-amount, currency)
	default:
		return FormatAmount(0, currency)
	}
}
