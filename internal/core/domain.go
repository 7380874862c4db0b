package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Living  Category = "Living"
	Playing Category = "Playing"
	Saving  Category = "Saving"
	Income  Category = "Income"
)

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// MaxDescriptionLength bounds free-text descriptions.
const MaxDescriptionLength = 200

// CoverPrefix marks the synthetic savings withdrawal created when an expense
// is paid from savings.
const CoverPrefix = "Cover for: "

type (
	// Category is the closed set of transaction kinds.
	Category string

	Role string

	// Transaction is the only ledger entity. Amount is in whole currency
	// units; a negative amount is only meaningful for Saving (a withdrawal).
	// An empty ProjectID places the row in its author's personal ledger.
	Transaction struct {
		ID          string
		Amount      int64
		Category    Category
		Description string
		Date        time.Time
		ProjectID   string
		UserID      string
		CreatedAt   time.Time

		// Author is resolved by listers that join the user table.
		Author string
	}

	// TransactionPatch holds the mutable fields of a transaction. Nil fields
	// are left untouched.
	TransactionPatch struct {
		Amount      *int64
		Category    *Category
		Description *string
		Date        *time.Time
	}

	Project struct {
		ID        string
		Name      string
		OwnerID   string
		CreatedAt time.Time
	}

	// ProjectDetails is the list view of a project for one member.
	ProjectDetails struct {
		Project
		Role                Role
		OwnerName           string
		OwnerUsername       string
		LastTransactionDate *time.Time
	}

	Member struct {
		ProjectID string
		UserID    string
		Role      Role
	}

	User struct {
		ID           string
		Email        string
		Username     string
		FullName     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Session identifies the caller of a service operation. It is passed
	// explicitly rather than read from global state.
	Session struct {
		UserID   string
		Username string
	}

	// Budget is a per-month spending ceiling override. A personal ledger's
	// budget has an empty ProjectID and its owner's UserID.
	Budget struct {
		ProjectID string
		UserID    string
		Month     Month
		Amount    int64
	}
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{Living, Playing, Saving, Income}
}

// ExpenseCategories lists the categories that count as spending.
func ExpenseCategories() []Category {
	return []Category{Living, Playing, Saving}
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "living":
		return Living, nil
	case "playing":
		return Playing, nil
	case "saving":
		return Saving, nil
	case "income":
		return Income, nil
	}
	return "", Invalid(ErrInvalidCategory)
}

func (c Category) String() string { return string(c) }

func (c Category) Valid() bool {
	switch c {
	case Living, Playing, Saving, Income:
		return true
	default:
		return false
	}
}

// IsIncome reports whether the category adds to the balance.
func (c Category) IsIncome() bool { return c == Income }

// Fundable reports whether an expense in this category may be paid from savings.
func (c Category) Fundable() bool {
	switch c {
	case Living, Playing:
		return true
	default:
		return false
	}
}

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// IsWithdrawal reports whether t draws from savings.
func (t Transaction) IsWithdrawal() bool {
	return t.Category == Saving && t.Amount < 0
}

// Validate checks a transaction as submitted by a user.
func (t Transaction) Validate() error {
	if !t.Category.Valid() {
		return Invalid(ErrInvalidCategory)
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if t.Amount <= 0 {
		return Invalid(ErrInvalidAmount)
	}
	if t.Date.IsZero() {
		return Invalid(ErrInvalidDate)
	}
	return nil
}

// Validate checks the non-nil fields of a patch.
func (p TransactionPatch) Validate() error {
	if p.IsEmpty() {
		return Invalid(errors.New("nothing to update"))
	}
	if p.Category != nil && !p.Category.Valid() {
		return Invalid(ErrInvalidCategory)
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Amount != nil && *p.Amount <= 0 {
		return Invalid(ErrInvalidAmount)
	}
	if p.Date != nil && p.Date.IsZero() {
		return Invalid(ErrInvalidDate)
	}
	return nil
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

// Apply returns t with the patch applied. ID and ownership are never touched.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = p.Date.UTC()
	}
	return t
}

func validateDescription(d string) error {
	if len(strings.TrimSpace(d)) == 0 {
		return Invalid(ErrEmptyDescription)
	}
	if len(d) > MaxDescriptionLength {
		return Invalid(ErrDescriptionTooLong)
	}
	// CSV readers fold \r\n into \n, so a stored \r would not survive export.
	if strings.ContainsRune(d, '\r') {
		return Invalid(ErrCarriageReturn)
	}
	return nil
}

// DisplayName picks the best human label for a user.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}
