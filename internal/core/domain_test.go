package core

import (
	"errors"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	good := Transaction{Amount: 100, Category: Living, Description: "rent", Date: now}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: 100, Category: "Food", Description: "x", Date: now},
		{Amount: 100, Category: Living, Description: "   ", Date: now},
		{Amount: 0, Category: Living, Description: "x", Date: now},
		{Amount: -5, Category: Playing, Description: "x", Date: now},
		{Amount: 1, Category: Income, Description: "x"},
		{Amount: 1, Category: Living, Description: "a\r\nb", Date: now},
	}
	for i, tx := range bads {
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %T", i, err)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"living", "PLAYING", " Saving ", "Income"} {
		if _, err := ParseCategory(in); err != nil {
			t.Fatalf("%q: %v", in, err)
		}
	}
	if _, err := ParseCategory("Food"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCategoryFundable(t *testing.T) {
	cases := map[Category]bool{Living: true, Playing: true, Saving: false, Income: false}
	for c, want := range cases {
		if got := c.Fundable(); got != want {
			t.Fatalf("%s.Fundable() = %v, want %v", c, got, want)
		}
	}
}

func TestPatchApplyKeepsOwnership(t *testing.T) {
	orig := Transaction{ID: "a", ProjectID: "p", UserID: "u", Amount: 10, Category: Living, Description: "x"}
	amount := int64(25)
	cat := Playing
	out := TransactionPatch{Amount: &amount, Category: &cat}.Apply(orig)
	if out.ID != "a" || out.ProjectID != "p" || out.UserID != "u" {
		t.Fatalf("ownership changed: %+v", out)
	}
	if out.Amount != 25 || out.Category != Playing || out.Description != "x" {
		t.Fatalf("unexpected patch result: %+v", out)
	}
}

func TestPatchValidate(t *testing.T) {
	if err := (TransactionPatch{}).Validate(); err == nil {
		t.Fatalf("expected error for empty patch")
	}
	empty := ""
	if err := (TransactionPatch{Description: &empty}).Validate(); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestBackendWrapsOnlyForeignErrors(t *testing.T) {
	if Backend("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	var be *BackendError
	if !errors.As(Backend("insert", errors.New("disk full")), &be) {
		t.Fatalf("expected BackendError")
	}
	if errors.As(Backend("insert", ErrNotFound), &be) {
		t.Fatalf("domain errors must not be wrapped")
	}
}
