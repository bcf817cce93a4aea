package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateName("Weekend in Lisbon"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateName("   ")
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxNameLength+1)
		err := ValidateName(tooLong)
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName, got %v", err)
		}
	})
}

func TestValidateCurrency(t *testing.T) {
	t.Parallel()

	if err := ValidateCurrency("usd"); err != nil {
		t.Fatalf("expected uppercase conversion to succeed, got %v", err)
	}

	if err := ValidateCurrency("XYZ"); !IsInvalidInput(err) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	valid := decimal.NewFromFloat(100.25)
	if err := ValidateAmount(valid); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	huge := decimal.RequireFromString(MaxAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(huge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	if err := ValidateEmail("USER@example.com"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}

	if err := ValidateEmail("invalid-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if err := ValidatePassword("StrongPass1"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}

	if err := ValidatePassword("short1A"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak for short password, got %v", err)
	}

	if err := ValidatePassword(strings.Repeat("A", MaxPasswordLength+1)); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak for overly long password, got %v", err)
	}

	if err := ValidatePassword("NoDigitsHere"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak for missing digits, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{limit: 0, offset: 0, wantLimit: 20, wantOffset: 0},
		{limit: 500, offset: 10, wantLimit: 100, wantOffset: 10},
		{limit: 5, offset: -3, wantLimit: 5, wantOffset: 0},
	}

	for _, tt := range tests {
		limit, offset := ValidatePagination(tt.limit, tt.offset)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Errorf("ValidatePagination(%d, %d) = (%d, %d), want (%d, %d)",
				tt.limit, tt.offset, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestGroup_Validate(t *testing.T) {
	t.Parallel()

	g := &Group{Name: "Flat 4B", Currency: "eur", MemberIDs: []string{"m1", "m2"}}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected valid group, got %v", err)
	}
	if !g.HasMember("m2") || g.HasMember("m3") {
		t.Errorf("HasMember returned wrong result for roster %v", g.MemberIDs)
	}

	g.Currency = "???"
	if err := g.Validate(); !IsInvalidInput(err) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestExpense_Validate(t *testing.T) {
	t.Parallel()

	base := Expense{
		Description: "Groceries",
		Amount:      decimal.NewFromInt(60),
		Currency:    "USD",
		PaidByID:    "m1",
		SplitType:   SplitTypeEqual,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid expense, got %v", err)
	}

	broken := []func(e *Expense){
		func(e *Expense) { e.Description = "" },
		func(e *Expense) { e.PaidByID = "" },
		func(e *Expense) { e.SplitType = "percent" },
		func(e *Expense) { e.Amount = decimal.NewFromInt(-1) },
	}
	for i, mutate := range broken {
		e := base
		mutate(&e)
		if err := e.Validate(); !IsInvalidInput(err) {
			t.Errorf("case %d: expected InvalidInputError, got %v", i, err)
		}
	}
}
