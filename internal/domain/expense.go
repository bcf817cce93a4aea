package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType controls how an expense amount is shared.
type SplitType string

const (
	SplitTypeEqual SplitType = "equal"
	SplitTypeExact SplitType = "exact"
)

// IsValid reports whether t is a known split type.
func (t SplitType) IsValid() bool {
	return t == SplitTypeEqual || t == SplitTypeExact
}

// Expense is a payment made by one member on behalf of several.
type Expense struct {
	ID          string
	GroupID     string
	Description string
	Amount      decimal.Decimal
	Currency    string
	PaidByID    string
	SplitType   SplitType
	Splits      []ExpenseSplit
	CreatedBy   string
	CreatedAt   time.Time
}

// ExpenseSplit is one member's owed share of an expense. The creditor is
// always the expense payer.
type ExpenseSplit struct {
	ExpenseID string
	DebtorID  string
	PayerID   string
	Amount    decimal.Decimal
	Currency  string
	// Settled marks a share cleared outside the settlement flow. The API
	// never sets it; rows flipped directly in storage drop out of the ledger.
	Settled   bool
}

// Validate checks the expense header. Splits are checked by the use case,
// which knows the group roster.
func (e *Expense) Validate() error {
	if err := ValidateName(e.Description); err != nil {
		return NewInvalidInput("description", "%v", err)
	}
	if e.PaidByID == "" {
		return NewInvalidInput("paidById", "is required")
	}
	if !e.SplitType.IsValid() {
		return NewInvalidInput("splitType", "unknown split type %q", e.SplitType)
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return NewInvalidInput("amount", "%v", err)
	}
	return nil
}
