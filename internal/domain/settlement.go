package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "PENDING"
	SettlementStatusCompleted SettlementStatus = "COMPLETED"
	SettlementStatusCancelled SettlementStatus = "CANCELLED"
)

// IsValid reports whether s is a known status.
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusCompleted, SettlementStatusCancelled:
		return true
	}
	return false
}

// Settlement is a payment from payer to payee that reduces what the payer
// owes. It only affects balances once COMPLETED.
type Settlement struct {
	ID        string
	GroupID   string
	PayerID   string
	PayeeID   string
	Amount    decimal.Decimal
	Currency  string
	Status    SettlementStatus
	Note      string
	CreatedBy string
	CreatedAt time.Time
	SettledAt *time.Time
	UpdatedAt time.Time
}

// Validate checks the settlement fields that do not depend on the roster.
func (s *Settlement) Validate() error {
	if s.PayerID == "" || s.PayeeID == "" {
		return NewInvalidInput("payeeId", "payer and payee are required")
	}
	if s.PayerID == s.PayeeID {
		return ErrSelfSettlement
	}
	if err := ValidateAmount(s.Amount); err != nil {
		return NewInvalidInput("amount", "%v", err)
	}
	return ValidateCurrency(s.Currency)
}

// Complete moves a pending settlement to COMPLETED.
func (s *Settlement) Complete(at time.Time) error {
	if s.Status != SettlementStatusPending {
		return ErrInvalidStatusTransition
	}
	s.Status = SettlementStatusCompleted
	s.SettledAt = &at
	s.UpdatedAt = at
	return nil
}

// Cancel moves a pending settlement to CANCELLED.
func (s *Settlement) Cancel(at time.Time) error {
	if s.Status != SettlementStatusPending {
		return ErrInvalidStatusTransition
	}
	s.Status = SettlementStatusCancelled
	s.UpdatedAt = at
	return nil
}
