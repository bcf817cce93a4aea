package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSettlement_Validate(t *testing.T) {
	tests := []struct {
		name        string
		payerID     string
		payeeID     string
		amount      decimal.Decimal
		currency    string
		expectError error
		invalid     bool
	}{
		{
			name:     "valid settlement",
			payerID:  "member-1",
			payeeID:  "member-2",
			amount:   decimal.NewFromInt(100),
			currency: "USD",
		},
		{
			name:        "same member",
			payerID:     "member-1",
			payeeID:     "member-1",
			amount:      decimal.NewFromInt(100),
			currency:    "USD",
			expectError: ErrSelfSettlement,
		},
		{
			name:     "missing payee",
			payerID:  "member-1",
			amount:   decimal.NewFromInt(100),
			currency: "USD",
			invalid:  true,
		},
		{
			name:     "zero amount",
			payerID:  "member-1",
			payeeID:  "member-2",
			amount:   decimal.Zero,
			currency: "USD",
			invalid:  true,
		},
		{
			name:     "negative amount",
			payerID:  "member-1",
			payeeID:  "member-2",
			amount:   decimal.NewFromInt(-100),
			currency: "USD",
			invalid:  true,
		},
		{
			name:     "unknown currency",
			payerID:  "member-1",
			payeeID:  "member-2",
			amount:   decimal.NewFromInt(1),
			currency: "XYZ",
			invalid:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settlement{
				PayerID:  tt.payerID,
				PayeeID:  tt.payeeID,
				Amount:   tt.amount,
				Currency: tt.currency,
			}

			err := s.Validate()

			switch {
			case tt.expectError != nil:
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			case tt.invalid:
				if !IsInvalidInput(err) {
					t.Errorf("expected InvalidInputError, got %v", err)
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSettlement_StatusTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("complete pending", func(t *testing.T) {
		s := &Settlement{Status: SettlementStatusPending}
		if err := s.Complete(now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Status != SettlementStatusCompleted {
			t.Errorf("expected COMPLETED, got %s", s.Status)
		}
		if s.SettledAt == nil || !s.SettledAt.Equal(now) {
			t.Errorf("expected SettledAt %v, got %v", now, s.SettledAt)
		}
	})

	t.Run("cancel pending", func(t *testing.T) {
		s := &Settlement{Status: SettlementStatusPending}
		if err := s.Cancel(now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Status != SettlementStatusCancelled {
			t.Errorf("expected CANCELLED, got %s", s.Status)
		}
		if s.SettledAt != nil {
			t.Errorf("expected no SettledAt, got %v", s.SettledAt)
		}
	})

	for _, from := range []SettlementStatus{SettlementStatusCompleted, SettlementStatusCancelled} {
		t.Run("from "+string(from), func(t *testing.T) {
			s := &Settlement{Status: from}
			if err := s.Complete(now); !errors.Is(err, ErrInvalidStatusTransition) {
				t.Errorf("Complete: expected ErrInvalidStatusTransition, got %v", err)
			}
			if err := s.Cancel(now); !errors.Is(err, ErrInvalidStatusTransition) {
				t.Errorf("Cancel: expected ErrInvalidStatusTransition, got %v", err)
			}
			if s.Status != from {
				t.Errorf("status changed to %s", s.Status)
			}
		})
	}
}

func TestSettlementStatus_IsValid(t *testing.T) {
	if !SettlementStatusPending.IsValid() {
		t.Error("PENDING should be valid")
	}
	if SettlementStatus("DONE").IsValid() {
		t.Error("DONE should be invalid")
	}
}
