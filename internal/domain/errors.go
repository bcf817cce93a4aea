package domain

import (
	"errors"
	"fmt"
)

var (
	// Settlement errors
	ErrInvalidStatusTransition = errors.New("invalid settlement status transition")
	ErrSelfSettlement          = errors.New("payer and payee must differ")
	ErrPendingSettlements      = errors.New("group has pending settlements")

	// Group errors
	ErrNotGroupMember = errors.New("member does not belong to group")
	ErrAlreadyMember  = errors.New("member already belongs to group")

	// Amount errors
	ErrInvalidAmount = errors.New("amount must be positive")
)

// InvalidInputError reports malformed or inconsistent ledger input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// NewInvalidInput builds an InvalidInputError with a formatted reason.
func NewInvalidInput(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnbalancedInputError means net positions did not sum to zero before
// optimization. It always indicates a bug upstream and is never corrected.
type UnbalancedInputError struct {
	Residual int64 // sum of all positions, in minor units
}

func (e *UnbalancedInputError) Error() string {
	return fmt.Sprintf("unbalanced input: net positions sum to %d minor units, want 0", e.Residual)
}

// NotFoundError reports an unknown group, settlement, expense or member.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsInvalidInput reports whether err wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsUnbalanced reports whether err wraps an UnbalancedInputError.
func IsUnbalanced(err error) bool {
	var target *UnbalancedInputError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
