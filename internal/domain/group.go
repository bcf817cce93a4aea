package domain

import (
	"slices"
	"time"
)

// Group is a set of members sharing expenses in a single currency.
type Group struct {
	ID        string
	Name      string
	Currency  string
	CreatedBy string
	// Version increases with every write that changes ledger inputs. A
	// ledger snapshot is fully described by (ID, Version).
	Version   int64
	MemberIDs []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMember reports whether memberID is on the roster.
func (g *Group) HasMember(memberID string) bool {
	return slices.Contains(g.MemberIDs, memberID)
}

// Validate checks name and currency.
func (g *Group) Validate() error {
	if err := ValidateName(g.Name); err != nil {
		return NewInvalidInput("name", "%v", err)
	}
	return ValidateCurrency(g.Currency)
}
