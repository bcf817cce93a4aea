package domain

import "github.com/shopspring/decimal"

// Transfer is a proposed, not yet executed payment suggested by the optimizer.
type Transfer struct {
	FromMemberID string
	FromName     string
	ToMemberID   string
	ToName       string
	Amount       decimal.Decimal
}

// Optimization is the optimizer output for one group snapshot.
type Optimization struct {
	GroupID                   string
	Version                   int64
	Currency                  string
	Transfers                 []Transfer
	OriginalTransactionCount  int
	OptimizedTransactionCount int
	Savings                   int
}

// Relationship is what the viewing member and one counterparty owe each
// other, summed over the groups in scope.
type Relationship struct {
	Member  *Member
	YouOwe  decimal.Decimal
	OwesYou decimal.Decimal
}

// BalanceSummary is a member's position across one or more groups of the
// same currency.
type BalanceSummary struct {
	MemberID      string
	Currency      string
	TotalOwed     decimal.Decimal // owed to the member
	TotalOwing    decimal.Decimal // owed by the member
	NetBalance    decimal.Decimal // TotalOwed - TotalOwing
	Relationships []Relationship
}
