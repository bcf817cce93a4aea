package dto

import (
	"time"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// MemberResponse represents a member in API responses.
type MemberResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemberFromDomain converts a domain member to a response.
func MemberFromDomain(m *domain.Member) *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string          `json:"token"`
	User  *MemberResponse `json:"user"`
}

// AuthFromSession converts a session to a response.
func AuthFromSession(s *usecase.Session) *AuthResponse {
	return &AuthResponse{Token: s.Token, User: MemberFromDomain(s.Member)}
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedBy string    `json:"createdBy"`
	Version   int64     `json:"version"`
	MemberIDs []string  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GroupFromDomain converts a domain group to a response.
func GroupFromDomain(g *domain.Group) *GroupResponse {
	memberIDs := g.MemberIDs
	if memberIDs == nil {
		memberIDs = []string{}
	}
	return &GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		CreatedBy: g.CreatedBy,
		Version:   g.Version,
		MemberIDs: memberIDs,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// GroupsFromDomain converts domain groups to responses.
func GroupsFromDomain(groups []*domain.Group) []*GroupResponse {
	result := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		result[i] = GroupFromDomain(g)
	}
	return result
}

// SplitResponse is one debtor's share of an expense.
type SplitResponse struct {
	MemberID string `json:"memberId"`
	Amount   Amount `json:"amount"`
	Settled  bool   `json:"settled"`
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"groupId"`
	Description string          `json:"description"`
	Amount      Amount          `json:"amount"`
	Currency    string          `json:"currency"`
	PaidByID    string          `json:"paidById"`
	SplitType   string          `json:"splitType"`
	Splits      []SplitResponse `json:"splits"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ExpenseFromDomain converts a domain expense to a response.
func ExpenseFromDomain(e *domain.Expense) *ExpenseResponse {
	splits := make([]SplitResponse, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = SplitResponse{MemberID: s.DebtorID, Amount: NewAmount(s.Amount), Settled: s.Settled}
	}
	return &ExpenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      NewAmount(e.Amount),
		Currency:    e.Currency,
		PaidByID:    e.PaidByID,
		SplitType:   string(e.SplitType),
		Splits:      splits,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

// ExpensesFromDomain converts domain expenses to responses.
func ExpensesFromDomain(expenses []*domain.Expense) []*ExpenseResponse {
	result := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		result[i] = ExpenseFromDomain(e)
	}
	return result
}

// SettlementResponse represents a settlement in API responses.
type SettlementResponse struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"groupId"`
	PayerID   string     `json:"payerId"`
	PayeeID   string     `json:"payeeId"`
	Amount    Amount     `json:"amount"`
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	Note      string     `json:"note,omitempty"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SettlementFromDomain converts a domain settlement to a response.
func SettlementFromDomain(s *domain.Settlement) *SettlementResponse {
	return &SettlementResponse{
		ID:        s.ID,
		GroupID:   s.GroupID,
		PayerID:   s.PayerID,
		PayeeID:   s.PayeeID,
		Amount:    NewAmount(s.Amount),
		Currency:  s.Currency,
		Status:    string(s.Status),
		Note:      s.Note,
		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
		SettledAt: s.SettledAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SettlementsFromDomain converts domain settlements to responses.
func SettlementsFromDomain(settlements []*domain.Settlement) []*SettlementResponse {
	result := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		result[i] = SettlementFromDomain(s)
	}
	return result
}

// PartyResponse identifies one side of a suggested transfer.
type PartyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransferResponse is one suggested payment.
type TransferResponse struct {
	From   PartyResponse `json:"from"`
	To     PartyResponse `json:"to"`
	Amount Amount        `json:"amount"`
}

// OptimizationResponse is the payload of an optimize call.
type OptimizationResponse struct {
	GroupID               string             `json:"groupId"`
	Version               int64              `json:"version"`
	Currency              string             `json:"currency"`
	OriginalTransactions  int                `json:"originalTransactions"`
	OptimizedTransactions int                `json:"optimizedTransactions"`
	Savings               int                `json:"savings"`
	Transactions          []TransferResponse `json:"transactions"`
}

// OptimizationFromDomain converts an optimization to a response.
func OptimizationFromDomain(o *domain.Optimization) *OptimizationResponse {
	transfers := make([]TransferResponse, len(o.Transfers))
	for i, t := range o.Transfers {
		transfers[i] = TransferResponse{
			From:   PartyResponse{ID: t.FromMemberID, Name: t.FromName},
			To:     PartyResponse{ID: t.ToMemberID, Name: t.ToName},
			Amount: NewAmount(t.Amount),
		}
	}
	return &OptimizationResponse{
		GroupID:               o.GroupID,
		Version:               o.Version,
		Currency:              o.Currency,
		OriginalTransactions:  o.OriginalTransactionCount,
		OptimizedTransactions: o.OptimizedTransactionCount,
		Savings:               o.Savings,
		Transactions:          transfers,
	}
}

// CounterpartyResponse identifies the other member in a relationship.
type CounterpartyResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RelationshipResponse is what the caller and one counterparty owe each other.
type RelationshipResponse struct {
	User    CounterpartyResponse `json:"user"`
	YouOwe  Amount               `json:"youOwe"`
	OwesYou Amount               `json:"owesYou"`
}

// BalanceResponse is the payload of a balance call.
type BalanceResponse struct {
	TotalOwed     Amount                 `json:"totalOwed"`
	TotalOwing    Amount                 `json:"totalOwing"`
	NetBalance    Amount                 `json:"netBalance"`
	Currency      string                 `json:"currency"`
	Relationships []RelationshipResponse `json:"relationships"`
}

// BalanceFromDomain converts a balance summary to a response.
func BalanceFromDomain(b *domain.BalanceSummary) *BalanceResponse {
	rels := make([]RelationshipResponse, 0, len(b.Relationships))
	for _, r := range b.Relationships {
		var party CounterpartyResponse
		if r.Member != nil {
			party = CounterpartyResponse{ID: r.Member.ID, Name: r.Member.Name, Email: r.Member.Email}
		}
		rels = append(rels, RelationshipResponse{
			User:    party,
			YouOwe:  NewAmount(r.YouOwe),
			OwesYou: NewAmount(r.OwesYou),
		})
	}
	return &BalanceResponse{
		TotalOwed:     NewAmount(b.TotalOwed),
		TotalOwing:    NewAmount(b.TotalOwing),
		NetBalance:    NewAmount(b.NetBalance),
		Currency:      b.Currency,
		Relationships: rels,
	}
}
