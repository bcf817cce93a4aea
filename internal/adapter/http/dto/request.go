package dto

import (
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// RegisterRequest represents a request to create a member account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterRequest) ToUseCaseInput() usecase.RegisterInput {
	return usecase.RegisterInput{
		Email:    r.Email,
		Name:     r.Name,
		Password: r.Password,
	}
}

// LoginRequest represents a request to sign in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *LoginRequest) ToUseCaseInput() usecase.AuthenticateInput {
	return usecase.AuthenticateInput{
		Email:    r.Email,
		Password: r.Password,
	}
}

// CreateGroupRequest represents a request to create a group.
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	Currency  string   `json:"currency"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

// ToUseCaseInput converts to use case input on behalf of actorID.
func (r *CreateGroupRequest) ToUseCaseInput(actorID string) usecase.CreateGroupInput {
	return usecase.CreateGroupInput{
		Name:      r.Name,
		Currency:  r.Currency,
		MemberIDs: r.MemberIDs,
		ActorID:   actorID,
	}
}

// AddMemberRequest represents a request to add a member to a group.
type AddMemberRequest struct {
	MemberID string `json:"memberId"`
}

// SplitRequest is one member's share of an exact split.
type SplitRequest struct {
	MemberID string `json:"memberId"`
	Amount   Amount `json:"amount"`
}

// RecordExpenseRequest represents a request to record an expense.
type RecordExpenseRequest struct {
	GroupID        string         `json:"groupId"`
	Description    string         `json:"description"`
	Amount         Amount         `json:"amount"`
	Currency       string         `json:"currency,omitempty"`
	PaidByID       string         `json:"paidById,omitempty"`
	SplitType      string         `json:"splitType,omitempty"`
	ParticipantIDs []string       `json:"participantIds,omitempty"`
	Splits         []SplitRequest `json:"splits,omitempty"`
}

// ToUseCaseInput converts to use case input. The payer defaults to the actor
// and the split type to an equal split.
func (r *RecordExpenseRequest) ToUseCaseInput(actorID string) usecase.RecordExpenseInput {
	paidBy := r.PaidByID
	if paidBy == "" {
		paidBy = actorID
	}

	splitType := domain.SplitType(r.SplitType)
	if splitType == "" {
		splitType = domain.SplitTypeEqual
	}

	splits := make([]usecase.SplitInput, len(r.Splits))
	for i, s := range r.Splits {
		splits[i] = usecase.SplitInput{MemberID: s.MemberID, Amount: s.Amount.Decimal}
	}

	return usecase.RecordExpenseInput{
		GroupID:        r.GroupID,
		Description:    r.Description,
		Amount:         r.Amount.Decimal,
		Currency:       r.Currency,
		PaidByID:       paidBy,
		SplitType:      splitType,
		ParticipantIDs: r.ParticipantIDs,
		Splits:         splits,
		ActorID:        actorID,
	}
}

// GroupRequest names the group an optimize or accept call operates on.
type GroupRequest struct {
	GroupID string `json:"groupId"`
}

// CreateSettlementRequest represents a request to record a settlement.
type CreateSettlementRequest struct {
	GroupID  string `json:"groupId"`
	PayerID  string `json:"payerId,omitempty"`
	PayeeID  string `json:"payeeId"`
	Amount   Amount `json:"amount"`
	Currency string `json:"currency,omitempty"`
	Note     string `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input on behalf of actorID.
func (r *CreateSettlementRequest) ToUseCaseInput(actorID string) usecase.CreateSettlementInput {
	return usecase.CreateSettlementInput{
		GroupID:  r.GroupID,
		PayerID:  r.PayerID,
		PayeeID:  r.PayeeID,
		Amount:   r.Amount.Decimal,
		Currency: r.Currency,
		Note:     r.Note,
		ActorID:  actorID,
	}
}

// SettlementActionRequest names the settlement to complete or cancel.
type SettlementActionRequest struct {
	SettlementID string `json:"settlementId"`
}
