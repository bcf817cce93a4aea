package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/infrastructure/metrics"
)

// ExpenseUseCase records expenses and splits them among group members.
type ExpenseUseCase struct {
	txManager   TransactionManager
	groupRepo   GroupRepository
	expenseRepo ExpenseRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewExpenseUseCase creates a new ExpenseUseCase.
func NewExpenseUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	expenseRepo ExpenseRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *ExpenseUseCase {
	return &ExpenseUseCase{
		txManager:   txManager,
		groupRepo:   groupRepo,
		expenseRepo: expenseRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// SplitInput is one member's exact share.
type SplitInput struct {
	MemberID string
	Amount   decimal.Decimal
}

// RecordExpenseInput represents input for recording an expense.
type RecordExpenseInput struct {
	GroupID     string
	Description string
	Amount      decimal.Decimal
	Currency    string
	PaidByID    string
	SplitType   domain.SplitType
	// ParticipantIDs limits an equal split; empty means the whole roster.
	ParticipantIDs []string
	// Splits is required for exact splits and must sum to Amount.
	Splits  []SplitInput
	ActorID string
}

// RecordExpense stores an expense with its splits and bumps the group's
// ledger version.
func (uc *ExpenseUseCase) RecordExpense(ctx context.Context, input RecordExpenseInput) (*domain.Expense, error) {
	if input.PaidByID == "" {
		input.PaidByID = input.ActorID
	}
	if input.SplitType == "" {
		input.SplitType = domain.SplitTypeEqual
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	group, err := uc.groupRepo.GetByIDForUpdate(txCtx, tx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, input.ActorID); err != nil {
		return nil, err
	}

	currency := domain.NormalizeCurrency(input.Currency)
	if currency == "" {
		currency = group.Currency
	}
	if currency != group.Currency {
		return nil, domain.NewInvalidInput("currency", "%s does not match group currency %s", currency, group.Currency)
	}

	now := time.Now().UTC()
	expense := &domain.Expense{
		ID:          uc.idGen.Generate(),
		GroupID:     group.ID,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Currency:    currency,
		PaidByID:    input.PaidByID,
		SplitType:   input.SplitType,
		CreatedBy:   input.ActorID,
		CreatedAt:   now,
	}

	if err := expense.Validate(); err != nil {
		return nil, err
	}
	if !group.HasMember(expense.PaidByID) {
		return nil, domain.NewInvalidInput("paidById", "member %q is not in group %s", expense.PaidByID, group.ID)
	}

	total, err := domain.ToMinorUnits(expense.Amount, currency)
	if err != nil {
		return nil, err
	}

	var shares map[string]int64
	switch expense.SplitType {
	case domain.SplitTypeEqual:
		shares, err = equalShares(group, input.ParticipantIDs, total)
	case domain.SplitTypeExact:
		shares, err = exactShares(group, input.Splits, total, currency)
	}
	if err != nil {
		return nil, err
	}

	debtors := make([]string, 0, len(shares))
	for id := range shares {
		debtors = append(debtors, id)
	}
	slices.Sort(debtors)

	for _, id := range debtors {
		if shares[id] == 0 {
			continue
		}
		expense.Splits = append(expense.Splits, domain.ExpenseSplit{
			ExpenseID: expense.ID,
			DebtorID:  id,
			PayerID:   expense.PaidByID,
			Amount:    domain.FromMinorUnits(shares[id], currency),
			Currency:  currency,
		})
	}

	if err := uc.expenseRepo.Create(txCtx, tx, expense); err != nil {
		return nil, err
	}

	if _, err := uc.groupRepo.BumpVersion(txCtx, tx, group.ID, now); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   expense.ID,
		AggregateType: domain.AggregateTypeExpense,
		EventType:     domain.EventTypeExpenseRecorded,
		Payload: map[string]any{
			"expense_id": expense.ID,
			"group_id":   expense.GroupID,
			"paid_by_id": expense.PaidByID,
			"amount":     expense.Amount.String(),
			"currency":   expense.Currency,
			"splits":     len(expense.Splits),
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ExpensesRecorded.Inc()
	}

	return expense, nil
}

// ListExpenses lists a group's expenses, newest first.
func (uc *ExpenseUseCase) ListExpenses(ctx context.Context, groupID, actorID string, limit, offset int) ([]*domain.Expense, error) {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, actorID); err != nil {
		return nil, err
	}

	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.expenseRepo.ListByGroup(ctx, groupID, limit, offset)
}

// equalShares divides total among participants. Remainder units go one each
// to participants in ascending id order.
func equalShares(group *domain.Group, participantIDs []string, total int64) (map[string]int64, error) {
	participants := participantIDs
	if len(participants) == 0 {
		participants = group.MemberIDs
	}
	participants = slices.Clone(participants)
	slices.Sort(participants)
	participants = slices.Compact(participants)

	for _, id := range participants {
		if !group.HasMember(id) {
			return nil, domain.NewInvalidInput("participantIds", "member %q is not in group %s", id, group.ID)
		}
	}

	amounts := domain.SplitEqually(total, len(participants))
	shares := make(map[string]int64, len(participants))
	for i, id := range participants {
		shares[id] = amounts[i]
	}
	return shares, nil
}

func exactShares(group *domain.Group, splits []SplitInput, total int64, currency string) (map[string]int64, error) {
	if len(splits) == 0 {
		return nil, domain.NewInvalidInput("splits", "exact split requires at least one share")
	}

	shares := make(map[string]int64, len(splits))
	var sum int64
	for _, s := range splits {
		if !group.HasMember(s.MemberID) {
			return nil, domain.NewInvalidInput("splits", "member %q is not in group %s", s.MemberID, group.ID)
		}
		if _, dup := shares[s.MemberID]; dup {
			return nil, domain.NewInvalidInput("splits", "member %q appears twice", s.MemberID)
		}

		units, err := domain.ToMinorUnits(s.Amount, currency)
		if err != nil {
			return nil, err
		}
		if units < 0 {
			return nil, domain.NewInvalidInput("splits", "share for %q is negative", s.MemberID)
		}

		shares[s.MemberID] = units
		sum += units
	}

	if sum != total {
		return nil, domain.NewInvalidInput("splits", "shares sum to %s, expense is %s",
			domain.FromMinorUnits(sum, currency), domain.FromMinorUnits(total, currency))
	}

	return shares, nil
}
