package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/infrastructure/metrics"
)

// GroupUseCase handles groups and their rosters.
type GroupUseCase struct {
	txManager  TransactionManager
	groupRepo  GroupRepository
	memberRepo MemberRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

// NewGroupUseCase creates a new GroupUseCase.
func NewGroupUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	memberRepo MemberRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *GroupUseCase {
	return &GroupUseCase{
		txManager:  txManager,
		groupRepo:  groupRepo,
		memberRepo: memberRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    metrics,
	}
}

// CreateGroupInput represents input for creating a group.
type CreateGroupInput struct {
	Name      string
	Currency  string
	MemberIDs []string
	ActorID   string
}

// CreateGroup creates a group whose roster is the creator plus MemberIDs.
func (uc *GroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error) {
	roster := []string{input.ActorID}
	for _, id := range input.MemberIDs {
		if id != "" && !slices.Contains(roster, id) {
			roster = append(roster, id)
		}
	}
	if len(roster) > domain.MaxGroupMembers {
		return nil, domain.NewInvalidInput("memberIds", "a group holds at most %d members", domain.MaxGroupMembers)
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:        uc.idGen.Generate(),
		Name:      strings.TrimSpace(input.Name),
		Currency:  domain.NormalizeCurrency(input.Currency),
		CreatedBy: input.ActorID,
		Version:   1,
		MemberIDs: roster,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := group.Validate(); err != nil {
		return nil, err
	}

	members, err := uc.memberRepo.GetByIDs(ctx, roster)
	if err != nil {
		return nil, err
	}
	if len(members) != len(roster) {
		for _, id := range roster {
			if !slices.ContainsFunc(members, func(m *domain.Member) bool { return m.ID == id }) {
				return nil, domain.NewInvalidInput("memberIds", "member %q does not exist", id)
			}
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.groupRepo.Create(txCtx, tx, group); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   group.ID,
		AggregateType: domain.AggregateTypeGroup,
		EventType:     domain.EventTypeGroupCreated,
		Payload: map[string]any{
			"group_id":   group.ID,
			"name":       group.Name,
			"currency":   group.Currency,
			"member_ids": group.MemberIDs,
			"created_by": group.CreatedBy,
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
		uc.metrics.GroupsCreated.Inc()
	}

	return group, nil
}

// GetGroup returns a group the actor belongs to.
func (uc *GroupUseCase) GetGroup(ctx context.Context, id, actorID string) (*domain.Group, error) {
	group, err := uc.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, actorID); err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroupsForMember lists the groups a member belongs to.
func (uc *GroupUseCase) ListGroupsForMember(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.groupRepo.ListByMember(ctx, memberID, limit, offset)
}

// AddMember adds memberID to the group's roster.
func (uc *GroupUseCase) AddMember(ctx context.Context, groupID, memberID, actorID string) (*domain.Group, error) {
	if _, err := uc.memberRepo.GetByID(ctx, memberID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	group, err := uc.groupRepo.GetByIDForUpdate(txCtx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, actorID); err != nil {
		return nil, err
	}
	if group.HasMember(memberID) {
		return nil, domain.ErrAlreadyMember
	}
	if len(group.MemberIDs) >= domain.MaxGroupMembers {
		return nil, domain.NewInvalidInput("memberId", "a group holds at most %d members", domain.MaxGroupMembers)
	}

	now := time.Now().UTC()
	if err := uc.groupRepo.AddMember(txCtx, tx, groupID, memberID, now); err != nil {
		return nil, err
	}

	version, err := uc.groupRepo.BumpVersion(txCtx, tx, groupID, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	group.MemberIDs = append(group.MemberIDs, memberID)
	group.Version = version
	group.UpdatedAt = now

	return group, nil
}
