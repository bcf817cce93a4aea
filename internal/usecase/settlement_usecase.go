package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/infrastructure/metrics"
	"github.com/iho/gosettle/internal/ledger"
)

// balanceGroupPage is the page size used when listing a member's groups for
// a cross-group balance.
const balanceGroupPage = 100

// SettlementOptions tunes SettlementUseCase. Zero values fall back to the
// package defaults.
type SettlementOptions struct {
	OptimizeTimeout time.Duration
	CacheTTL        time.Duration
}

// SettlementUseCase computes balances and settlement plans and manages the
// settlement lifecycle.
type SettlementUseCase struct {
	txManager      TransactionManager
	retrier        Retrier
	groupRepo      GroupRepository
	memberRepo     MemberRepository
	expenseRepo    ExpenseRepository
	settlementRepo SettlementRepository
	outboxRepo     OutboxRepository
	idGen          IDGenerator
	cache          Cache
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	opts           SettlementOptions
}

// NewSettlementUseCase creates a new SettlementUseCase. cache and metrics may
// be nil.
func NewSettlementUseCase(
	txManager TransactionManager,
	retrier Retrier,
	groupRepo GroupRepository,
	memberRepo MemberRepository,
	expenseRepo ExpenseRepository,
	settlementRepo SettlementRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	cache Cache,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
	opts SettlementOptions,
) *SettlementUseCase {
	if opts.OptimizeTimeout <= 0 {
		opts.OptimizeTimeout = DefaultOptimizeTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultOptimizeCacheTTL
	}

	return &SettlementUseCase{
		txManager:      txManager,
		retrier:        retrier,
		groupRepo:      groupRepo,
		memberRepo:     memberRepo,
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
		outboxRepo:     outboxRepo,
		idGen:          idGen,
		cache:          cache,
		metrics:        metrics,
		logger:         logger.With().Str("component", "settlement").Logger(),
		opts:           opts,
	}
}

// Optimize computes the minimal transfer plan for a group from a single
// consistent snapshot of its ledger inputs.
func (uc *SettlementUseCase) Optimize(ctx context.Context, groupID, actorID string) (*domain.Optimization, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, uc.opts.OptimizeTimeout)
	defer cancel()

	tx, err := uc.txManager.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	group, err := uc.groupRepo.GetByIDTx(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, actorID); err != nil {
		return nil, err
	}

	key := optimizeCacheKey(group.ID, group.Version)
	if cached, ok := uc.cachedOptimization(ctx, key); ok {
		uc.observeOptimize("cache_hit", cached, start)
		return cached, nil
	}

	computed, err := uc.computeTx(ctx, tx, group)
	if err != nil {
		uc.observeOptimize("error", nil, start)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	opt := &computed.Optimization

	uc.storeOptimization(ctx, key, opt)
	uc.observeOptimize("success", opt, start)

	return opt, nil
}

// AcceptOptimization recomputes the plan under SERIALIZABLE isolation and
// stores every transfer as a PENDING settlement.
func (uc *SettlementUseCase) AcceptOptimization(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error) {
	var created []*domain.Settlement

	err := uc.retrier.Retry(ctx, func() error {
		var err error
		created, err = uc.acceptOnce(ctx, groupID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Settlements.WithLabelValues(string(domain.SettlementStatusPending)).Add(float64(len(created)))
	}

	return created, nil
}

func (uc *SettlementUseCase) acceptOnce(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.BeginSerializable(txCtx)
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

	opt, err := uc.computeTx(txCtx, tx, group)
	if err != nil {
		return nil, err
	}
	if opt.Pending > 0 {
		return nil, fmt.Errorf("%w: %d awaiting completion", domain.ErrPendingSettlements, opt.Pending)
	}

	now := time.Now().UTC()
	note := fmt.Sprintf("optimized plan v%d", group.Version)
	created := make([]*domain.Settlement, 0, len(opt.Transfers))

	for _, t := range opt.Transfers {
		s := &domain.Settlement{
			ID:        uc.idGen.Generate(),
			GroupID:   group.ID,
			PayerID:   t.FromMemberID,
			PayeeID:   t.ToMemberID,
			Amount:    t.Amount,
			Currency:  group.Currency,
			Status:    domain.SettlementStatusPending,
			Note:      note,
			CreatedBy: actorID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := uc.settlementRepo.Create(txCtx, tx, s); err != nil {
			return nil, err
		}
		if err := uc.emit(txCtx, tx, s, domain.EventTypeSettlementCreated, now); err != nil {
			return nil, err
		}

		created = append(created, s)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return created, nil
}

// Balance summarizes what memberID owes and is owed. With an empty groupID
// every group of the member is included; those groups must share a currency.
func (uc *SettlementUseCase) Balance(ctx context.Context, memberID, groupID string) (*domain.BalanceSummary, error) {
	var groupIDs []string
	if groupID != "" {
		groupIDs = []string{groupID}
	} else {
		ids, err := uc.memberGroupIDs(ctx, memberID)
		if err != nil {
			return nil, err
		}
		groupIDs = ids
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.BeginSnapshot(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	var (
		currency string
		youOwe   = make(map[string]int64)
		owesYou  = make(map[string]int64)
	)

	for _, id := range groupIDs {
		group, err := uc.groupRepo.GetByIDTx(txCtx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireMember(group, memberID); err != nil {
			return nil, err
		}

		switch {
		case currency == "":
			currency = group.Currency
		case currency != group.Currency:
			return nil, domain.NewInvalidInput("groupId", "groups use different currencies (%s, %s); query one group at a time", currency, group.Currency)
		}

		l, _, err := uc.buildLedgerTx(txCtx, tx, group)
		if err != nil {
			return nil, err
		}

		for _, other := range group.MemberIDs {
			v := l.NetBalance(memberID, other)
			switch {
			case v > 0:
				youOwe[other] += v
			case v < 0:
				owesYou[other] -= v
			}
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	counterparties := make([]string, 0, len(youOwe)+len(owesYou))
	for id := range youOwe {
		counterparties = append(counterparties, id)
	}
	for id := range owesYou {
		if _, ok := youOwe[id]; !ok {
			counterparties = append(counterparties, id)
		}
	}
	slices.Sort(counterparties)

	members := map[string]*domain.Member{}
	if len(counterparties) > 0 {
		found, err := uc.memberRepo.GetByIDs(ctx, counterparties)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			m.HashedPassword = ""
			members[m.ID] = m
		}
	}

	summary := &domain.BalanceSummary{MemberID: memberID, Currency: currency}

	var totalOwed, totalOwing int64
	for _, id := range counterparties {
		m, ok := members[id]
		if !ok {
			m = &domain.Member{ID: id}
		}
		summary.Relationships = append(summary.Relationships, domain.Relationship{
			Member:  m,
			YouOwe:  domain.FromMinorUnits(youOwe[id], currency),
			OwesYou: domain.FromMinorUnits(owesYou[id], currency),
		})
		totalOwing += youOwe[id]
		totalOwed += owesYou[id]
	}

	summary.TotalOwed = domain.FromMinorUnits(totalOwed, currency)
	summary.TotalOwing = domain.FromMinorUnits(totalOwing, currency)
	summary.NetBalance = domain.FromMinorUnits(totalOwed-totalOwing, currency)

	return summary, nil
}

// memberGroupIDs pages through every group memberID belongs to.
func (uc *SettlementUseCase) memberGroupIDs(ctx context.Context, memberID string) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += balanceGroupPage {
		groups, err := uc.groupRepo.ListByMember(ctx, memberID, balanceGroupPage, offset)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			ids = append(ids, g.ID)
		}
		if len(groups) < balanceGroupPage {
			return ids, nil
		}
	}
}

// CreateSettlementInput represents input for recording a settlement.
type CreateSettlementInput struct {
	GroupID  string
	PayerID  string
	PayeeID  string
	Amount   decimal.Decimal
	Currency string
	Note     string
	ActorID  string
}

// CreateSettlement records a PENDING settlement between two group members.
func (uc *SettlementUseCase) CreateSettlement(ctx context.Context, input CreateSettlementInput) (*domain.Settlement, error) {
	if input.PayerID == "" {
		input.PayerID = input.ActorID
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
	s := &domain.Settlement{
		ID:        uc.idGen.Generate(),
		GroupID:   group.ID,
		PayerID:   input.PayerID,
		PayeeID:   input.PayeeID,
		Amount:    input.Amount,
		Currency:  currency,
		Status:    domain.SettlementStatusPending,
		Note:      strings.TrimSpace(input.Note),
		CreatedBy: input.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	if _, err := domain.ToMinorUnits(s.Amount, currency); err != nil {
		return nil, err
	}
	if !group.HasMember(s.PayerID) {
		return nil, domain.NewInvalidInput("payerId", "member %q is not in group %s", s.PayerID, group.ID)
	}
	if !group.HasMember(s.PayeeID) {
		return nil, domain.NewInvalidInput("payeeId", "member %q is not in group %s", s.PayeeID, group.ID)
	}

	if err := uc.settlementRepo.Create(txCtx, tx, s); err != nil {
		return nil, err
	}
	if err := uc.emit(txCtx, tx, s, domain.EventTypeSettlementCreated, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Settlements.WithLabelValues(string(s.Status)).Inc()
	}

	return s, nil
}

// CompleteSettlement marks a PENDING settlement as paid. From then on it
// reduces what the payer owes the payee.
func (uc *SettlementUseCase) CompleteSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
	s, err := uc.transition(ctx, settlementID, actorID, domain.EventTypeSettlementCompleted, (*domain.Settlement).Complete)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Settlements.WithLabelValues(string(s.Status)).Inc()
		uc.metrics.SettlementAmount.Observe(s.Amount.InexactFloat64())
	}

	return s, nil
}

// CancelSettlement withdraws a PENDING settlement.
func (uc *SettlementUseCase) CancelSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
	s, err := uc.transition(ctx, settlementID, actorID, domain.EventTypeSettlementCancelled, (*domain.Settlement).Cancel)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Settlements.WithLabelValues(string(s.Status)).Inc()
	}

	return s, nil
}

func (uc *SettlementUseCase) transition(
	ctx context.Context,
	settlementID, actorID, eventType string,
	apply func(*domain.Settlement, time.Time) error,
) (*domain.Settlement, error) {
	if settlementID == "" {
		return nil, domain.NewInvalidInput("settlementId", "is required")
	}

	// Read once without locks to learn the group, then lock group before
	// settlement so concurrent writers always lock in the same order.
	current, err := uc.settlementRepo.GetByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}

	var result *domain.Settlement
	err = uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		group, err := uc.groupRepo.GetByIDForUpdate(txCtx, tx, current.GroupID)
		if err != nil {
			return err
		}
		if err := requireMember(group, actorID); err != nil {
			return err
		}

		s, err := uc.settlementRepo.GetByIDForUpdate(txCtx, tx, settlementID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := apply(s, now); err != nil {
			return fmt.Errorf("settlement %s is %s: %w", s.ID, s.Status, err)
		}

		if err := uc.settlementRepo.UpdateStatus(txCtx, tx, s); err != nil {
			return err
		}
		if _, err := uc.groupRepo.BumpVersion(txCtx, tx, group.ID, now); err != nil {
			return err
		}
		if err := uc.emit(txCtx, tx, s, eventType, now); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetSettlement returns a settlement visible to actorID.
func (uc *SettlementUseCase) GetSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
	s, err := uc.settlementRepo.GetByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}

	group, err := uc.groupRepo.GetByID(ctx, s.GroupID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, actorID); err != nil {
		return nil, err
	}

	return s, nil
}

// ListSettlements lists a group's settlements, optionally by status.
func (uc *SettlementUseCase) ListSettlements(ctx context.Context, filter SettlementFilter, actorID string) ([]*domain.Settlement, error) {
	if filter.GroupID == "" {
		return nil, domain.NewInvalidInput("groupId", "is required")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewInvalidInput("status", "unknown settlement status %q", filter.Status)
	}

	group, err := uc.groupRepo.GetByID(ctx, filter.GroupID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(group, actorID); err != nil {
		return nil, err
	}

	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	return uc.settlementRepo.List(ctx, filter)
}

// computeTx runs ledger, graph and optimizer over the group's state as seen
// by tx.
func (uc *SettlementUseCase) computeTx(ctx context.Context, tx Transaction, group *domain.Group) (*optimization, error) {
	l, pending, err := uc.buildLedgerTx(ctx, tx, group)
	if err != nil {
		return nil, err
	}

	g, err := ledger.NewDebtGraphFromLedger(l)
	if err != nil {
		return nil, err
	}

	res, err := ledger.OptimizeGraph(g)
	if err != nil {
		var unbalanced *domain.UnbalancedInputError
		if errors.As(err, &unbalanced) {
			uc.logger.Error().
				Err(err).
				Str("group_id", group.ID).
				Int64("version", group.Version).
				Int64("residual", unbalanced.Residual).
				Msg("ledger positions do not sum to zero")
		}
		return nil, err
	}

	members, err := uc.memberRepo.ListByGroupTx(ctx, tx, group.ID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	opt := &optimization{
		Optimization: domain.Optimization{
			GroupID:                   group.ID,
			Version:                   group.Version,
			Currency:                  group.Currency,
			Transfers:                 make([]domain.Transfer, 0, len(res.Transfers)),
			OriginalTransactionCount:  res.OriginalTransactionCount,
			OptimizedTransactionCount: res.OptimizedTransactionCount,
			Savings:                   res.Savings,
		},
		Pending: pending,
	}
	for _, t := range res.Transfers {
		opt.Transfers = append(opt.Transfers, domain.Transfer{
			FromMemberID: t.From,
			FromName:     names[t.From],
			ToMemberID:   t.To,
			ToName:       names[t.To],
			Amount:       domain.FromMinorUnits(t.Amount, group.Currency),
		})
	}

	return opt, nil
}

// buildLedgerTx loads unsettled splits and non-cancelled settlements and
// folds them into a ledger. It also reports the number of PENDING settlements.
func (uc *SettlementUseCase) buildLedgerTx(ctx context.Context, tx Transaction, group *domain.Group) (*ledger.BalanceLedger, int, error) {
	splits, err := uc.expenseRepo.ListUnsettledSplitsTx(ctx, tx, group.ID)
	if err != nil {
		return nil, 0, err
	}

	settlements, err := uc.settlementRepo.ListActiveByGroupTx(ctx, tx, group.ID)
	if err != nil {
		return nil, 0, err
	}

	l, err := ledger.Build(group.Currency, group.MemberIDs, splits, settlements)
	if err != nil {
		return nil, 0, err
	}

	pending := 0
	for i := range settlements {
		if settlements[i].Status == domain.SettlementStatusPending {
			pending++
		}
	}

	return l, pending, nil
}

// optimization is an Optimization plus bookkeeping that callers of Optimize
// do not see.
type optimization struct {
	domain.Optimization
	Pending int
}

func (uc *SettlementUseCase) cachedOptimization(ctx context.Context, key string) (*domain.Optimization, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, key)
	if err != nil || data == nil {
		uc.countCache("miss")
		return nil, false
	}

	var opt domain.Optimization
	if err := json.Unmarshal(data, &opt); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached optimization")
		_ = uc.cache.Delete(ctx, key)
		uc.countCache("miss")
		return nil, false
	}

	uc.countCache("hit")
	return &opt, true
}

func (uc *SettlementUseCase) storeOptimization(ctx context.Context, key string, opt *domain.Optimization) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(opt)
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, key, data, uc.opts.CacheTTL); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("failed to cache optimization")
	}
}

func (uc *SettlementUseCase) countCache(result string) {
	if uc.metrics != nil {
		uc.metrics.CacheRequests.WithLabelValues(result).Inc()
	}
}

func (uc *SettlementUseCase) observeOptimize(outcome string, opt *domain.Optimization, start time.Time) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.Optimizations.WithLabelValues(outcome).Inc()
	uc.metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
	if opt != nil {
		uc.metrics.SuggestedTransfers.Observe(float64(opt.OptimizedTransactionCount))
		uc.metrics.TransferSavings.Observe(float64(opt.Savings))
	}
}

func (uc *SettlementUseCase) emit(ctx context.Context, tx Transaction, s *domain.Settlement, eventType string, now time.Time) error {
	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   s.ID,
		AggregateType: domain.AggregateTypeSettlement,
		EventType:     eventType,
		Payload:       domain.SettlementEventPayload(s),
		CreatedAt:     now,
		Published:     false,
	}
	return uc.outboxRepo.Create(ctx, tx, event)
}

func optimizeCacheKey(groupID string, version int64) string {
	return fmt.Sprintf("optimize:%s:%d", groupID, version)
}

func requireMember(group *domain.Group, memberID string) error {
	if !group.HasMember(memberID) {
		return domain.ErrNotGroupMember
	}
	return nil
}
