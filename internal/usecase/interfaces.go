package usecase

import (
	"context"
	"time"

	"github.com/iho/gosettle/internal/domain"
)

// MemberRepository defines data access for members.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Member, error)
	ListByGroupTx(ctx context.Context, tx Transaction, groupID string) ([]*domain.Member, error)
}

// GroupRepository defines data access for groups and their rosters.
type GroupRepository interface {
	Create(ctx context.Context, tx Transaction, group *domain.Group) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.Group, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Group, error)
	ListByMember(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error)
	AddMember(ctx context.Context, tx Transaction, groupID, memberID string, at time.Time) error
	// BumpVersion increments the group's ledger version and returns the new value.
	BumpVersion(ctx context.Context, tx Transaction, groupID string, at time.Time) (int64, error)
}

// ExpenseRepository defines data access for expenses and their splits.
type ExpenseRepository interface {
	Create(ctx context.Context, tx Transaction, expense *domain.Expense) error
	ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Expense, error)
	ListUnsettledSplitsTx(ctx context.Context, tx Transaction, groupID string) ([]domain.ExpenseSplit, error)
}

// SettlementFilter narrows a settlement listing.
type SettlementFilter struct {
	GroupID string
	Status  domain.SettlementStatus
	Limit   int
	Offset  int
}

// SettlementRepository defines data access for settlements.
type SettlementRepository interface {
	Create(ctx context.Context, tx Transaction, settlement *domain.Settlement) error
	GetByID(ctx context.Context, id string) (*domain.Settlement, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Settlement, error)
	UpdateStatus(ctx context.Context, tx Transaction, settlement *domain.Settlement) error
	List(ctx context.Context, filter SettlementFilter) ([]*domain.Settlement, error)
	// ListActiveByGroupTx returns PENDING and COMPLETED settlements.
	ListActiveByGroupTx(ctx context.Context, tx Transaction, groupID string) ([]domain.Settlement, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	// Begin starts a READ COMMITTED read-write transaction.
	Begin(ctx context.Context) (Transaction, error)
	// BeginSnapshot starts a REPEATABLE READ, READ ONLY transaction so that
	// every query inside it sees the same ledger state.
	BeginSnapshot(ctx context.Context) (Transaction, error)
	// BeginSerializable starts a SERIALIZABLE read-write transaction.
	BeginSerializable(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient database failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// TokenIssuer issues bearer tokens for authenticated members.
type TokenIssuer interface {
	Generate(member *domain.Member) (string, error)
}
