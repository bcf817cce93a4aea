package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

var settlementRowColumns = []string{
	"id", "group_id", "payer_id", "payee_id", "amount", "currency", "status",
	"note", "created_by", "created_at", "settled_at", "updated_at",
}

func TestSettlementRepositoryListFiltersByStatus(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM settlements WHERE group_id = \$1 AND status = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("g1", "PENDING", 20, 0).
		WillReturnRows(pgxmock.NewRows(settlementRowColumns).
			AddRow("s1", "g1", "alice", "carol", decimal.RequireFromString("30"), "USD", "PENDING",
				"", "alice", now, nil, now))

	settlements, err := NewSettlementRepository(pool).List(context.Background(), usecase.SettlementFilter{
		GroupID: "g1",
		Status:  domain.SettlementStatusPending,
		Limit:   20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	s := settlements[0]
	if s.Status != domain.SettlementStatusPending || !s.Amount.Equal(decimal.NewFromInt(30)) || s.SettledAt != nil {
		t.Fatalf("unexpected settlement: %+v", s)
	}

	assertExpectations(t, pool)
}

func TestSettlementRepositoryListWithoutStatus(t *testing.T) {
	pool := newMockPool(t)

	pool.ExpectQuery(`WHERE group_id = \$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("g1", 10, 5).
		WillReturnRows(pgxmock.NewRows(settlementRowColumns))

	settlements, err := NewSettlementRepository(pool).List(context.Background(), usecase.SettlementFilter{
		GroupID: "g1", Limit: 10, Offset: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settlements) != 0 {
		t.Fatalf("expected no settlements, got %d", len(settlements))
	}

	assertExpectations(t, pool)
}

func TestSettlementRepositoryUpdateStatus(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	now := time.Now().UTC()

	s := &domain.Settlement{ID: "s1", Status: domain.SettlementStatusPending}
	if err := s.Complete(now); err != nil {
		t.Fatalf("complete: %v", err)
	}

	pool.ExpectExec(`UPDATE settlements SET status`).
		WithArgs("s1", "COMPLETED", s.SettledAt, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := NewSettlementRepository(pool).UpdateStatus(context.Background(), tx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, pool)
}

func TestSettlementRepositoryUpdateStatusMissingRow(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)

	pool.ExpectExec(`UPDATE settlements SET status`).
		WithArgs("ghost", "CANCELLED", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewSettlementRepository(pool).UpdateStatus(context.Background(), tx,
		&domain.Settlement{ID: "ghost", Status: domain.SettlementStatusCancelled})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettlementRepositoryListActiveByGroupTx(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	now := time.Now().UTC()

	pool.ExpectQuery(`status IN \('PENDING', 'COMPLETED'\)`).
		WithArgs("g1").
		WillReturnRows(pgxmock.NewRows(settlementRowColumns).
			AddRow("s1", "g1", "alice", "carol", decimal.RequireFromString("5"), "USD", "COMPLETED",
				"cash", "alice", now, &now, now))

	settlements, err := NewSettlementRepository(pool).ListActiveByGroupTx(context.Background(), tx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settlements) != 1 || settlements[0].SettledAt == nil || settlements[0].Note != "cash" {
		t.Fatalf("unexpected settlements: %+v", settlements)
	}

	assertExpectations(t, pool)
}

func TestSettlementRepositoryGetByIDQueryError(t *testing.T) {
	pool := newMockPool(t)
	boom := errors.New("connection reset")

	pool.ExpectQuery(`FROM settlements WHERE id = \$1`).
		WithArgs("s1").
		WillReturnError(boom)

	_, err := NewSettlementRepository(pool).GetByID(context.Background(), "s1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected raw error, got %v", err)
	}
}
