package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

type settlementServiceStub struct {
	optimizeFn func(ctx context.Context, groupID, actorID string) (*domain.Optimization, error)
	acceptFn   func(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error)
	balanceFn  func(ctx context.Context, memberID, groupID string) (*domain.BalanceSummary, error)
	createFn   func(ctx context.Context, input usecase.CreateSettlementInput) (*domain.Settlement, error)
	completeFn func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error)
	cancelFn   func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error)
	getFn      func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error)
	listFn     func(ctx context.Context, filter usecase.SettlementFilter, actorID string) ([]*domain.Settlement, error)
}

func (s *settlementServiceStub) Optimize(ctx context.Context, groupID, actorID string) (*domain.Optimization, error) {
	return s.optimizeFn(ctx, groupID, actorID)
}

func (s *settlementServiceStub) AcceptOptimization(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error) {
	return s.acceptFn(ctx, groupID, actorID)
}

func (s *settlementServiceStub) Balance(ctx context.Context, memberID, groupID string) (*domain.BalanceSummary, error) {
	return s.balanceFn(ctx, memberID, groupID)
}

func (s *settlementServiceStub) CreateSettlement(ctx context.Context, input usecase.CreateSettlementInput) (*domain.Settlement, error) {
	return s.createFn(ctx, input)
}

func (s *settlementServiceStub) CompleteSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
	return s.completeFn(ctx, settlementID, actorID)
}

func (s *settlementServiceStub) CancelSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
	return s.cancelFn(ctx, settlementID, actorID)
}

func (s *settlementServiceStub) GetSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
	return s.getFn(ctx, settlementID, actorID)
}

func (s *settlementServiceStub) ListSettlements(ctx context.Context, filter usecase.SettlementFilter, actorID string) ([]*domain.Settlement, error) {
	return s.listFn(ctx, filter, actorID)
}

func TestSettlementHandler_Optimize_Success(t *testing.T) {
	var gotGroup, gotActor string
	h := NewSettlementHandler(&settlementServiceStub{
		optimizeFn: func(ctx context.Context, groupID, actorID string) (*domain.Optimization, error) {
			gotGroup, gotActor = groupID, actorID
			return &domain.Optimization{
				GroupID:  groupID,
				Version:  3,
				Currency: "USD",
				Transfers: []domain.Transfer{
					{FromMemberID: "bob", FromName: "Bob", ToMemberID: "alice", ToName: "Alice", Amount: decimal.NewFromInt(30)},
				},
				OriginalTransactionCount:  2,
				OptimizedTransactionCount: 1,
				Savings:                   1,
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/settlements/optimize", strings.NewReader(`{"groupId":"g-1"}`))
	req = withMember(req, "alice")
	rec := httptest.NewRecorder()

	h.Optimize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotGroup != "g-1" || gotActor != "alice" {
		t.Fatalf("expected optimize(g-1, alice), got (%s, %s)", gotGroup, gotActor)
	}

	var resp dto.OptimizationResponse
	decodeData(t, rec, &resp)
	if resp.Savings != 1 || len(resp.Transactions) != 1 || resp.Transactions[0].From.ID != "bob" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if !resp.Transactions[0].Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("amount = %s", resp.Transactions[0].Amount)
	}
}

func TestSettlementHandler_Optimize_RequiresGroupID(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{})

	req := withMember(httptest.NewRequest(http.MethodPost, "/settlements/optimize", strings.NewReader(`{}`)), "alice")
	rec := httptest.NewRecorder()

	h.Optimize(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettlementHandler_Optimize_Unauthenticated(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/settlements/optimize", strings.NewReader(`{"groupId":"g-1"}`))
	rec := httptest.NewRecorder()

	h.Optimize(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSettlementHandler_Optimize_NotMember(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		optimizeFn: func(ctx context.Context, groupID, actorID string) (*domain.Optimization, error) {
			return nil, domain.ErrNotGroupMember
		},
	})

	req := withMember(httptest.NewRequest(http.MethodPost, "/settlements/optimize", strings.NewReader(`{"groupId":"g-1"}`)), "mallory")
	rec := httptest.NewRecorder()

	h.Optimize(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Success {
		t.Fatalf("expected success=false, got %+v", resp)
	}
}

func TestSettlementHandler_Accept_PendingConflict(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		acceptFn: func(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error) {
			return nil, domain.ErrPendingSettlements
		},
	})

	req := withMember(httptest.NewRequest(http.MethodPost, "/settlements/optimize/accept", strings.NewReader(`{"groupId":"g-1"}`)), "alice")
	rec := httptest.NewRecorder()

	h.Accept(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSettlementHandler_Accept_Created(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		acceptFn: func(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error) {
			return []*domain.Settlement{
				{ID: "s-1", GroupID: groupID, PayerID: "bob", PayeeID: "alice", Amount: decimal.NewFromInt(30), Status: domain.SettlementStatusPending},
			}, nil
		},
	})

	req := withMember(httptest.NewRequest(http.MethodPost, "/settlements/optimize/accept", strings.NewReader(`{"groupId":"g-1"}`)), "alice")
	rec := httptest.NewRecorder()

	h.Accept(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp []dto.SettlementResponse
	decodeData(t, rec, &resp)
	if len(resp) != 1 || resp[0].Status != "PENDING" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestSettlementHandler_Balance_PassesGroupFilter(t *testing.T) {
	var gotMember, gotGroup string
	h := NewSettlementHandler(&settlementServiceStub{
		balanceFn: func(ctx context.Context, memberID, groupID string) (*domain.BalanceSummary, error) {
			gotMember, gotGroup = memberID, groupID
			return &domain.BalanceSummary{
				MemberID:   memberID,
				Currency:   "USD",
				TotalOwed:  decimal.NewFromInt(10),
				TotalOwing: decimal.Zero,
				NetBalance: decimal.NewFromInt(10),
			}, nil
		},
	})

	req := withMember(httptest.NewRequest(http.MethodGet, "/settlements/balance?groupId=g-9", nil), "alice")
	rec := httptest.NewRecorder()

	h.Balance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotMember != "alice" || gotGroup != "g-9" {
		t.Fatalf("expected balance(alice, g-9), got (%s, %s)", gotMember, gotGroup)
	}

	var resp dto.BalanceResponse
	decodeData(t, rec, &resp)
	if !resp.NetBalance.Equal(decimal.NewFromInt(10)) || resp.Relationships == nil {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestSettlementHandler_Create_UsesCallerAsActor(t *testing.T) {
	var captured usecase.CreateSettlementInput
	h := NewSettlementHandler(&settlementServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateSettlementInput) (*domain.Settlement, error) {
			captured = input
			return &domain.Settlement{ID: "s-1", PayerID: "alice", PayeeID: input.PayeeID, Amount: input.Amount, Status: domain.SettlementStatusPending}, nil
		},
	})

	body := `{"groupId":"g-1","payeeId":"bob","amount":12.5,"note":"lunch"}`
	req := withMember(httptest.NewRequest(http.MethodPost, "/settlements", strings.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ActorID != "alice" || captured.PayeeID != "bob" || captured.Note != "lunch" {
		t.Fatalf("unexpected input: %+v", captured)
	}
	if !captured.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("amount = %s", captured.Amount)
	}
}

func TestSettlementHandler_Create_InvalidBody(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{})

	req := withMember(httptest.NewRequest(http.MethodPost, "/settlements", strings.NewReader(`{"amount":"ten"}`)), "alice")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettlementHandler_Complete_InvalidTransition(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		completeFn: func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
			return nil, domain.ErrInvalidStatusTransition
		},
	})

	req := withMember(httptest.NewRequest(http.MethodPatch, "/settlements/complete", strings.NewReader(`{"settlementId":"s-1"}`)), "alice")
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSettlementHandler_Cancel_Success(t *testing.T) {
	var gotID string
	h := NewSettlementHandler(&settlementServiceStub{
		cancelFn: func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
			gotID = settlementID
			return &domain.Settlement{ID: settlementID, Status: domain.SettlementStatusCancelled}, nil
		},
	})

	req := withMember(httptest.NewRequest(http.MethodPatch, "/settlements/cancel", strings.NewReader(`{"settlementId":"s-7"}`)), "alice")
	rec := httptest.NewRecorder()

	h.Cancel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "s-7" {
		t.Fatalf("expected s-7, got %s", gotID)
	}

	var resp dto.SettlementResponse
	decodeData(t, rec, &resp)
	if resp.Status != "CANCELLED" {
		t.Fatalf("status = %s", resp.Status)
	}
}

func TestSettlementHandler_Complete_RequiresSettlementID(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{})

	req := withMember(httptest.NewRequest(http.MethodPatch, "/settlements/complete", strings.NewReader(`{}`)), "alice")
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettlementHandler_Get_NotFound(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		getFn: func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error) {
			return nil, domain.NewNotFound("settlement", settlementID)
		},
	})

	req := withMember(httptest.NewRequest(http.MethodGet, "/settlements/s-404", nil), "alice")
	req = withURLParam(req, "id", "s-404")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSettlementHandler_List_BuildsFilter(t *testing.T) {
	var captured usecase.SettlementFilter
	h := NewSettlementHandler(&settlementServiceStub{
		listFn: func(ctx context.Context, filter usecase.SettlementFilter, actorID string) ([]*domain.Settlement, error) {
			captured = filter
			return []*domain.Settlement{}, nil
		},
	})

	req := withMember(httptest.NewRequest(http.MethodGet, "/settlements?groupId=g-1&status=pending&limit=5&offset=10", nil), "alice")
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := usecase.SettlementFilter{GroupID: "g-1", Status: domain.SettlementStatusPending, Limit: 5, Offset: 10}
	if captured != want {
		t.Fatalf("filter = %+v, want %+v", captured, want)
	}
}
