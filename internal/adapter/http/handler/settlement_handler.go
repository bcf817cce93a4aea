package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// SettlementService is the settlement behaviour the handler depends on.
type SettlementService interface {
	Optimize(ctx context.Context, groupID, actorID string) (*domain.Optimization, error)
	AcceptOptimization(ctx context.Context, groupID, actorID string) ([]*domain.Settlement, error)
	Balance(ctx context.Context, memberID, groupID string) (*domain.BalanceSummary, error)
	CreateSettlement(ctx context.Context, input usecase.CreateSettlementInput) (*domain.Settlement, error)
	CompleteSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error)
	CancelSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error)
	ListSettlements(ctx context.Context, filter usecase.SettlementFilter, actorID string) ([]*domain.Settlement, error)
}

// SettlementHandler handles settlement-related HTTP requests.
type SettlementHandler struct {
	settlementUC SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementUC SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementUC: settlementUC}
}

// Optimize suggests the minimal set of transfers that clears a group.
func (h *SettlementHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.GroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GroupID == "" {
		writeError(w, http.StatusBadRequest, "missing group ID", "groupId is required")
		return
	}

	opt, err := h.settlementUC.Optimize(r.Context(), req.GroupID, member.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to optimize settlements")
		return
	}

	writeJSON(w, http.StatusOK, dto.OptimizationFromDomain(opt))
}

// Accept turns the current optimization into pending settlements.
func (h *SettlementHandler) Accept(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.GroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GroupID == "" {
		writeError(w, http.StatusBadRequest, "missing group ID", "groupId is required")
		return
	}

	settlements, err := h.settlementUC.AcceptOptimization(r.Context(), req.GroupID, member.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to accept optimization")
		return
	}

	writeJSON(w, http.StatusCreated, dto.SettlementsFromDomain(settlements))
}

// Balance returns the caller's position, optionally limited to one group.
func (h *SettlementHandler) Balance(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	summary, err := h.settlementUC.Balance(r.Context(), member.ID, r.URL.Query().Get("groupId"))
	if err != nil {
		writeDomainError(w, r, err, "failed to compute balance")
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(summary))
}

// Create records a pending settlement.
func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.CreateSettlementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	settlement, err := h.settlementUC.CreateSettlement(r.Context(), req.ToUseCaseInput(member.ID))
	if err != nil {
		writeDomainError(w, r, err, "failed to create settlement")
		return
	}

	writeJSON(w, http.StatusCreated, dto.SettlementFromDomain(settlement))
}

// Complete marks a pending settlement as paid.
func (h *SettlementHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.settlementUC.CompleteSettlement, "failed to complete settlement")
}

// Cancel withdraws a pending settlement.
func (h *SettlementHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.settlementUC.CancelSettlement, "failed to cancel settlement")
}

func (h *SettlementHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, settlementID, actorID string) (*domain.Settlement, error),
	failure string,
) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.SettlementActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SettlementID == "" {
		writeError(w, http.StatusBadRequest, "missing settlement ID", "settlementId is required")
		return
	}

	settlement, err := apply(r.Context(), req.SettlementID, member.ID)
	if err != nil {
		writeDomainError(w, r, err, failure)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// Get retrieves a settlement by ID.
func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing settlement ID", "")
		return
	}

	settlement, err := h.settlementUC.GetSettlement(r.Context(), id, member.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to get settlement")
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// List returns a group's settlements, newest first.
func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := usecase.SettlementFilter{
		GroupID: q.Get("groupId"),
		Status:  domain.SettlementStatus(strings.ToUpper(q.Get("status"))),
		Limit:   parseIntQuery(r, "limit", 20),
		Offset:  parseIntQuery(r, "offset", 0),
	}

	settlements, err := h.settlementUC.ListSettlements(r.Context(), filter, member.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to list settlements")
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementsFromDomain(settlements))
}
