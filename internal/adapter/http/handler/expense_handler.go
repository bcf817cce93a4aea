package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// ExpenseService is the expense behaviour the handler depends on.
type ExpenseService interface {
	RecordExpense(ctx context.Context, input usecase.RecordExpenseInput) (*domain.Expense, error)
	ListExpenses(ctx context.Context, groupID, actorID string, limit, offset int) ([]*domain.Expense, error)
}

// ExpenseHandler handles expense-related HTTP requests.
type ExpenseHandler struct {
	expenseUC ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseUC ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseUC: expenseUC}
}

// Record records an expense and its splits.
func (h *ExpenseHandler) Record(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.RecordExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := h.expenseUC.RecordExpense(r.Context(), req.ToUseCaseInput(member.ID))
	if err != nil {
		writeDomainError(w, r, err, "failed to record expense")
		return
	}

	writeJSON(w, http.StatusCreated, dto.ExpenseFromDomain(expense))
}

// ListByGroup returns a group's expenses.
func (h *ExpenseHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	expenses, err := h.expenseUC.ListExpenses(r.Context(), chi.URLParam(r, "id"), member.ID, limit, offset)
	if err != nil {
		writeDomainError(w, r, err, "failed to list expenses")
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpensesFromDomain(expenses))
}
