package handler

import (
	"context"
	"net/http"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// MemberService is the account behaviour the auth handler depends on.
type MemberService interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*usecase.Session, error)
	Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*usecase.Session, error)
	GetMember(ctx context.Context, id string) (*domain.Member, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	memberUC MemberService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(memberUC MemberService) *AuthHandler {
	return &AuthHandler{memberUC: memberUC}
}

// Register creates a member account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.memberUC.Register(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuthFromSession(session))
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.memberUC.Authenticate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthFromSession(session))
}

// Me returns the current member.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentMember(w, r)
	if !ok {
		return
	}

	member, err := h.memberUC.GetMember(r.Context(), caller.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to load member")
		return
	}

	writeJSON(w, http.StatusOK, dto.MemberFromDomain(member))
}
