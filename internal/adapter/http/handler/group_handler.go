package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// GroupService is the group behaviour the handler depends on.
type GroupService interface {
	CreateGroup(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error)
	GetGroup(ctx context.Context, id, actorID string) (*domain.Group, error)
	ListGroupsForMember(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error)
	AddMember(ctx context.Context, groupID, memberID, actorID string) (*domain.Group, error)
}

// GroupHandler handles group-related HTTP requests.
type GroupHandler struct {
	groupUC GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupUC GroupService) *GroupHandler {
	return &GroupHandler{groupUC: groupUC}
}

// Create creates a group with the caller as its first member.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupUC.CreateGroup(r.Context(), req.ToUseCaseInput(member.ID))
	if err != nil {
		writeDomainError(w, r, err, "failed to create group")
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(group))
}

// List returns the caller's groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	groups, err := h.groupUC.ListGroupsForMember(r.Context(), member.ID, limit, offset)
	if err != nil {
		writeDomainError(w, r, err, "failed to list groups")
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupsFromDomain(groups))
}

// Get retrieves a group by ID.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	group, err := h.groupUC.GetGroup(r.Context(), chi.URLParam(r, "id"), member.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to get group")
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// AddMember adds a member to the group's roster.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	member, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MemberID == "" {
		writeError(w, http.StatusBadRequest, "missing member ID", "memberId is required")
		return
	}

	group, err := h.groupUC.AddMember(r.Context(), chi.URLParam(r, "id"), req.MemberID, member.ID)
	if err != nil {
		writeDomainError(w, r, err, "failed to add member")
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}
