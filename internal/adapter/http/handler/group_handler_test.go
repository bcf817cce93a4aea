package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

type groupServiceStub struct {
	createFn    func(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error)
	getFn       func(ctx context.Context, id, actorID string) (*domain.Group, error)
	listFn      func(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error)
	addMemberFn func(ctx context.Context, groupID, memberID, actorID string) (*domain.Group, error)
}

func (s *groupServiceStub) CreateGroup(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error) {
	return s.createFn(ctx, input)
}

func (s *groupServiceStub) GetGroup(ctx context.Context, id, actorID string) (*domain.Group, error) {
	return s.getFn(ctx, id, actorID)
}

func (s *groupServiceStub) ListGroupsForMember(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error) {
	return s.listFn(ctx, memberID, limit, offset)
}

func (s *groupServiceStub) AddMember(ctx context.Context, groupID, memberID, actorID string) (*domain.Group, error) {
	return s.addMemberFn(ctx, groupID, memberID, actorID)
}

func TestGroupHandler_Create(t *testing.T) {
	var captured usecase.CreateGroupInput
	h := NewGroupHandler(&groupServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error) {
			captured = input
			return &domain.Group{ID: "g-1", Name: input.Name, Currency: "USD", CreatedBy: input.ActorID, MemberIDs: []string{"alice", "bob"}}, nil
		},
	})

	body := `{"name":"Trip","currency":"usd","memberIds":["bob"]}`
	req := withMember(httptest.NewRequest(http.MethodPost, "/groups", strings.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ActorID != "alice" || captured.Name != "Trip" || len(captured.MemberIDs) != 1 {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp dto.GroupResponse
	decodeData(t, rec, &resp)
	if resp.ID != "g-1" || len(resp.MemberIDs) != 2 {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestGroupHandler_List_UsesPagination(t *testing.T) {
	var gotLimit, gotOffset int
	h := NewGroupHandler(&groupServiceStub{
		listFn: func(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error) {
			gotLimit, gotOffset = limit, offset
			return []*domain.Group{{ID: "g-1"}}, nil
		},
	})

	req := withMember(httptest.NewRequest(http.MethodGet, "/groups?limit=3&offset=6", nil), "alice")
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 3 || gotOffset != 6 {
		t.Fatalf("expected limit=3 offset=6, got %d/%d", gotLimit, gotOffset)
	}

	var resp []dto.GroupResponse
	decodeData(t, rec, &resp)
	if len(resp) != 1 || resp[0].MemberIDs == nil {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestGroupHandler_Get_Forbidden(t *testing.T) {
	h := NewGroupHandler(&groupServiceStub{
		getFn: func(ctx context.Context, id, actorID string) (*domain.Group, error) {
			return nil, domain.ErrNotGroupMember
		},
	})

	req := withURLParam(withMember(httptest.NewRequest(http.MethodGet, "/groups/g-1", nil), "mallory"), "id", "g-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGroupHandler_AddMember(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"added", `{"memberId":"carol"}`, nil, http.StatusOK},
		{"missing member", `{}`, nil, http.StatusBadRequest},
		{"already member", `{"memberId":"bob"}`, domain.ErrAlreadyMember, http.StatusConflict},
		{"unknown member", `{"memberId":"zed"}`, domain.NewNotFound("member", "zed"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGroupHandler(&groupServiceStub{
				addMemberFn: func(ctx context.Context, groupID, memberID, actorID string) (*domain.Group, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.Group{ID: groupID, MemberIDs: []string{actorID, memberID}}, nil
				},
			})

			req := withMember(httptest.NewRequest(http.MethodPost, "/groups/g-1/members", strings.NewReader(tt.body)), "alice")
			req = withURLParam(req, "id", "g-1")
			rec := httptest.NewRecorder()

			h.AddMember(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
