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

type memberServiceStub struct {
	registerFn     func(ctx context.Context, input usecase.RegisterInput) (*usecase.Session, error)
	authenticateFn func(ctx context.Context, input usecase.AuthenticateInput) (*usecase.Session, error)
	getFn          func(ctx context.Context, id string) (*domain.Member, error)
}

func (s *memberServiceStub) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.Session, error) {
	return s.registerFn(ctx, input)
}

func (s *memberServiceStub) Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*usecase.Session, error) {
	return s.authenticateFn(ctx, input)
}

func (s *memberServiceStub) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	return s.getFn(ctx, id)
}

func TestAuthHandler_Register(t *testing.T) {
	h := NewAuthHandler(&memberServiceStub{
		registerFn: func(ctx context.Context, input usecase.RegisterInput) (*usecase.Session, error) {
			return &usecase.Session{
				Member: &domain.Member{ID: "m-1", Email: input.Email, Name: input.Name},
				Token:  "signed-token",
			}, nil
		},
	})

	body := `{"email":"alice@example.com","name":"Alice","password":"correct horse"}`
	rec := httptest.NewRecorder()

	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.AuthResponse
	decodeData(t, rec, &resp)
	if resp.Token != "signed-token" || resp.User == nil || resp.User.Email != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password field: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	h := NewAuthHandler(&memberServiceStub{
		registerFn: func(ctx context.Context, input usecase.RegisterInput) (*usecase.Session, error) {
			return nil, domain.ErrEmailTaken
		},
	})

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@b.c"}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"valid credentials", nil, http.StatusOK},
		{"wrong password", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"inactive account", domain.ErrInactive, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&memberServiceStub{
				authenticateFn: func(ctx context.Context, input usecase.AuthenticateInput) (*usecase.Session, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &usecase.Session{Member: &domain.Member{ID: "m-1", Email: input.Email}, Token: "t"}, nil
				},
			})

			body := `{"email":"alice@example.com","password":"secret"}`
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&memberServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Member, error) {
			return &domain.Member{ID: id, Email: "alice@example.com", Name: "Alice"}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Me(rec, withMember(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "m-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.MemberResponse
	decodeData(t, rec, &resp)
	if resp.ID != "m-1" || resp.Name != "Alice" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&memberServiceStub{})

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
