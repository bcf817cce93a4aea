package domain

import (
	"context"
	"errors"
	"time"
)

// Member is a registered person who can belong to groups, pay for expenses
// and settle debts.
type Member struct {
	ID             string
	Email          string
	Name           string
	HashedPassword string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmailTaken   = errors.New("email is already registered")
	ErrInactive     = errors.New("member account is inactive")
)

type memberContextKey struct{}

// ContextWithMember returns a copy of ctx carrying the authenticated member.
func ContextWithMember(ctx context.Context, m *Member) context.Context {
	return context.WithValue(ctx, memberContextKey{}, m)
}

// MemberFromContext extracts the authenticated member, if any.
func MemberFromContext(ctx context.Context) (*Member, bool) {
	m, ok := ctx.Value(memberContextKey{}).(*Member)
	return m, ok && m != nil
}
