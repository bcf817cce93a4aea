package usecase

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/infrastructure/metrics"
)

// MemberUseCase handles registration and authentication.
type MemberUseCase struct {
	memberRepo MemberRepository
	idGen      IDGenerator
	tokens     TokenIssuer
	metrics    *metrics.Metrics
}

// NewMemberUseCase creates a new member use case
func NewMemberUseCase(memberRepo MemberRepository, idGen IDGenerator, tokens TokenIssuer, metrics *metrics.Metrics) *MemberUseCase {
	return &MemberUseCase{
		memberRepo: memberRepo,
		idGen:      idGen,
		tokens:     tokens,
		metrics:    metrics,
	}
}

// RegisterInput represents input for registering a member
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Session is an authenticated member with a bearer token.
type Session struct {
	Member *domain.Member
	Token  string
}

// Register creates a new member with a hashed password and signs them in.
func (uc *MemberUseCase) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.NewInvalidInput("email", "%v", err)
	}

	if err := domain.ValidateName(input.Name); err != nil {
		return nil, domain.NewInvalidInput("name", "%v", err)
	}

	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, domain.NewInvalidInput("password", "%v", err)
	}

	// Check if member already exists
	existing, err := uc.memberRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, domain.ErrEmailTaken
	}
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	member := &domain.Member{
		ID:             uc.idGen.Generate(),
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		HashedPassword: hashedPassword,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}

	return uc.session(member)
}

// AuthenticateInput represents authentication input
type AuthenticateInput struct {
	Email    string
	Password string
}

// Authenticate verifies member credentials and issues a token.
func (uc *MemberUseCase) Authenticate(ctx context.Context, input AuthenticateInput) (*Session, error) {
	member, err := uc.memberRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		uc.countAuth("failure")
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if !member.Active {
		uc.countAuth("failure")
		return nil, domain.ErrInactive
	}

	if err := verifyPassword(member.HashedPassword, input.Password); err != nil {
		uc.countAuth("failure")
		return nil, domain.ErrUnauthorized
	}

	uc.countAuth("success")
	return uc.session(member)
}

// GetMember retrieves a member by ID
func (uc *MemberUseCase) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	member, err := uc.memberRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	member.HashedPassword = ""
	return member, nil
}

func (uc *MemberUseCase) session(member *domain.Member) (*Session, error) {
	token, err := uc.tokens.Generate(member)
	if err != nil {
		return nil, err
	}

	// Don't return hashed password
	member.HashedPassword = ""
	return &Session{Member: member, Token: token}, nil
}

func (uc *MemberUseCase) countAuth(status string) {
	if uc.metrics != nil {
		uc.metrics.AuthAttempts.WithLabelValues(status).Inc()
	}
}

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword verifies a password against a hash
func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
