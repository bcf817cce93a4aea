package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// MemberRepository implements usecase.MemberRepository.
type MemberRepository struct {
	db DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, email, name, hashed_password, active, created_at, updated_at`

// Create inserts a new member
func (r *MemberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (id, email, name, hashed_password, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		member.ID,
		member.Email,
		member.Name,
		member.HashedPassword,
		member.Active,
		member.CreatedAt,
		member.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}

	return err
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	member, err := scanMember(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "member", id)
	}

	return member, nil
}

// GetByEmail retrieves a member by email
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`

	member, err := scanMember(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFound(err, "member", email)
	}

	return member, nil
}

// GetByIDs retrieves the members that exist among ids, ordered by ID.
func (r *MemberRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = ANY($1) ORDER BY id`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}

	return collectMembers(rows)
}

// ListByGroupTx lists the group's roster inside tx.
func (r *MemberRepository) ListByGroupTx(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Member, error) {
	query := `
		SELECT m.id, m.email, m.name, m.hashed_password, m.active, m.created_at, m.updated_at
		FROM members m
		JOIN group_members gm ON gm.member_id = m.id
		WHERE gm.group_id = $1
		ORDER BY m.id
	`

	rows, err := txConn(tx).Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}

	return collectMembers(rows)
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var member domain.Member
	err := row.Scan(
		&member.ID,
		&member.Email,
		&member.Name,
		&member.HashedPassword,
		&member.Active,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func collectMembers(rows pgx.Rows) ([]*domain.Member, error) {
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}
