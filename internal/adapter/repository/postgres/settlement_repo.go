package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	db DBTX
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db DBTX) *SettlementRepository {
	return &SettlementRepository{db: db}
}

const settlementColumns = `id, group_id, payer_id, payee_id, amount, currency, status, note, created_by, created_at, settled_at, updated_at`

// Create inserts a settlement.
func (r *SettlementRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	_, err := txConn(tx).Exec(ctx, `
		INSERT INTO settlements (`+settlementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		s.ID,
		s.GroupID,
		s.PayerID,
		s.PayeeID,
		s.Amount,
		s.Currency,
		string(s.Status),
		s.Note,
		s.CreatedBy,
		s.CreatedAt,
		s.SettledAt,
		s.UpdatedAt,
	)

	return err
}

// GetByID retrieves a settlement by ID.
func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	s, err := scanSettlement(r.db.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "settlement", id)
	}
	return s, nil
}

// GetByIDForUpdate retrieves a settlement by ID with a FOR UPDATE lock.
func (r *SettlementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Settlement, error) {
	s, err := scanSettlement(txConn(tx).QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "settlement", id)
	}
	return s, nil
}

// UpdateStatus persists a status transition.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	tag, err := txConn(tx).Exec(ctx, `
		UPDATE settlements SET status = $2, settled_at = $3, updated_at = $4
		WHERE id = $1
	`, s.ID, string(s.Status), s.SettledAt, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("settlement", s.ID)
	}
	return nil
}

// List returns settlements matching filter, newest first.
func (r *SettlementRepository) List(ctx context.Context, filter usecase.SettlementFilter) ([]*domain.Settlement, error) {
	conds := []string{"group_id = $1"}
	args := []any{filter.GroupID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM settlements WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		settlementColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []*domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}

	return settlements, rows.Err()
}

// ListActiveByGroupTx returns PENDING and COMPLETED settlements.
func (r *SettlementRepository) ListActiveByGroupTx(ctx context.Context, tx usecase.Transaction, groupID string) ([]domain.Settlement, error) {
	rows, err := txConn(tx).Query(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE group_id = $1 AND status IN ('PENDING', 'COMPLETED')
		ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *s)
	}

	return settlements, rows.Err()
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var s domain.Settlement
	err := row.Scan(
		&s.ID,
		&s.GroupID,
		&s.PayerID,
		&s.PayeeID,
		&s.Amount,
		&s.Currency,
		&s.Status,
		&s.Note,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.SettledAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
