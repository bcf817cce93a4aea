package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// GroupRepository implements usecase.GroupRepository.
type GroupRepository struct {
	db DBTX
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db DBTX) *GroupRepository {
	return &GroupRepository{db: db}
}

// The roster is aggregated in join order so the creator comes first.
const selectGroup = `
	SELECT g.id, g.name, g.currency, g.created_by, g.version, g.created_at, g.updated_at,
		COALESCE(
			(SELECT array_agg(gm.member_id ORDER BY gm.joined_at, gm.member_id)
			 FROM group_members gm WHERE gm.group_id = g.id),
			'{}'
		) AS member_ids
	FROM groups g
`

// Create inserts the group and its initial roster.
func (r *GroupRepository) Create(ctx context.Context, tx usecase.Transaction, group *domain.Group) error {
	conn := txConn(tx)

	_, err := conn.Exec(ctx, `
		INSERT INTO groups (id, name, currency, created_by, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		group.ID,
		group.Name,
		group.Currency,
		group.CreatedBy,
		group.Version,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return err
	}

	// joined_at is offset per position to keep roster order stable.
	for i, memberID := range group.MemberIDs {
		joinedAt := group.CreatedAt.Add(time.Duration(i) * time.Microsecond)
		if err := r.insertMember(ctx, conn, group.ID, memberID, joinedAt); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a group by ID.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return r.get(ctx, r.db, selectGroup+`WHERE g.id = $1`, id)
}

// GetByIDTx retrieves a group inside tx without locking it.
func (r *GroupRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Group, error) {
	return r.get(ctx, txConn(tx), selectGroup+`WHERE g.id = $1`, id)
}

// GetByIDForUpdate retrieves a group by ID with a FOR UPDATE lock on the
// group row. Writers serialize on this lock.
func (r *GroupRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Group, error) {
	return r.get(ctx, txConn(tx), selectGroup+`WHERE g.id = $1 FOR UPDATE OF g`, id)
}

// ListByMember lists the groups memberID belongs to, newest first.
func (r *GroupRepository) ListByMember(ctx context.Context, memberID string, limit, offset int) ([]*domain.Group, error) {
	query := selectGroup + `
		WHERE EXISTS (SELECT 1 FROM group_members x WHERE x.group_id = g.id AND x.member_id = $1)
		ORDER BY g.created_at DESC, g.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, memberID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// AddMember appends memberID to the roster.
func (r *GroupRepository) AddMember(ctx context.Context, tx usecase.Transaction, groupID, memberID string, at time.Time) error {
	err := r.insertMember(ctx, txConn(tx), groupID, memberID, at)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyMember
	}
	return err
}

// BumpVersion increments the group's ledger version and returns the new value.
func (r *GroupRepository) BumpVersion(ctx context.Context, tx usecase.Transaction, groupID string, at time.Time) (int64, error) {
	var version int64
	err := txConn(tx).QueryRow(ctx, `
		UPDATE groups SET version = version + 1, updated_at = $2
		WHERE id = $1
		RETURNING version
	`, groupID, at).Scan(&version)
	if err != nil {
		return 0, notFound(err, "group", groupID)
	}

	return version, nil
}

func (r *GroupRepository) insertMember(ctx context.Context, conn DBTX, groupID, memberID string, at time.Time) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO group_members (group_id, member_id, joined_at)
		VALUES ($1, $2, $3)
	`, groupID, memberID, at)
	return err
}

func (r *GroupRepository) get(ctx context.Context, conn DBTX, query, id string) (*domain.Group, error) {
	group, err := scanGroup(conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "group", id)
	}
	return group, nil
}

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var group domain.Group
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Currency,
		&group.CreatedBy,
		&group.Version,
		&group.CreatedAt,
		&group.UpdatedAt,
		&group.MemberIDs,
	)
	if err != nil {
		return nil, err
	}

	return &group, nil
}
