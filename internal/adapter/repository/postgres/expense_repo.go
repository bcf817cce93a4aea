package postgres

import (
	"context"

	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/usecase"
)

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db DBTX
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db DBTX) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense together with its splits.
func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, expense *domain.Expense) error {
	conn := txConn(tx)

	_, err := conn.Exec(ctx, `
		INSERT INTO expenses (id, group_id, description, amount, currency, paid_by_id, split_type, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		expense.ID,
		expense.GroupID,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.PaidByID,
		string(expense.SplitType),
		expense.CreatedBy,
		expense.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, split := range expense.Splits {
		_, err := conn.Exec(ctx, `
			INSERT INTO expense_splits (expense_id, debtor_id, payer_id, amount, currency, settled)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			expense.ID,
			split.DebtorID,
			split.PayerID,
			split.Amount,
			split.Currency,
			split.Settled,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListByGroup lists a group's expenses with their splits, newest first.
func (r *ExpenseRepository) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, group_id, description, amount, currency, paid_by_id, split_type, created_by, created_at
		FROM expenses
		WHERE group_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, groupID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		expenses []*domain.Expense
		ids      []string
		byID     = make(map[string]*domain.Expense)
	)
	for rows.Next() {
		var e domain.Expense
		err := rows.Scan(
			&e.ID,
			&e.GroupID,
			&e.Description,
			&e.Amount,
			&e.Currency,
			&e.PaidByID,
			&e.SplitType,
			&e.CreatedBy,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, &e)
		ids = append(ids, e.ID)
		byID[e.ID] = &e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return expenses, nil
	}

	splits, err := r.querySplits(ctx, r.db, `
		SELECT expense_id, debtor_id, payer_id, amount, currency, settled
		FROM expense_splits
		WHERE expense_id = ANY($1)
		ORDER BY expense_id, debtor_id
	`, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range splits {
		if e, ok := byID[s.ExpenseID]; ok {
			e.Splits = append(e.Splits, s)
		}
	}

	return expenses, nil
}

// ListUnsettledSplitsTx returns every unsettled split of the group's expenses.
func (r *ExpenseRepository) ListUnsettledSplitsTx(ctx context.Context, tx usecase.Transaction, groupID string) ([]domain.ExpenseSplit, error) {
	return r.querySplits(ctx, txConn(tx), `
		SELECT s.expense_id, s.debtor_id, s.payer_id, s.amount, s.currency, s.settled
		FROM expense_splits s
		JOIN expenses e ON e.id = s.expense_id
		WHERE e.group_id = $1 AND NOT s.settled
		ORDER BY s.expense_id, s.debtor_id
	`, groupID)
}

func (r *ExpenseRepository) querySplits(ctx context.Context, conn DBTX, query string, arg any) ([]domain.ExpenseSplit, error) {
	rows, err := conn.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []domain.ExpenseSplit
	for rows.Next() {
		var s domain.ExpenseSplit
		if err := rows.Scan(&s.ExpenseID, &s.DebtorID, &s.PayerID, &s.Amount, &s.Currency, &s.Settled); err != nil {
			return nil, err
		}
		splits = append(splits, s)
	}

	return splits, rows.Err()
}
