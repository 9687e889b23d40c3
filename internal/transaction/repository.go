package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookkeeping/internal/db"

	"github.com/sirupsen/logrus"
)

type TransactionRepository struct {
	dialect db.Dialect
}

type TransactionRepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, t *Transaction) (int, error)
	GetOwner(ctx context.Context, q db.Querier, id int) (int, error)
	ListByUser(ctx context.Context, q db.Querier, userID int, r DateRange) ([]Transaction, error)
	SummarizeByUser(ctx context.Context, q db.Querier, userID int, g db.Granularity, since string) ([]Bucket, error)
	TotalsByUser(ctx context.Context, q db.Querier, userID int, r DateRange) (*Totals, error)
	DeleteOwned(ctx context.Context, q db.Querier, userID, id int) (*Transaction, error)
}

func NewTransactionRepository(dialect db.Dialect) TransactionRepositoryInterface {
	return &TransactionRepository{dialect: dialect}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *Transaction) (int, error) {
	query := r.dialect.Rebind(`
		INSERT INTO transactions (user_id, type, description, amount, date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int
	err := tx.QueryRowContext(ctx, query,
		t.UserID,
		t.Type,
		t.Description,
		t.Amount,
		t.Date,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetOwner returns the user id that owns transaction id.
func (r *TransactionRepository) GetOwner(ctx context.Context, q db.Querier, id int) (int, error) {
	query := r.dialect.Rebind(`SELECT user_id FROM transactions WHERE id = ?`)

	var owner int
	if err := q.QueryRowContext(ctx, query, id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return owner, nil
}

// ListByUser returns the user's rows inside dr, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, q db.Querier, userID int, dr DateRange) ([]Transaction, error) {
	where, args := rangeClause(userID, dr)
	query := r.dialect.Rebind(`
		SELECT id, user_id, type, description, amount, date
		FROM transactions
		WHERE ` + where + `
		ORDER BY date DESC, id DESC
	`)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Type,
			&t.Description,
			&t.Amount,
			&t.Date,
		); err != nil {
			logrus.WithError(err).Error("Error scanning transaction row")
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// SummarizeByUser groups the user's rows dated on or after since into
// buckets of size g, ascending.
func (r *TransactionRepository) SummarizeByUser(ctx context.Context, q db.Querier, userID int, g db.Granularity, since string) ([]Bucket, error) {
	bucket := r.dialect.BucketExpr("date", g)
	query := r.dialect.Rebind(fmt.Sprintf(`
		SELECT
			%s AS period_group,
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0) AS total_income,
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0) AS total_expense
		FROM transactions
		WHERE user_id = ? AND date >= ?
		GROUP BY period_group
		ORDER BY period_group ASC
	`, bucket))

	rows, err := q.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.PeriodGroup, &b.TotalIncome, &b.TotalExpense); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buckets, nil
}

func (r *TransactionRepository) TotalsByUser(ctx context.Context, q db.Querier, userID int, dr DateRange) (*Totals, error) {
	where, args := rangeClause(userID, dr)
	query := r.dialect.Rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE ` + where)

	var totals Totals
	if err := q.QueryRowContext(ctx, query, args...).Scan(&totals.TotalIncome, &totals.TotalExpense); err != nil {
		return nil, err
	}
	totals.Balance = totals.TotalIncome.Sub(totals.TotalExpense)

	return &totals, nil
}

// DeleteOwned removes transaction id only when userID owns it and
// returns the removed row. It returns ErrNotFound when nothing matched.
func (r *TransactionRepository) DeleteOwned(ctx context.Context, q db.Querier, userID, id int) (*Transaction, error) {
	query := r.dialect.Rebind(`
		DELETE FROM transactions
		WHERE id = ? AND user_id = ?
		RETURNING id, user_id, type, description, amount, date
	`)

	var t Transaction
	err := q.QueryRowContext(ctx, query, id, userID).Scan(
		&t.ID,
		&t.UserID,
		&t.Type,
		&t.Description,
		&t.Amount,
		&t.Date,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &t, nil
}

func rangeClause(userID int, dr DateRange) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{userID}
	if dr.Since != "" {
		conds = append(conds, "date >= ?")
		args = append(args, dr.Since)
	}
	if dr.Until != "" {
		conds = append(conds, "date < ?")
		args = append(args, dr.Until)
	}
	return strings.Join(conds, " AND "), args
}
