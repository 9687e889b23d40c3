package audit

import (
	"context"
	"database/sql"
	"errors"

	"bookkeeping/internal/db"
)

type AuditRepository struct {
	dialect db.Dialect
}

type AuditRepositoryInterface interface {
	Record(ctx context.Context, q db.Querier, entry *Entry) (bool, error)
	ListByUser(ctx context.Context, q db.Querier, userID int) ([]Entry, error)
}

func NewAuditRepository(dialect db.Dialect) AuditRepositoryInterface {
	return &AuditRepository{dialect: dialect}
}

// Record stores entry and reports whether it was new. An event already
// recorded for the same action and transaction is skipped, so redelivered
// messages do not duplicate the trail.
func (r *AuditRepository) Record(ctx context.Context, q db.Querier, entry *Entry) (bool, error) {
	query := r.dialect.Rebind(`
		INSERT INTO ledger_audit (user_id, action, transaction_id, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (action, transaction_id) DO NOTHING
		RETURNING id
	`)

	err := q.QueryRowContext(ctx, query,
		entry.UserID,
		entry.Action,
		entry.TransactionID,
		entry.Payload,
		entry.RecordedAt.UTC(),
	).Scan(&entry.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, q db.Querier, userID int) ([]Entry, error) {
	query := r.dialect.Rebind(`
		SELECT id, user_id, action, transaction_id, payload, recorded_at
		FROM ledger_audit
		WHERE user_id = ?
		ORDER BY id ASC
	`)

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Action,
			&e.TransactionID,
			&e.Payload,
			&e.RecordedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
