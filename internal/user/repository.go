package user

import (
	"context"
	"database/sql"
	"errors"

	"bookkeeping/internal/db"

	"github.com/sirupsen/logrus"
)

type UserRepository struct {
	dialect db.Dialect
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, user *User) (int, error)
	GetByUsername(ctx context.Context, q db.Querier, username string) (*User, error)
	Count(ctx context.Context, q db.Querier) (int, error)
}

func NewUserRepository(dialect db.Dialect) UserRepositoryInterface {
	return &UserRepository{dialect: dialect}
}

// Create inserts a user whose Password already holds a bcrypt hash.
func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, user *User) (int, error) {
	query := r.dialect.Rebind(`
		INSERT INTO users (username, password)
		VALUES (?, ?)
		RETURNING id
	`)

	var id int
	if err := tx.QueryRowContext(ctx, query, user.Username, user.Password).Scan(&id); err != nil {
		logrus.WithError(err).Error("Failed to create user")
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  id,
		"username": user.Username,
	}).Info("User created successfully")

	return id, nil
}

// GetByUsername looks a user up by exact, case-sensitive username.
func (r *UserRepository) GetByUsername(ctx context.Context, q db.Querier, username string) (*User, error) {
	query := r.dialect.Rebind(`
		SELECT id, username, password, created_at
		FROM users
		WHERE username = ?
	`)

	return r.scanOne(q.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) Count(ctx context.Context, q db.Querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *UserRepository) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
