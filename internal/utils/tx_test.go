package utils

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE items (name TEXT NOT NULL)`)
	require.NoError(t, err)
	return conn
}

func count(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestWithTransaction_Commits(t *testing.T) {
	conn := openDB(t)

	err := WithTransaction(context.Background(), conn, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (name) VALUES ('a')`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count(t, conn))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	conn := openDB(t)
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, conn))
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	conn := openDB(t)

	assert.Panics(t, func() {
		_ = WithTransaction(context.Background(), conn, func(tx *sql.Tx) error {
			_, _ = tx.Exec(`INSERT INTO items (name) VALUES ('a')`)
			panic("unexpected")
		})
	})
	assert.Equal(t, 0, count(t, conn))
}
