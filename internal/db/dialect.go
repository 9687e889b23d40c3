package db

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Granularity is a calendar bucket size used by aggregation queries.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// Dialect hides the SQL differences between the supported engines.
type Dialect interface {
	Name() string
	DriverName() string
	Rebind(query string) string
	// BucketExpr returns an expression that formats a date column as
	// YYYY-MM-DD, YYYY-WW (Monday-first week of year, 00-53) or YYYY-MM.
	BucketExpr(column string, g Granularity) string
	Schema() []string
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		return SQLite{}, nil
	case DriverPostgres:
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type SQLite struct{}

func (SQLite) Name() string       { return DriverSQLite }
func (SQLite) DriverName() string { return "sqlite" }

func (SQLite) Rebind(query string) string { return query }

func (SQLite) BucketExpr(column string, g Granularity) string {
	switch g {
	case Week:
		return fmt.Sprintf("strftime('%%Y-%%W', %s)", column)
	case Month:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
	}
}

func (SQLite) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('income', 'expense')),
			description TEXT NOT NULL,
			amount REAL NOT NULL CHECK(amount > 0),
			date TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS ledger_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			transaction_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_audit_event ON ledger_audit(action, transaction_id)`,
	}
}

type Postgres struct{}

func (Postgres) Name() string       { return DriverPostgres }
func (Postgres) DriverName() string { return "pgx" }

// Rebind turns "?" placeholders into $1, $2, ... Queries in this
// repository never contain a literal question mark.
func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Postgres) BucketExpr(column string, g Granularity) string {
	d := fmt.Sprintf("CAST(%s AS date)", column)
	switch g {
	case Week:
		// same numbering as SQLite's %W: (yday0 + 7 - weekday_mon0) / 7
		return fmt.Sprintf(
			"to_char(%[1]s, 'YYYY') || '-' || lpad(((EXTRACT(DOY FROM %[1]s)::int + 7 - EXTRACT(ISODOW FROM %[1]s)::int) / 7)::text, 2, '0')",
			d)
	case Month:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", d)
	default:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", d)
	}
}

func (Postgres) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			type VARCHAR(16) NOT NULL CHECK(type IN ('income', 'expense')),
			description TEXT NOT NULL,
			amount NUMERIC(14, 2) NOT NULL CHECK(amount > 0),
			date VARCHAR(19) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS ledger_audit (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			action VARCHAR(64) NOT NULL,
			transaction_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_audit_event ON ledger_audit(action, transaction_id)`,
	}
}
