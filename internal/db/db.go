package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookkeeping/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the process-wide store handle. It is created once in main and
// passed to every repository that needs it.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Init connects using cfg, retrying a few times so the API can start
// before postgres is ready, and applies the schema.
func Init(ctx context.Context, cfg *config.DBConfig) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := dataSourceName(cfg)

	var database *DB
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = Open(ctx, dialect, dsn)
		if err == nil {
			break
		}
		logrus.WithError(err).Warnf("Failed to connect to database (attempt %d/%d)", i+1, maxRetries)
		if dialect.Name() == DriverSQLite {
			// a local file either opens or it doesn't
			break
		}
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", maxRetries, err)
	}

	logrus.WithField("driver", dialect.Name()).Info("Database connection established successfully")
	return database, nil
}

// Open opens dsn with the dialect's driver, pings it and migrates the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	conn, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect.Name() == DriverSQLite {
		// SQLite serializes writers anyway; a single connection also
		// keeps ":memory:" databases alive for the lifetime of the pool.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(100)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(30 * time.Minute)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	database := &DB{DB: conn, Dialect: dialect}
	if err := database.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return database, nil
}

// OpenSQLite is a shortcut for Open with the sqlite dialect. path may be ":memory:".
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	return Open(ctx, SQLite{}, SQLiteDSN(path))
}

// Migrate creates the tables if they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range d.Dialect.Schema() {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// SQLiteDSN enables foreign keys and a busy timeout on every connection.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func dataSourceName(cfg *config.DBConfig) string {
	if strings.EqualFold(cfg.Driver, DriverPostgres) {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
	}
	return SQLiteDSN(cfg.Path)
}
