// Package database implements the persistent record store on Postgres or an
// embedded SQLite file.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/benvon/moodhome/internal/errors"
)

// Driver names accepted by New.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const sqliteScheme = "sqlite://"

// DB wraps a *sql.DB with the store's clock and migration state.
type DB struct {
	*sql.DB
	Driver string

	mu   sync.Mutex
	last int64
}

// New opens the database named by databaseURL and applies the schema.
// "sqlite://<path>" selects the embedded driver; anything else is passed to lib/pq.
func New(databaseURL string) (*DB, error) {
	driver, dsn := DriverPostgres, databaseURL
	if strings.HasPrefix(databaseURL, sqliteScheme) {
		driver = DriverSQLite
		dsn = strings.TrimPrefix(databaseURL, sqliteScheme) +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps tx and non-tx statements from deadlocking.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: sqlDB, Driver: driver}
	if err := db.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Now returns the current time truncated to milliseconds. Successive calls
// never return the same or an earlier instant, so creation instants are a
// total order within a process.
func (db *DB) Now() time.Time {
	db.mu.Lock()
	defer db.mu.Unlock()
	ms := time.Now().UnixMilli()
	if ms <= db.last {
		ms = db.last + 1
	}
	db.last = ms
	return time.UnixMilli(ms).UTC()
}

// idCollation is the collation that compares TEXT ids byte by byte. SQLite's
// default BINARY collation already does.
func (db *DB) idCollation() string {
	if db.Driver == DriverPostgres {
		return "C"
	}
	return ""
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// WithTx runs fn inside a transaction, rolling back on error.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreUnavailable("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreUnavailable("commit transaction", err)
	}
	return nil
}

// storeErr classifies a driver error. op reads like "create check-in".
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err) {
		return apperrors.NewConflict(fmt.Sprintf("failed to %s: duplicate record", op), err)
	}
	return apperrors.NewStoreUnavailable(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
	}
	return false
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func closeRows(rows *sql.Rows) {
	// Rows are fully consumed before close; a close error carries nothing new.
	_ = rows.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ queryer = (*sql.DB)(nil)
	_ queryer = (*sql.Tx)(nil)
)
