package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // register sqlite3 dialect
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// dialect builds the dynamic statements (filtered listings, partial updates,
// joins); fixed statements stay as literal SQL.
var dialect = goqu.Dialect("sqlite3")

// Store provides the storage access layer and all entity operations. It owns
// a pooled SQLite handle; each logical operation borrows a connection from
// the pool and releases it on every exit path. Callers hold exactly one
// Store per database file and Close it when done.
type Store struct {
	db     *sqlx.DB
	logger Logger
}

// Open opens (or creates) the SQLite database at path and applies the schema.
// The DSN enables foreign key enforcement, so deleting a book or member that
// loan rows still reference is restricted.
func Open(path string, opts ...Option) (*Store, error) {
	// Ensure the parent directory exists so first-run succeeds.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, connectionError(fmt.Sprintf("create db dir %s", dir), err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, connectionError("open sqlite", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, connectionError("connect to sqlite", err)
	}

	s := &Store{db: db, logger: nopLogger{}}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (s *Store) applySchema() error {
	// WAL keeps readers unblocked during writes.
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return executionError("enable WAL", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return connectionError("begin schema transaction", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL UNIQUE,
            published_year INTEGER,
            available BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            join_date DATE NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            member_id INTEGER NOT NULL REFERENCES members(id),
            loan_date DATE NOT NULL,
            due_date DATE NOT NULL,
            return_date DATE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return executionError("apply schema", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return executionError("commit schema", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Query / statement primitives
// ---------------------------------------------------------------------------

// RunQuery executes a read-only statement with positional parameters and
// returns one field-name-to-value map per row. A query matching nothing
// yields an empty slice, not an error.
func (s *Store) RunQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("query failed", "query", query, "error", err)
		return nil, executionError("execute query", err)
	}
	defer rows.Close()

	out := make([]map[string]any, 0)
	for rows.Next() {
		m := map[string]any{}
		if err := rows.MapScan(m); err != nil {
			return nil, executionError("scan row", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, executionError("iterate rows", err)
	}

	s.logger.Debug("query executed",
		"query", query, "rows", len(out), "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// RunStatement executes an insert/update/delete with positional parameters
// and returns the affected row count. Insert callers that need the new
// identity use the entity operations, which retrieve it via LastInsertId.
func (s *Store) RunStatement(ctx context.Context, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("statement failed", "query", query, "error", err)
		return 0, executionError("execute statement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, executionError("read affected rows", err)
	}

	s.logger.Debug("statement executed",
		"query", query, "affected", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}

// getRow scans a single row into dest. Absence is not an error: the bool
// result reports whether a row was found.
func (s *Store) getRow(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("query failed", "query", query, "error", err)
		return false, executionError("execute query", err)
	}
	return true, nil
}

// selectRows scans all matching rows into dest, a pointer to a slice.
func (s *Store) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		s.logger.Error("query failed", "query", query, "error", err)
		return executionError("execute query", err)
	}
	s.logger.Debug("query executed", "query", query, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// insertRow executes an INSERT and returns the new row's identity.
func (s *Store) insertRow(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("insert failed", "query", query, "error", err)
		return 0, executionError("execute insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, executionError("read inserted id", err)
	}
	return id, nil
}

// withTx runs fn inside a transaction: the multi-statement loan operations
// commit fully or roll back fully, so Book.available and Loan.return_date
// cannot drift apart on a mid-sequence failure.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return connectionError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return executionError("commit transaction", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Driver error classification
// ---------------------------------------------------------------------------

// isUniqueViolation reports whether err stems from a UNIQUE constraint, so
// entity code can translate it to a duplicate-kind error. The string check is
// a fallback for wrapped errors that lost the driver type.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err stems from a FOREIGN KEY
// constraint (restrict-on-delete).
func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// dateOnly truncates t to midnight UTC; loan bookkeeping works in whole days.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
