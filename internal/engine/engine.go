// Package engine provides the ephemeral, in-process SQLite database that child
// query results are materialized into and composite queries run against.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aidanlsb/qres/internal/sqlutil"
)

// ErrClosed is returned by operations on an engine that has been closed.
var ErrClosed = errors.New("engine is closed")

// Engine is a private in-memory SQLite database pinned to a single connection.
// It is owned by exactly one composite query execution and must be closed by it.
type Engine struct {
	db   *sql.DB
	conn *sql.Conn

	mu     sync.Mutex
	closed bool
}

// Open creates a fresh, empty in-memory database.
func Open(ctx context.Context) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open ephemeral database: %w", err)
	}
	// Every pooled connection to ":memory:" is a different database, so the
	// whole execution has to go through one connection.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ephemeral database: %w", err)
	}

	return &Engine{db: db, conn: conn}, nil
}

// CreateTable creates an untyped table so SQLite keeps each inserted value's
// native storage class.
func (e *Engine) CreateTable(ctx context.Context, name string, columns []string) error {
	if err := e.check(); err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s needs at least one column", name)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlutil.QuoteIdent(c)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", sqlutil.QuoteIdent(name), strings.Join(quoted, ", "))
	if _, err := e.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// Insert appends rows to a table in a single transaction. Each row holds one
// value per column, in column order.
func (e *Engine) Insert(ctx context.Context, name string, columns []string, rows [][]any) error {
	if err := e.check(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlutil.QuoteIdent(c)
	}
	stmtText := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlutil.QuoteIdent(name), strings.Join(quoted, ", "), sqlutil.Placeholders(len(columns)))

	tx, err := e.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, stmtText)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values, table %s has %d columns", i, len(row), name, len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	return tx.Commit()
}

// Query runs arbitrary SQL. Cancelling ctx interrupts the running statement.
func (e *Engine) Query(ctx context.Context, query string) (*sql.Rows, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	return e.conn.QueryContext(ctx, query)
}

// Tables lists the user tables currently in the database.
func (e *Engine) Tables(ctx context.Context) ([]string, error) {
	rows, err := e.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (string, error) {
		var name string
		err := rows.Scan(&name)
		return name, err
	})
}

// Version returns the version of the embedded SQL engine.
func (e *Engine) Version(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	var v string
	if err := e.conn.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
		return "", err
	}
	return "sqlite " + v, nil
}

// Close releases the connection and drops the database with everything in it.
// It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	connErr := e.conn.Close()
	dbErr := e.db.Close()
	if connErr != nil && !errors.Is(connErr, sql.ErrConnDone) {
		return connErr
	}
	return dbErr
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// OpenConnections reports how many connections the engine holds open.
func (e *Engine) OpenConnections() int {
	return e.db.Stats().OpenConnections
}

func (e *Engine) check() error {
	if e.Closed() {
		return ErrClosed
	}
	return nil
}
