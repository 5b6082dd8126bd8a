// Package engine wraps the DuckDB connection and exposes the catalog and
// materialization primitives the orchestrator needs.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"

	"bdp/internal/domain"
)

// Compile-time check.
var _ domain.Catalog = (*Engine)(nil)

// Engine is a thin wrapper over a DuckDB database handle. All identifiers
// interpolated into statements here have been validated by the registry, so
// no quoting is applied.
//
// mu guards the handle: ordinary operations share it, Detach swaps it out
// while an external process owns the database file.
type Engine struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the DuckDB database at path.
// An empty path opens an in-memory database.
func Open(path string) (*Engine, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect duckdb %q: %w", path, err)
	}
	return &Engine{db: db, path: path}, nil
}

// Close releases the database handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Close()
}

// Path returns the database file path the engine was opened with.
func (e *Engine) Path() string {
	return e.path
}

// Detach releases the database file while fn runs and reattaches afterwards.
// DuckDB permits only one writer process, so script assets that open the
// database themselves need the orchestrator to let go of it first. Detach
// waits for in-flight operations to drain before closing the handle; for an
// in-memory database there is no file to hand over and fn runs directly.
func (e *Engine) Detach(fn func() error) error {
	if e.path == "" {
		return fn()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("detach %q: %w", e.path, err)
	}

	fnErr := fn()

	db, err := sql.Open("duckdb", e.path)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		return errors.Join(fnErr, fmt.Errorf("reattach %q: %w", e.path, err))
	}
	e.db = db
	return fnErr
}

// DB exposes the underlying handle for read-only consumers (docs generation).
func (e *Engine) DB() *sql.DB {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db
}

// ExecContext executes a raw SQL statement.
func (e *Engine) ExecContext(ctx context.Context, query string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, err := e.db.ExecContext(ctx, query)
	return err
}

// EnsureSchema creates the schema if it does not exist yet.
func (e *Engine) EnsureSchema(ctx context.Context, schema string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}

// CreateOrReplaceTableAs materializes the query's result set as the target
// table with full-refresh semantics. DuckDB's CREATE OR REPLACE is atomic:
// a failing query leaves any prior table untouched.
func (e *Engine) CreateOrReplaceTableAs(ctx context.Context, target domain.TableRef, query string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", target, query)
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("materialize %s: %w", target, err)
	}
	return nil
}

// TableExists probes information_schema for the table.
func (e *Engine) TableExists(ctx context.Context, schema, table string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	const q = `SELECT 1 FROM information_schema.tables WHERE table_schema = ? AND table_name = ? LIMIT 1`
	var one int
	err := e.db.QueryRowContext(ctx, q, schema, table).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog lookup %s.%s: %w", schema, table, err)
	}
	return true, nil
}

// TableColumns returns the table's column names in ordinal position order.
func (e *Engine) TableColumns(ctx context.Context, schema, table string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	const q = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`
	rows, err := e.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, fmt.Errorf("column lookup %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// RowCount returns the number of rows in the target table.
func (e *Engine) RowCount(ctx context.Context, target domain.TableRef) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var n int64
	if err := e.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", target)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", target, err)
	}
	return n, nil
}

// SampleRows fetches up to limit rows from the target table with all values
// rendered as strings. Used by docs generation.
func (e *Engine) SampleRows(ctx context.Context, target domain.TableRef, limit int) ([]string, [][]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", target, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("sample %s: %w", target, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rendered := make([]string, len(cols))
		for i, v := range raw {
			if v == nil {
				rendered[i] = "NULL"
				continue
			}
			if b, ok := v.([]byte); ok {
				rendered[i] = string(b)
				continue
			}
			rendered[i] = fmt.Sprintf("%v", v)
		}
		out = append(out, rendered)
	}
	return cols, out, rows.Err()
}
