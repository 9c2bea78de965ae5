// Package pgtx implements pipeline.Transaction against PostgreSQL, using
// database/sql with _ "github.com/lib/pq", connection-pool tuning, and a
// PingContext reachability check, narrowed from a pooled connection into
// the single in-flight *sql.Tx the pipeline core hands to nodes for the
// lifetime of a job.
package pgtx

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/pipelined/pipelined/internal/pipeline"
)

// Pool wraps a database/sql connection pool and opens per-job Transactions.
type Pool struct {
	db *sql.DB
}

// Open connects to databaseURL (a postgres:// DSN) and verifies
// reachability with PingContext.
func Open(ctx context.Context, databaseURL string) (*Pool, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgtx: open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgtx: ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the underlying connection pool.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Begin opens a new *sql.Tx and wraps it as a pipeline.Transaction, one per
// job.
func (p *Pool) Begin(ctx context.Context) (*Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pgtx: begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// Transaction adapts a *sql.Tx to pipeline.Transaction.
type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgtx: exec: %w", err)
	}
	return nil
}

func (t *Transaction) Query(ctx context.Context, query string, args ...any) (pipeline.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgtx: query: %w", err)
	}
	return &Rows{rows: rows}, nil
}

func (t *Transaction) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("pgtx: commit: %w", err)
	}
	return nil
}

func (t *Transaction) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("pgtx: rollback: %w", err)
	}
	return nil
}

// Rows adapts *sql.Rows to pipeline.Rows.
type Rows struct {
	rows *sql.Rows
}

func (r *Rows) Next() bool                 { return r.rows.Next() }
func (r *Rows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *Rows) Close() error               { return r.rows.Close() }

var _ pipeline.Transaction = (*Transaction)(nil)
var _ pipeline.Rows = (*Rows)(nil)
