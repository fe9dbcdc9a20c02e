package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row.
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements pgx.Rows over canned records. Scan understands the
// dest types the graph code actually uses.
type rowsStub struct {
	rows    [][]any
	idx     int
	scanErr error
	rowsErr error
}

func (r *rowsStub) Next() bool {
	if r.idx < len(r.rows) {
		r.idx++
		return true
	}
	return false
}

func (r *rowsStub) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	rec := r.rows[r.idx-1]
	for i, d := range dest {
		switch v := d.(type) {
		case *int64:
			*v = rec[i].(int64)
		case *string:
			*v = rec[i].(string)
		case **string:
			if rec[i] == nil {
				*v = nil
			} else {
				s := rec[i].(string)
				*v = &s
			}
		default:
			return fmt.Errorf("rowsStub: unsupported dest %T", d)
		}
	}
	return nil
}

func (r *rowsStub) Close()                                       {}
func (r *rowsStub) Err() error                                   { return r.rowsErr }
func (r *rowsStub) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Values() ([]any, error)                       { return nil, errors.New("not implemented") }
func (r *rowsStub) RawValues() [][]byte                          { return nil }
func (r *rowsStub) Conn() *pgx.Conn                              { return nil }

// txStub implements pgx.Tx and records writes.
type txStub struct {
	execFn    func(sql string, args []any) (pgconn.CommandTag, error)
	queryFn   func(sql string, args []any) (pgx.Rows, error)
	commits   int
	rollbacks int
}

func (t *txStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.execFn == nil {
		return pgconn.CommandTag{}, nil
	}
	return t.execFn(sql, args)
}

func (t *txStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if t.queryFn == nil {
		return &rowsStub{}, nil
	}
	return t.queryFn(sql, args)
}

func (t *txStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
}

func (t *txStub) Commit(_ context.Context) error {
	t.commits++
	return nil
}

func (t *txStub) Rollback(_ context.Context) error {
	t.rollbacks++
	return nil
}

func (t *txStub) Begin(_ context.Context) (pgx.Tx, error) { return nil, errors.New("not implemented") }
func (t *txStub) Conn() *pgx.Conn                         { return nil }
func (t *txStub) LargeObjects() pgx.LargeObjects          { return pgx.LargeObjects{} }

func (t *txStub) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *txStub) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }

func (t *txStub) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}

// poolStub implements postgres.PgxPool.
type poolStub struct {
	pingErr  error
	execFn   func(sql string, args []any) (pgconn.CommandTag, error)
	queryFn  func(sql string, args []any) (pgx.Rows, error)
	rowFn    func(sql string, args []any) pgx.Row
	beginErr error
	tx       *txStub
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if p.execFn == nil {
		return pgconn.CommandTag{}, nil
	}
	return p.execFn(sql, args)
}

func (p *poolStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if p.rowFn == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.rowFn(sql, args)
}

func (p *poolStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.queryFn == nil {
		return &rowsStub{}, nil
	}
	return p.queryFn(sql, args)
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	if p.tx == nil {
		return &txStub{}, nil
	}
	return p.tx, nil
}

func (p *poolStub) Ping(_ context.Context) error { return p.pingErr }

// readyPool returns a poolStub whose readiness probe reports the schema as
// present, delegating everything else to fn.
func readyPool(rowFn func(sql string, args []any) pgx.Row) *poolStub {
	return &poolStub{rowFn: func(sql string, args []any) pgx.Row {
		if strings.Contains(sql, "to_regclass") {
			return rowStub{scan: func(dest ...any) error {
				*(dest[0].(**string)) = ptr("statement")
				return nil
			}}
		}
		if rowFn == nil {
			return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
		}
		return rowFn(sql, args)
	}}
}

func ptr(s string) *string { return &s }

func tag(verb string, n int) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("%s 0 %d", verb, n))
}
