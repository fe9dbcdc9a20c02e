// Package postgres stores knowledge graphs in PostgreSQL.
//
// One graph occupies three tables (node, property, statement) plus a shared
// ID sequence. Node and property IDs come from the same sequence so the two
// spaces never overlap; walk sentences depend on that.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the minimal pool surface the graph needs; tests stub it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// NewPool creates a pgx connection pool from the provided DSN. Import and
// walk workloads are bursty, so connections idle out quickly.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("op=graphpg.pool: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName())
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=graphpg.pool: %w", err)
	}
	return pool, nil
}

// Connect builds a pool and pings it with exponential backoff, so a CLI run
// racing a starting database does not fall over immediately.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = 30 * time.Second
	ping := func() error { return pool.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(expo, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("op=graphpg.connect: %w", err)
	}
	return pool, nil
}
