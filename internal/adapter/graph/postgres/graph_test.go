package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/postgres"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

func TestGraph_Index_SchemaMissing(t *testing.T) {
	pool := &poolStub{rowFn: func(_ string, _ []any) pgx.Row {
		return rowStub{scan: func(dest ...any) error {
			*(dest[0].(**string)) = nil // to_regclass on a missing table
			return nil
		}}
	}}
	g := postgres.NewGraph(pool)

	_, err := g.Index(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = g.QueryEngine(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestGraph_Index_Ready(t *testing.T) {
	g := postgres.NewGraph(readyPool(nil))

	ix, err := g.Index(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ix)

	eng, err := g.QueryEngine(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, eng)
}

func TestGraph_EnsureSchema_ExecError(t *testing.T) {
	pool := &poolStub{execFn: func(_ string, _ []any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}}
	g := postgres.NewGraph(pool)

	err := g.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestMaintenance_Purge(t *testing.T) {
	var dropped []string
	pool := &poolStub{execFn: func(sql string, _ []any) (pgconn.CommandTag, error) {
		dropped = append(dropped, sql)
		return pgconn.CommandTag{}, nil
	}}
	m := postgres.NewMaintenance(pool)

	require.NoError(t, m.Purge(context.Background()))
	require.Len(t, dropped, 4)
	assert.Contains(t, dropped[0], "statement", "statement must drop before its FK targets")
}

func TestMaintenance_PurgeError(t *testing.T) {
	pool := &poolStub{execFn: func(_ string, _ []any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("nope")
	}}
	m := postgres.NewMaintenance(pool)

	assert.Error(t, m.Purge(context.Background()))
}

func TestMaintenance_Analyze(t *testing.T) {
	var ran []string
	pool := &poolStub{execFn: func(sql string, _ []any) (pgconn.CommandTag, error) {
		ran = append(ran, sql)
		return pgconn.CommandTag{}, nil
	}}
	m := postgres.NewMaintenance(pool)

	require.NoError(t, m.Analyze(context.Background()))
	assert.Len(t, ran, 3)
}
