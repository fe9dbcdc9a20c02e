package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/postgres"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/observability"
)

func TestQueryEngine_OutEdges(t *testing.T) {
	pool := &poolStub{queryFn: func(sql string, args []any) (pgx.Rows, error) {
		assert.Contains(t, sql, "WHERE subj = $1")
		assert.Contains(t, sql, "ORDER BY no")
		assert.Equal(t, []any{int64(7)}, args)
		return &rowsStub{rows: [][]any{
			{int64(7), int64(2), int64(9)},
			{int64(7), int64(3), int64(11)},
		}}, nil
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	var got []domain.Edge
	err := eng.OutEdges(context.Background(), 7, func(e domain.Edge) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Edge{
		{Subject: 7, Predicate: 2, Object: 9},
		{Subject: 7, Predicate: 3, Object: 11},
	}, got)
}

func TestQueryEngine_InEdges_UsesObjectColumn(t *testing.T) {
	pool := &poolStub{queryFn: func(sql string, args []any) (pgx.Rows, error) {
		assert.Contains(t, sql, "WHERE obj = $1")
		assert.Equal(t, []any{int64(9)}, args)
		return &rowsStub{}, nil
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	err := eng.InEdges(context.Background(), 9, func(domain.Edge) error { return nil })
	require.NoError(t, err)
}

func TestQueryEngine_CallbackErrorPassesThrough(t *testing.T) {
	pool := &poolStub{queryFn: func(_ string, _ []any) (pgx.Rows, error) {
		return &rowsStub{rows: [][]any{{int64(1), int64(2), int64(3)}}}, nil
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	boom := errors.New("boom")
	err := eng.OutEdges(context.Background(), 1, func(domain.Edge) error { return boom })
	assert.Equal(t, boom, err, "callback errors must not be wrapped")
}

func TestQueryEngine_RowsErrSurfaces(t *testing.T) {
	pool := &poolStub{queryFn: func(_ string, _ []any) (pgx.Rows, error) {
		return &rowsStub{rowsErr: errors.New("broken conn")}, nil
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	err := eng.NodeIDs(context.Background(), func(domain.NodeID) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken conn")
}

func TestQueryEngine_OutPropertyDist(t *testing.T) {
	pool := &poolStub{queryFn: func(sql string, args []any) (pgx.Rows, error) {
		assert.Contains(t, sql, "GROUP BY pred")
		assert.Contains(t, sql, "WHERE subj = $1")
		assert.Equal(t, []any{int64(4)}, args)
		return &rowsStub{rows: [][]any{
			{int64(2), int64(5)},
			{int64(3), int64(1)},
		}}, nil
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	var got []domain.PropertyFreq
	err := eng.OutPropertyDist(context.Background(), 4, func(f domain.PropertyFreq) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.PropertyFreq{
		{Property: 2, Count: 5},
		{Property: 3, Count: 1},
	}, got)
}

func TestQueryEngine_EdgeCount_EmptyFilterSendsNulls(t *testing.T) {
	pool := &poolStub{rowFn: func(sql string, args []any) pgx.Row {
		require.Len(t, args, 3)
		for i, a := range args {
			assert.Nil(t, a.(*int64), "arg %d should be NULL", i)
		}
		return rowStub{scan: func(dest ...any) error {
			*(dest[0].(*int64)) = 26
			return nil
		}}
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	n, err := eng.EdgeCount(context.Background(), domain.EdgeFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(26), n)
}

func TestQueryEngine_EdgeCount_FilterValues(t *testing.T) {
	subj := domain.NodeID(5)
	pred := domain.PropertyID(2)

	pool := &poolStub{rowFn: func(sql string, args []any) pgx.Row {
		require.Len(t, args, 3)
		assert.Equal(t, int64(5), *(args[0].(*int64)))
		assert.Equal(t, int64(2), *(args[1].(*int64)))
		assert.Nil(t, args[2].(*int64))
		return rowStub{scan: func(dest ...any) error {
			*(dest[0].(*int64)) = 3
			return nil
		}}
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	n, err := eng.EdgeCount(context.Background(), domain.EdgeFilter{Subject: &subj, Predicate: &pred})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestQueryEngine_NodeCount(t *testing.T) {
	pool := &poolStub{rowFn: func(sql string, _ []any) pgx.Row {
		assert.Contains(t, sql, "COUNT(*) FROM node")
		return rowStub{scan: func(dest ...any) error {
			*(dest[0].(*int64)) = 12
			return nil
		}}
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	n, err := eng.NodeCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestQueryEngine_Close(t *testing.T) {
	eng := &postgres.QueryEngine{Pool: &poolStub{}}
	assert.NoError(t, eng.Close())
}

func TestQueryEngine_CountsQueries(t *testing.T) {
	pool := &poolStub{queryFn: func(_ string, _ []any) (pgx.Rows, error) {
		return &rowsStub{}, nil
	}}
	eng := &postgres.QueryEngine{Pool: pool}

	counter := observability.GraphQueriesTotal.WithLabelValues("query.out_edges")
	before := testutil.ToFloat64(counter)
	require.NoError(t, eng.OutEdges(context.Background(), 1, func(domain.Edge) error { return nil }))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
