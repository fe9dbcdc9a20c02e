package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/postgres"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// fakeStore simulates label and statement tables behind a txStub: labels
// get sequential IDs from one shared counter, statements deduplicate.
type fakeStore struct {
	ids         map[string]int64
	next        int64
	seenTriples map[[3]int64]bool

	labelInserts int
	subjs        [][]int64
	preds        [][]int64
	objs         [][]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ids:         make(map[string]int64),
		next:        1,
		seenTriples: make(map[[3]int64]bool),
	}
}

func (s *fakeStore) tx() *txStub {
	return &txStub{
		execFn: func(sql string, args []any) (pgconn.CommandTag, error) {
			switch {
			case strings.Contains(sql, "INSERT INTO node"), strings.Contains(sql, "INSERT INTO property"):
				s.labelInserts++
				created := 0
				for _, label := range args[0].([]string) {
					if _, ok := s.ids[label]; !ok {
						s.ids[label] = s.next
						s.next++
						created++
					}
				}
				return tag("INSERT", created), nil
			case strings.Contains(sql, "INSERT INTO statement"):
				subjs := args[0].([]int64)
				preds := args[1].([]int64)
				objs := args[2].([]int64)
				s.subjs = append(s.subjs, subjs)
				s.preds = append(s.preds, preds)
				s.objs = append(s.objs, objs)
				created := 0
				for i := range subjs {
					key := [3]int64{subjs[i], preds[i], objs[i]}
					if !s.seenTriples[key] {
						s.seenTriples[key] = true
						created++
					}
				}
				return tag("INSERT", created), nil
			default:
				return pgconn.CommandTag{}, nil
			}
		},
		queryFn: func(sql string, args []any) (pgx.Rows, error) {
			labels := args[0].([]string)
			rows := make([][]any, 0, len(labels))
			for _, label := range labels {
				rows = append(rows, []any{label, s.ids[label]})
			}
			return &rowsStub{rows: rows}, nil
		},
	}
}

func TestGraph_ImportEdges(t *testing.T) {
	store := newFakeStore()
	tx := store.tx()
	g := postgres.NewGraph(&poolStub{tx: tx})
	g.BatchSize = 2

	src := domain.TripleList{
		{Subject: "A", Predicate: "p", Object: "B"},
		{Subject: "B", Predicate: "p", Object: "C"},
		{Subject: "A", Predicate: "p", Object: "B"}, // duplicate
	}

	stats, err := g.ImportEdges(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Rows)
	assert.Equal(t, int64(3), stats.Nodes, "A, B, C")
	assert.Equal(t, int64(1), stats.Properties)
	assert.Equal(t, int64(2), stats.Edges, "duplicate triple must not count")
	assert.Equal(t, 2, tx.commits)

	// Second flush hits the label cache: only the first flush inserts
	// labels (one node statement, one property statement).
	assert.Equal(t, 2, store.labelInserts)

	idA, idB, idC, idP := store.ids["A"], store.ids["B"], store.ids["C"], store.ids["p"]
	require.Len(t, store.subjs, 2)
	assert.Equal(t, []int64{idA, idB}, store.subjs[0])
	assert.Equal(t, []int64{idP, idP}, store.preds[0])
	assert.Equal(t, []int64{idB, idC}, store.objs[0])
	assert.Equal(t, []int64{idA}, store.subjs[1])
	assert.Equal(t, []int64{idB}, store.objs[1])

	// Shared counter means node and property IDs never collide.
	all := map[int64]bool{}
	for _, id := range []int64{idA, idB, idC, idP} {
		assert.False(t, all[id], "duplicate id %d", id)
		all[id] = true
	}
}

func TestGraph_ImportEdges_BeginError(t *testing.T) {
	g := postgres.NewGraph(&poolStub{beginErr: errors.New("pool exhausted")})

	_, err := g.ImportEdges(context.Background(), domain.TripleList{
		{Subject: "A", Predicate: "p", Object: "B"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool exhausted")
}

func TestGraph_ImportEdges_SourceErrorPassesThrough(t *testing.T) {
	g := postgres.NewGraph(&poolStub{})

	boom := errors.New("source failed")
	src := sourceFunc(func(_ domain.Context, _ func(domain.LabelTriple) error) error {
		return boom
	})
	_, got := g.ImportEdges(context.Background(), src)
	assert.Equal(t, boom, got)
}

func TestGraph_ImportEdges_EmptySource(t *testing.T) {
	store := newFakeStore()
	g := postgres.NewGraph(&poolStub{tx: store.tx()})

	stats, err := g.ImportEdges(context.Background(), domain.TripleList{})
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStats{}, stats)
}

// sourceFunc adapts a func to domain.EdgeSource.
type sourceFunc func(ctx domain.Context, fn func(domain.LabelTriple) error) error

func (f sourceFunc) Each(ctx domain.Context, fn func(domain.LabelTriple) error) error {
	return f(ctx, fn)
}
