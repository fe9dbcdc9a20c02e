package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/sqlite"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/graphtest"
	"github.com/fairyhunter13/kg-corpus/internal/observability"
)

func openGraph(t *testing.T) domain.EmbeddedGraph {
	t.Helper()
	g, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestBattery(t *testing.T) {
	graphtest.Battery(t, openGraph)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := sqlite.Open("")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestOpen_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	g, err := sqlite.Open(path)
	require.NoError(t, err)
	_, err = g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)
	require.NoError(t, g.Close())

	// Reopening must find the data, not a fresh schema.
	g, err = sqlite.Open(path)
	require.NoError(t, err)
	defer g.Close()

	eng, err := g.QueryEngine(ctx)
	require.NoError(t, err)
	n, err := eng.EdgeCount(ctx, domain.EdgeFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(graphtest.Triples)), n)
}

func TestImportEdges_SmallBatches(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()
	g.BatchSize = 3

	stats, err := g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)
	assert.Equal(t, int64(len(graphtest.Triples)), stats.Rows)
	assert.Equal(t, int64(len(graphtest.Triples)), stats.Edges)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	_, err = g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)
	require.NoError(t, g.Purge(ctx))

	eng, err := g.QueryEngine(ctx)
	require.NoError(t, err)
	n, err := eng.NodeCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The graph stays usable after a purge.
	_, err = g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)
}

func TestImportEdges_CanceledContext(t *testing.T) {
	g, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.ImportEdges(ctx, graphtest.Triples)
	assert.ErrorIs(t, err, context.Canceled)
}

// Streams hold a connection while their callback runs; queries issued from
// inside (or alongside) an open stream must still get one.
func TestQueriesNestInsideStream(t *testing.T) {
	ctx := context.Background()
	g := openGraph(t)
	_, err := g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)

	eng, err := g.QueryEngine(ctx)
	require.NoError(t, err)
	idx, err := g.Index(ctx)
	require.NoError(t, err)

	var hops int
	err = eng.NodeIDs(ctx, func(id domain.NodeID) error {
		return eng.OutPropertyDist(ctx, id, func(f domain.PropertyFreq) error {
			if _, err := idx.PropertyLabelFor(ctx, f.Property); err != nil {
				return err
			}
			hops += int(f.Count)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, len(graphtest.Triples), hops)
}

func TestQueriesRunConcurrentlyWithStream(t *testing.T) {
	ctx := context.Background()
	g := openGraph(t)
	_, err := g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)

	eng, err := g.QueryEngine(ctx)
	require.NoError(t, err)

	// Walker-shaped load: the node enumeration stays open while workers
	// query edges off a channel.
	jobs := make(chan domain.NodeID)
	var (
		wg   sync.WaitGroup
		hops atomic.Int64
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				err := eng.OutEdges(ctx, id, func(domain.Edge) error {
					hops.Add(1)
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}

	err = eng.NodeIDs(ctx, func(id domain.NodeID) error {
		jobs <- id
		return nil
	})
	close(jobs)
	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(len(graphtest.Triples)), hops.Load())
}

func TestIndex_EmptyBatches(t *testing.T) {
	ctx := context.Background()
	g := openGraph(t)
	_, err := g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)

	idx, err := g.Index(ctx)
	require.NoError(t, err)

	ids, err := idx.NodeIDsFor(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, ids)

	pids, err := idx.PropertyIDsFor(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, pids)

	labels, err := idx.NodeLabelsFor(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, labels)
}

func TestQueryCounterAdvances(t *testing.T) {
	ctx := context.Background()
	g := openGraph(t)
	_, err := g.ImportEdges(ctx, graphtest.Triples)
	require.NoError(t, err)

	eng, err := g.QueryEngine(ctx)
	require.NoError(t, err)

	counter := observability.GraphQueriesTotal.WithLabelValues("query.node_count")
	before := testutil.ToFloat64(counter)
	_, err = eng.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
