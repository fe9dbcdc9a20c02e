// Package graphtest holds a backend-conformance battery for graph storage.
// Every backend runs the same assertions against the same fixture graph, so
// a walk generated on SQLite and one generated on PostgreSQL see the same
// world.
package graphtest

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Triples is the fixture graph: two connected components (pokemon and their
// attributes), repeated predicates, and shared objects across subjects.
var Triples = domain.TripleList{
	{Subject: "pokemon/eevee", Predicate: "foundIn", Object: "Habitat:Urban"},
	{Subject: "pokemon/eevee", Predicate: "inEggGroup", Object: "EggGroup:Field"},
	{Subject: "pokemon/eevee", Predicate: "hasShape", Object: "Shape:Quadruped"},
	{Subject: "pokemon/eevee", Predicate: "hasType", Object: "PokéType:Normal"},
	{Subject: "pokemon/meowth", Predicate: "foundIn", Object: "Habitat:Urban"},
	{Subject: "pokemon/meowth", Predicate: "hasShape", Object: "Shape:Quadruped"},
	{Subject: "pokemon/meowth", Predicate: "hasType", Object: "PokéType:Dark"},
	{Subject: "pokemon/meowth", Predicate: "hasType", Object: "PokéType:Normal"},
	{Subject: "pokemon/meowth", Predicate: "hasType", Object: "PokéType:Steel"},
	{Subject: "pokemon/meowth", Predicate: "inEggGroup", Object: "EggGroup:Field"},
	{Subject: "pokemon/meowth", Predicate: "mayHaveAbility", Object: "ability/pickup"},
	{Subject: "pokemon/meowth", Predicate: "mayHaveAbility", Object: "ability/technician"},
	{Subject: "pokemon/meowth", Predicate: "mayHaveAbility", Object: "ability/unnerve"},
	{Subject: "pokemon/meowth", Predicate: "mayHaveHiddenAbility", Object: "ability/unnerve"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/pay-day"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/scratch"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/bite"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/growl"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/screech"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/fury-swipes"},
	{Subject: "pokemon/meowth", Predicate: "isAbleToApply", Object: "move/slash"},
	{Subject: "pokemon/jigglypuff", Predicate: "foundIn", Object: "Habitat:Grassland"},
	{Subject: "pokemon/jigglypuff", Predicate: "inEggGroup", Object: "EggGroup:Fairy"},
	{Subject: "pokemon/jigglypuff", Predicate: "hasShape", Object: "Shape:Humanoid"},
	{Subject: "pokemon/jigglypuff", Predicate: "hasType", Object: "PokéType:Fairy"},
	{Subject: "pokemon/jigglypuff", Predicate: "hasType", Object: "PokéType:Normal"},
}

// NodeLabels returns the distinct node labels of the fixture, sorted.
func NodeLabels() []string {
	seen := map[string]struct{}{}
	for _, t := range Triples {
		seen[t.Subject] = struct{}{}
		seen[t.Object] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// PropertyLabels returns the distinct property labels of the fixture, sorted.
func PropertyLabels() []string {
	seen := map[string]struct{}{}
	for _, t := range Triples {
		seen[t.Predicate] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Battery runs the conformance assertions. open must hand out a fresh empty
// graph on every call; Battery imports the fixture itself where needed.
func Battery(t *testing.T, open func(t *testing.T) domain.EmbeddedGraph) {
	t.Helper()
	ctx := context.Background()

	fixture := func(t *testing.T) domain.EmbeddedGraph {
		t.Helper()
		g := open(t)
		_, err := g.ImportEdges(ctx, Triples)
		require.NoError(t, err)
		return g
	}

	t.Run("ImportStats", func(t *testing.T) {
		g := open(t)
		stats, err := g.ImportEdges(ctx, Triples)
		require.NoError(t, err)
		assert.Equal(t, int64(len(Triples)), stats.Rows)
		assert.Equal(t, int64(len(Triples)), stats.Edges)
		assert.Equal(t, int64(len(NodeLabels())), stats.Nodes)
		assert.Equal(t, int64(len(PropertyLabels())), stats.Properties)
	})

	t.Run("ImportIsIdempotent", func(t *testing.T) {
		g := fixture(t)
		stats, err := g.ImportEdges(ctx, Triples)
		require.NoError(t, err)
		assert.Equal(t, int64(len(Triples)), stats.Rows)
		assert.Zero(t, stats.Edges)
		assert.Zero(t, stats.Nodes)
		assert.Zero(t, stats.Properties)

		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)
		n, err := eng.EdgeCount(ctx, domain.EdgeFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(Triples)), n)
	})

	t.Run("IndexRoundTrip", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)

		id, err := idx.NodeIDFor(ctx, "pokemon/meowth")
		require.NoError(t, err)
		label, err := idx.NodeLabelFor(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "pokemon/meowth", label)

		pid, err := idx.PropertyIDFor(ctx, "isAbleToApply")
		require.NoError(t, err)
		plabel, err := idx.PropertyLabelFor(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, "isAbleToApply", plabel)
	})

	t.Run("IndexBatchRoundTrip", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)

		nodeIDs, err := idx.NodeIDsFor(ctx, NodeLabels())
		require.NoError(t, err)
		require.Len(t, nodeIDs, len(NodeLabels()))
		labels, err := idx.NodeLabelsFor(ctx, nodeIDs)
		require.NoError(t, err)
		assert.Equal(t, NodeLabels(), labels)

		propIDs, err := idx.PropertyIDsFor(ctx, PropertyLabels())
		require.NoError(t, err)
		require.Len(t, propIDs, len(PropertyLabels()))
		plabels, err := idx.PropertyLabelsFor(ctx, propIDs)
		require.NoError(t, err)
		assert.Equal(t, PropertyLabels(), plabels)
	})

	t.Run("IndexUnknowns", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)

		_, err = idx.NodeIDFor(ctx, "pokemon/raichu")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = idx.NodeLabelFor(ctx, unknownID(t, g))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = idx.PropertyIDFor(ctx, "hasUnknown")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = idx.PropertyLabelFor(ctx, domain.PropertyID(unknownID(t, g)))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// Batch lookups fail atomically on the first unknown element.
		_, err = idx.NodeIDsFor(ctx, []string{"pokemon/eevee", "pokemon/raichu"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = idx.PropertyLabelsFor(ctx, []domain.PropertyID{domain.PropertyID(unknownID(t, g))})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Counts", func(t *testing.T) {
		g := fixture(t)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		nodes, err := eng.NodeCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(len(NodeLabels())), nodes)

		props, err := eng.PropertyCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(len(PropertyLabels())), props)
	})

	t.Run("EmptyGraph", func(t *testing.T) {
		g := open(t)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		nodes, err := eng.NodeCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, nodes)

		var seen int
		require.NoError(t, eng.NodeIDs(ctx, func(domain.NodeID) error {
			seen++
			return nil
		}))
		assert.Zero(t, seen)

		edges, err := eng.EdgeCount(ctx, domain.EdgeFilter{})
		require.NoError(t, err)
		assert.Zero(t, edges)
	})

	t.Run("Enumeration", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		var nodeIDs []domain.NodeID
		require.NoError(t, eng.NodeIDs(ctx, func(id domain.NodeID) error {
			nodeIDs = append(nodeIDs, id)
			return nil
		}))
		labels, err := idx.NodeLabelsFor(ctx, nodeIDs)
		require.NoError(t, err)
		sort.Strings(labels)
		assert.Equal(t, NodeLabels(), labels)

		var propIDs []domain.PropertyID
		require.NoError(t, eng.PropertyIDs(ctx, func(id domain.PropertyID) error {
			propIDs = append(propIDs, id)
			return nil
		}))
		plabels, err := idx.PropertyLabelsFor(ctx, propIDs)
		require.NoError(t, err)
		sort.Strings(plabels)
		assert.Equal(t, PropertyLabels(), plabels)
	})

	t.Run("InOutEdges", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		normal, err := idx.NodeIDFor(ctx, "PokéType:Normal")
		require.NoError(t, err)
		var in []domain.Edge
		require.NoError(t, eng.InEdges(ctx, normal, func(e domain.Edge) error {
			in = append(in, e)
			return nil
		}))
		assert.ElementsMatch(t, expectedEdges(t, idx, func(tr domain.LabelTriple) bool {
			return tr.Object == "PokéType:Normal"
		}), in)

		jiggly, err := idx.NodeIDFor(ctx, "pokemon/jigglypuff")
		require.NoError(t, err)
		var out []domain.Edge
		require.NoError(t, eng.OutEdges(ctx, jiggly, func(e domain.Edge) error {
			out = append(out, e)
			return nil
		}))
		assert.ElementsMatch(t, expectedEdges(t, idx, func(tr domain.LabelTriple) bool {
			return tr.Subject == "pokemon/jigglypuff"
		}), out)
	})

	t.Run("PropertyDistributions", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		normal, err := idx.NodeIDFor(ctx, "PokéType:Normal")
		require.NoError(t, err)
		hasType, err := idx.PropertyIDFor(ctx, "hasType")
		require.NoError(t, err)

		var in []domain.PropertyFreq
		require.NoError(t, eng.InPropertyDist(ctx, normal, func(f domain.PropertyFreq) error {
			in = append(in, f)
			return nil
		}))
		assert.Equal(t, []domain.PropertyFreq{{Property: hasType, Count: 3}}, in)

		meowth, err := idx.NodeIDFor(ctx, "pokemon/meowth")
		require.NoError(t, err)
		out := map[string]int64{}
		require.NoError(t, eng.OutPropertyDist(ctx, meowth, func(f domain.PropertyFreq) error {
			label, err := idx.PropertyLabelFor(ctx, f.Property)
			if err != nil {
				return err
			}
			out[label] = f.Count
			return nil
		}))
		assert.Equal(t, map[string]int64{
			"isAbleToApply":        7,
			"hasType":              3,
			"mayHaveAbility":       3,
			"mayHaveHiddenAbility": 1,
			"inEggGroup":           1,
			"hasShape":             1,
			"foundIn":              1,
		}, out)
	})

	t.Run("FilteredEdges", func(t *testing.T) {
		g := fixture(t)
		idx, err := g.Index(ctx)
		require.NoError(t, err)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		eevee, err := idx.NodeIDFor(ctx, "pokemon/eevee")
		require.NoError(t, err)
		jiggly, err := idx.NodeIDFor(ctx, "pokemon/jigglypuff")
		require.NoError(t, err)
		hasShape, err := idx.PropertyIDFor(ctx, "hasShape")
		require.NoError(t, err)
		ability, err := idx.PropertyIDFor(ctx, "isAbleToApply")
		require.NoError(t, err)

		all := collectEdges(t, eng, domain.EdgeFilter{})
		assert.ElementsMatch(t, expectedEdges(t, idx, func(domain.LabelTriple) bool { return true }), all)

		bySubj := collectEdges(t, eng, domain.EdgeFilter{Subject: &eevee})
		assert.ElementsMatch(t, expectedEdges(t, idx, func(tr domain.LabelTriple) bool {
			return tr.Subject == "pokemon/eevee"
		}), bySubj)

		byPred := collectEdges(t, eng, domain.EdgeFilter{Predicate: &ability})
		assert.Len(t, byPred, 7)

		multi := collectEdges(t, eng, domain.EdgeFilter{Subject: &eevee, Predicate: &hasShape})
		assert.Len(t, multi, 1)

		unlinked := collectEdges(t, eng, domain.EdgeFilter{Subject: &eevee, Object: &jiggly})
		assert.Empty(t, unlinked)

		n, err := eng.EdgeCount(ctx, domain.EdgeFilter{Subject: &jiggly})
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		n, err = eng.EdgeCount(ctx, domain.EdgeFilter{Subject: &eevee, Object: &jiggly})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("DisjointIDSpaces", func(t *testing.T) {
		g := fixture(t)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		ids := map[int64]string{}
		require.NoError(t, eng.NodeIDs(ctx, func(id domain.NodeID) error {
			ids[int64(id)] = "node"
			return nil
		}))
		require.NoError(t, eng.PropertyIDs(ctx, func(id domain.PropertyID) error {
			if kind, clash := ids[int64(id)]; clash {
				t.Fatalf("property id %d already taken by a %s", id, kind)
			}
			return nil
		}))
	})

	t.Run("CallbackErrorAbortsStream", func(t *testing.T) {
		g := fixture(t)
		eng, err := g.QueryEngine(ctx)
		require.NoError(t, err)

		boom := errors.New("boom")
		var seen int
		err = eng.Edges(ctx, domain.EdgeFilter{}, func(domain.Edge) error {
			seen++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, seen)
	})
}

func collectEdges(t *testing.T, eng domain.QueryEngine, f domain.EdgeFilter) []domain.Edge {
	t.Helper()
	var out []domain.Edge
	require.NoError(t, eng.Edges(context.Background(), f, func(e domain.Edge) error {
		out = append(out, e)
		return nil
	}))
	return out
}

// expectedEdges maps the fixture triples selected by keep into ID form.
func expectedEdges(t *testing.T, idx domain.Index, keep func(domain.LabelTriple) bool) []domain.Edge {
	t.Helper()
	ctx := context.Background()
	var out []domain.Edge
	for _, tr := range Triples {
		if !keep(tr) {
			continue
		}
		s, err := idx.NodeIDFor(ctx, tr.Subject)
		require.NoError(t, err)
		p, err := idx.PropertyIDFor(ctx, tr.Predicate)
		require.NoError(t, err)
		o, err := idx.NodeIDFor(ctx, tr.Object)
		require.NoError(t, err)
		out = append(out, domain.Edge{Subject: s, Predicate: p, Object: o})
	}
	return out
}

// unknownID returns a node ID no import could have handed out yet.
func unknownID(t *testing.T, g domain.Graph) domain.NodeID {
	t.Helper()
	ctx := context.Background()
	eng, err := g.QueryEngine(ctx)
	require.NoError(t, err)
	var max int64
	require.NoError(t, eng.NodeIDs(ctx, func(id domain.NodeID) error {
		if int64(id) > max {
			max = int64(id)
		}
		return nil
	}))
	require.NoError(t, eng.PropertyIDs(ctx, func(id domain.PropertyID) error {
		if int64(id) > max {
			max = int64(id)
		}
		return nil
	}))
	return domain.NodeID(max + 1000)
}
