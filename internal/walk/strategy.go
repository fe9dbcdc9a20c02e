package walk

import (
	"math/rand/v2"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Uniform picks one out-edge uniformly at random: a single reservoir pass
// over the OutEdges stream.
type Uniform struct{}

// Step implements Strategy.
func (Uniform) Step(ctx domain.Context, eng domain.QueryEngine, from domain.NodeID, rng *rand.Rand) (domain.Edge, bool, error) {
	var (
		chosen domain.Edge
		seen   int64
	)
	err := eng.OutEdges(ctx, from, func(e domain.Edge) error {
		seen++
		// Element i replaces the reservoir with probability 1/i.
		if rng.Int64N(seen) == 0 {
			chosen = e
		}
		return nil
	})
	if err != nil {
		return domain.Edge{}, false, err
	}
	return chosen, seen > 0, nil
}

// PropertyWeighted first samples a predicate from the node's out-property
// distribution, proportional to its frequency, then picks uniformly among
// the edges carrying it. Walks drift toward the node's dominant predicates.
type PropertyWeighted struct{}

// Step implements Strategy.
func (PropertyWeighted) Step(ctx domain.Context, eng domain.QueryEngine, from domain.NodeID, rng *rand.Rand) (domain.Edge, bool, error) {
	var (
		pred  domain.PropertyID
		total int64
	)
	err := eng.OutPropertyDist(ctx, from, func(f domain.PropertyFreq) error {
		total += f.Count
		// Weighted reservoir: keep f with probability weight/total-so-far.
		if rng.Int64N(total) < f.Count {
			pred = f.Property
		}
		return nil
	})
	if err != nil {
		return domain.Edge{}, false, err
	}
	if total == 0 {
		return domain.Edge{}, false, nil
	}

	var (
		chosen domain.Edge
		seen   int64
	)
	filter := domain.EdgeFilter{Subject: &from, Predicate: &pred}
	err = eng.Edges(ctx, filter, func(e domain.Edge) error {
		seen++
		if rng.Int64N(seen) == 0 {
			chosen = e
		}
		return nil
	})
	if err != nil {
		return domain.Edge{}, false, err
	}
	return chosen, seen > 0, nil
}
