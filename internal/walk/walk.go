// Package walk samples random walks over a stored graph.
//
// Strategies consume the streaming query engine, so one step costs O(1)
// memory even on hub nodes with millions of out-edges. Sampling is
// reservoir-based: one pass over the stream, no adjacency list.
package walk

import (
	"fmt"
	"math/rand/v2"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Strategy picks the next edge of a walk. ok is false at a dead end.
type Strategy interface {
	Step(ctx domain.Context, eng domain.QueryEngine, from domain.NodeID, rng *rand.Rand) (e domain.Edge, ok bool, err error)
}

// ForName maps a strategy name to its implementation.
func ForName(name string) (Strategy, error) {
	switch name {
	case "uniform":
		return Uniform{}, nil
	case "weighted":
		return PropertyWeighted{}, nil
	default:
		return nil, fmt.Errorf("op=walk.strategy: %w: unknown strategy %q", domain.ErrInvalidArgument, name)
	}
}

// Walk samples one walk of at most depth hops starting at start. The
// sentence interleaves node and property IDs, v0 p1 v1 p2 v2 ..., and ends
// early at a dead end; a depth-D walk holds at most 2*D+1 words.
//
// Given a seeded rng and a stable edge enumeration order, the result is
// deterministic.
func Walk(ctx domain.Context, eng domain.QueryEngine, strat Strategy, start domain.NodeID, depth int, rng *rand.Rand) (domain.Sentence, error) {
	if depth < 0 {
		return nil, fmt.Errorf("op=walk.walk: %w: negative depth %d", domain.ErrInvalidArgument, depth)
	}
	sentence := make(domain.Sentence, 1, 2*depth+1)
	sentence[0] = domain.Word(start)

	cur := start
	for i := 0; i < depth; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edge, ok, err := strat.Step(ctx, eng, cur, rng)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		sentence = append(sentence, domain.Word(edge.Predicate), domain.Word(edge.Object))
		cur = edge.Object
	}
	return sentence, nil
}
