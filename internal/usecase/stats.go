package usecase

import (
	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// GraphStats summarizes what a graph currently holds.
type GraphStats struct {
	Nodes      int64 `json:"nodes"`
	Properties int64 `json:"properties"`
	Edges      int64 `json:"edges"`
}

// StatsService reads graph-level counts.
type StatsService struct {
	Graph domain.Graph
}

// NewStatsService constructs a StatsService.
func NewStatsService(g domain.Graph) StatsService {
	return StatsService{Graph: g}
}

// Stats returns node, property and edge counts. It doubles as a readiness
// probe: it fails when the storage is unreachable or missing its schema.
func (s StatsService) Stats(ctx domain.Context) (GraphStats, error) {
	var out GraphStats
	eng, err := s.Graph.QueryEngine(ctx)
	if err != nil {
		return out, err
	}
	defer func() { _ = eng.Close() }()

	if out.Nodes, err = eng.NodeCount(ctx); err != nil {
		return out, err
	}
	if out.Properties, err = eng.PropertyCount(ctx); err != nil {
		return out, err
	}
	if out.Edges, err = eng.EdgeCount(ctx, domain.EdgeFilter{}); err != nil {
		return out, err
	}
	return out, nil
}
