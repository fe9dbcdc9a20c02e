// Package usecase contains application business logic services.
package usecase

import (
	"log/slog"
	"time"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/observability"
)

// IngestService streams edge sources into graph storage.
type IngestService struct {
	Logger *slog.Logger
}

// NewIngestService constructs an IngestService.
func NewIngestService(logger *slog.Logger) IngestService {
	return IngestService{Logger: logger}
}

// Ingest imports every triple of src through imp and reports what happened.
func (s IngestService) Ingest(ctx domain.Context, src domain.EdgeSource, imp domain.Importer) (domain.ImportStats, error) {
	started := time.Now()
	stats, err := imp.ImportEdges(ctx, src)
	if err != nil {
		return stats, err
	}

	observability.ImportedRowsTotal.Add(float64(stats.Rows))
	observability.ImportedEdgesTotal.Add(float64(stats.Edges))
	s.Logger.Info("ingest finished",
		slog.Int64("rows", stats.Rows),
		slog.Int64("new_nodes", stats.Nodes),
		slog.Int64("new_properties", stats.Properties),
		slog.Int64("new_edges", stats.Edges),
		slog.Duration("elapsed", time.Since(started)))
	return stats, nil
}
