package postgres

import (
	"fmt"

	"log/slog"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Maintenance bundles housekeeping operations that do not belong on the
// graph read/write path.
type Maintenance struct{ Pool PgxPool }

// NewMaintenance constructs a Maintenance service on the given pool.
func NewMaintenance(p PgxPool) *Maintenance { return &Maintenance{Pool: p} }

// Purge drops the graph storage entirely. Statement goes first because of
// its foreign keys.
func (m *Maintenance) Purge(ctx domain.Context) error {
	ctx, span := startSpan(ctx, "graphpg.Purge", "DDL", "statement")
	defer span.End()

	drops := []string{
		`DROP TABLE IF EXISTS statement`,
		`DROP TABLE IF EXISTS node`,
		`DROP TABLE IF EXISTS property`,
		`DROP SEQUENCE IF EXISTS resource_id_seq`,
	}
	for _, q := range drops {
		if _, err := m.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("op=graphpg.purge: %w", err)
		}
	}
	slog.Info("graph storage purged")
	return nil
}

// Analyze refreshes planner statistics. Worth running once after a bulk
// import; walk queries plan badly against stale row estimates.
func (m *Maintenance) Analyze(ctx domain.Context) error {
	ctx, span := startSpan(ctx, "graphpg.Analyze", "DDL", "statement")
	defer span.End()

	for _, q := range []string{`ANALYZE node`, `ANALYZE property`, `ANALYZE statement`} {
		if _, err := m.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("op=graphpg.analyze: %w", err)
		}
	}
	return nil
}
