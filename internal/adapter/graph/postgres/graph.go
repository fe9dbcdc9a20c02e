package postgres

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// DefaultBatchSize bounds how many triples one import transaction carries.
const DefaultBatchSize = 5000

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS resource_id_seq`,
	`CREATE TABLE IF NOT EXISTS node (
		node_id BIGINT PRIMARY KEY DEFAULT nextval('resource_id_seq'),
		label   TEXT   NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS property (
		prop_id BIGINT PRIMARY KEY DEFAULT nextval('resource_id_seq'),
		label   TEXT   NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS statement (
		no   BIGSERIAL PRIMARY KEY,
		subj BIGINT NOT NULL REFERENCES node (node_id),
		pred BIGINT NOT NULL REFERENCES property (prop_id),
		obj  BIGINT NOT NULL REFERENCES node (node_id),
		UNIQUE (subj, pred, obj)
	)`,
	`CREATE INDEX IF NOT EXISTS statement_obj_idx ON statement (obj)`,
	`CREATE INDEX IF NOT EXISTS statement_pred_idx ON statement (pred)`,
}

// Graph is a PostgreSQL-backed embedded graph.
type Graph struct {
	Pool PgxPool
	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
}

// NewGraph constructs a Graph on the given pool.
func NewGraph(p PgxPool) *Graph { return &Graph{Pool: p} }

// EnsureSchema creates tables, sequence and indexes if missing.
func (g *Graph) EnsureSchema(ctx domain.Context) error {
	tracer := otel.Tracer("repo.graphpg")
	ctx, span := tracer.Start(ctx, "graphpg.EnsureSchema")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "DDL"),
	)
	for _, q := range schema {
		if _, err := g.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("op=graphpg.ensure_schema: %w", err)
		}
	}
	return nil
}

// Index returns a label/ID resolver over this graph. It fails with
// ErrUnavailable when the schema has not been created yet.
func (g *Graph) Index(ctx domain.Context) (domain.Index, error) {
	if err := g.ready(ctx); err != nil {
		return nil, err
	}
	return &Index{Pool: g.Pool}, nil
}

// QueryEngine returns a streaming view over this graph. Same readiness rule
// as Index.
func (g *Graph) QueryEngine(ctx domain.Context) (domain.QueryEngine, error) {
	if err := g.ready(ctx); err != nil {
		return nil, err
	}
	return &QueryEngine{Pool: g.Pool}, nil
}

// ready verifies the statement table exists.
func (g *Graph) ready(ctx domain.Context) error {
	var reg *string
	row := g.Pool.QueryRow(ctx, `SELECT to_regclass('statement')::text`)
	if err := row.Scan(&reg); err != nil {
		return fmt.Errorf("op=graphpg.ready: %w", err)
	}
	if reg == nil {
		return fmt.Errorf("op=graphpg.ready: %w: graph schema missing", domain.ErrUnavailable)
	}
	return nil
}

func (g *Graph) batchSize() int {
	if g.BatchSize > 0 {
		return g.BatchSize
	}
	return DefaultBatchSize
}
