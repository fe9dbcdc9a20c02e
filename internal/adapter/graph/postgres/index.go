package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Index resolves labels and IDs against the node and property tables.
type Index struct{ Pool PgxPool }

func startSpan(ctx domain.Context, name, sqlOp, table string) (domain.Context, trace.Span) {
	tracer := otel.Tracer("repo.graphpg")
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", sqlOp),
		attribute.String("db.sql.table", table),
	)
	return ctx, span
}

// NodeIDFor returns the ID for a node label.
func (ix *Index) NodeIDFor(ctx domain.Context, label string) (domain.NodeID, error) {
	ctx, span := startSpan(ctx, "index.NodeIDFor", "SELECT", "node")
	defer span.End()
	id, err := ix.idFor(ctx, `SELECT node_id FROM node WHERE label = $1`, "index.node_id", label)
	return domain.NodeID(id), err
}

// NodeIDsFor resolves node labels in input order, failing on the first
// unknown label.
func (ix *Index) NodeIDsFor(ctx domain.Context, labels []string) ([]domain.NodeID, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "index.NodeIDsFor", "SELECT", "node")
	defer span.End()
	raw, err := ix.idsFor(ctx, `SELECT label, node_id FROM node WHERE label = ANY($1)`, "index.node_ids", labels)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.NodeID, len(raw))
	for i, v := range raw {
		ids[i] = domain.NodeID(v)
	}
	return ids, nil
}

// NodeLabelFor returns the label for a node ID.
func (ix *Index) NodeLabelFor(ctx domain.Context, id domain.NodeID) (string, error) {
	ctx, span := startSpan(ctx, "index.NodeLabelFor", "SELECT", "node")
	defer span.End()
	return ix.labelFor(ctx, `SELECT label FROM node WHERE node_id = $1`, "index.node_label", int64(id))
}

// NodeLabelsFor resolves node IDs in input order, failing on the first
// unknown ID.
func (ix *Index) NodeLabelsFor(ctx domain.Context, ids []domain.NodeID) ([]string, error) {
	ctx, span := startSpan(ctx, "index.NodeLabelsFor", "SELECT", "node")
	defer span.End()
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	return ix.labelsFor(ctx, `SELECT node_id, label FROM node WHERE node_id = ANY($1)`, "index.node_labels", raw)
}

// PropertyIDFor returns the ID for a property label.
func (ix *Index) PropertyIDFor(ctx domain.Context, label string) (domain.PropertyID, error) {
	ctx, span := startSpan(ctx, "index.PropertyIDFor", "SELECT", "property")
	defer span.End()
	id, err := ix.idFor(ctx, `SELECT prop_id FROM property WHERE label = $1`, "index.property_id", label)
	return domain.PropertyID(id), err
}

// PropertyIDsFor resolves property labels in input order.
func (ix *Index) PropertyIDsFor(ctx domain.Context, labels []string) ([]domain.PropertyID, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "index.PropertyIDsFor", "SELECT", "property")
	defer span.End()
	raw, err := ix.idsFor(ctx, `SELECT label, prop_id FROM property WHERE label = ANY($1)`, "index.property_ids", labels)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.PropertyID, len(raw))
	for i, v := range raw {
		ids[i] = domain.PropertyID(v)
	}
	return ids, nil
}

// PropertyLabelFor returns the label for a property ID.
func (ix *Index) PropertyLabelFor(ctx domain.Context, id domain.PropertyID) (string, error) {
	ctx, span := startSpan(ctx, "index.PropertyLabelFor", "SELECT", "property")
	defer span.End()
	return ix.labelFor(ctx, `SELECT label FROM property WHERE prop_id = $1`, "index.property_label", int64(id))
}

// PropertyLabelsFor resolves property IDs in input order.
func (ix *Index) PropertyLabelsFor(ctx domain.Context, ids []domain.PropertyID) ([]string, error) {
	ctx, span := startSpan(ctx, "index.PropertyLabelsFor", "SELECT", "property")
	defer span.End()
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	return ix.labelsFor(ctx, `SELECT prop_id, label FROM property WHERE prop_id = ANY($1)`, "index.property_labels", raw)
}

// Close releases nothing; the pool outlives the index.
func (ix *Index) Close() error { return nil }

func (ix *Index) idFor(ctx domain.Context, q, op, label string) (int64, error) {
	var id int64
	if err := ix.Pool.QueryRow(ctx, q, label).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("op=%s: %w: label %q", op, domain.ErrNotFound, label)
		}
		return 0, fmt.Errorf("op=%s: %w", op, err)
	}
	return id, nil
}

func (ix *Index) labelFor(ctx domain.Context, q, op string, id int64) (string, error) {
	var label string
	if err := ix.Pool.QueryRow(ctx, q, id).Scan(&label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("op=%s: %w: id %d", op, domain.ErrNotFound, id)
		}
		return "", fmt.Errorf("op=%s: %w", op, err)
	}
	return label, nil
}

func (ix *Index) idsFor(ctx domain.Context, q, op string, labels []string) ([]int64, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	rows, err := ix.Pool.Query(ctx, q, labels)
	if err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()

	byLabel := make(map[string]int64, len(labels))
	for rows.Next() {
		var (
			label string
			id    int64
		)
		if err := rows.Scan(&label, &id); err != nil {
			return nil, fmt.Errorf("op=%s: %w", op, err)
		}
		byLabel[label] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}

	out := make([]int64, len(labels))
	for i, label := range labels {
		id, ok := byLabel[label]
		if !ok {
			return nil, fmt.Errorf("op=%s: %w: label %q", op, domain.ErrNotFound, label)
		}
		out[i] = id
	}
	return out, nil
}

func (ix *Index) labelsFor(ctx domain.Context, q, op string, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := ix.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()

	byID := make(map[int64]string, len(ids))
	for rows.Next() {
		var (
			id    int64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("op=%s: %w", op, err)
		}
		byID[id] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		label, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("op=%s: %w: id %d", op, domain.ErrNotFound, id)
		}
		out[i] = label
	}
	return out, nil
}
