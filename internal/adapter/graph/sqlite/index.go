package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Index resolves labels and IDs against the node and property tables.
type Index struct{ db *sql.DB }

// NodeIDFor returns the ID for a node label.
func (ix *Index) NodeIDFor(ctx domain.Context, label string) (domain.NodeID, error) {
	id, err := ix.idFor(ctx, `SELECT node_id FROM node WHERE label = ?`, "index.node_id", label)
	return domain.NodeID(id), err
}

// NodeIDsFor resolves node labels in input order, failing on the first
// unknown label.
func (ix *Index) NodeIDsFor(ctx domain.Context, labels []string) ([]domain.NodeID, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	raw, err := ix.idsFor(ctx, `SELECT label, node_id FROM node WHERE label IN (%s)`, "index.node_ids", labels)
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
	return ix.labelFor(ctx, `SELECT label FROM node WHERE node_id = ?`, "index.node_label", int64(id))
}

// NodeLabelsFor resolves node IDs in input order, failing on the first
// unknown ID.
func (ix *Index) NodeLabelsFor(ctx domain.Context, ids []domain.NodeID) ([]string, error) {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	return ix.labelsFor(ctx, `SELECT node_id, label FROM node WHERE node_id IN (%s)`, "index.node_labels", raw)
}

// PropertyIDFor returns the ID for a property label.
func (ix *Index) PropertyIDFor(ctx domain.Context, label string) (domain.PropertyID, error) {
	id, err := ix.idFor(ctx, `SELECT prop_id FROM property WHERE label = ?`, "index.property_id", label)
	return domain.PropertyID(id), err
}

// PropertyIDsFor resolves property labels in input order.
func (ix *Index) PropertyIDsFor(ctx domain.Context, labels []string) ([]domain.PropertyID, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	raw, err := ix.idsFor(ctx, `SELECT label, prop_id FROM property WHERE label IN (%s)`, "index.property_ids", labels)
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
	return ix.labelFor(ctx, `SELECT label FROM property WHERE prop_id = ?`, "index.property_label", int64(id))
}

// PropertyLabelsFor resolves property IDs in input order.
func (ix *Index) PropertyLabelsFor(ctx domain.Context, ids []domain.PropertyID) ([]string, error) {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	return ix.labelsFor(ctx, `SELECT prop_id, label FROM property WHERE prop_id IN (%s)`, "index.property_labels", raw)
}

// Close releases nothing; the graph owns the database handle.
func (ix *Index) Close() error { return nil }

func (ix *Index) idFor(ctx domain.Context, q, op, label string) (int64, error) {
	var id int64
	if err := ix.db.QueryRowContext(ctx, q, label).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("op=%s: %w: label %q", op, domain.ErrNotFound, label)
		}
		return 0, fmt.Errorf("op=%s: %w", op, err)
	}
	return id, nil
}

func (ix *Index) labelFor(ctx domain.Context, q, op string, id int64) (string, error) {
	var label string
	if err := ix.db.QueryRowContext(ctx, q, id).Scan(&label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	args := make([]any, len(labels))
	for i, label := range labels {
		args[i] = label
	}
	rows, err := ix.db.QueryContext(ctx, fmt.Sprintf(q, placeholders(len(labels))), args...)
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
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := ix.db.QueryContext(ctx, fmt.Sprintf(q, placeholders(len(ids))), args...)
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

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
