package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/observability"
)

// QueryEngine streams over the stored graph through database/sql rows, so
// memory stays flat no matter how dense the graph is.
type QueryEngine struct{ db *sql.DB }

// NodeIDs streams all node IDs in ascending order.
func (e *QueryEngine) NodeIDs(ctx domain.Context, fn func(domain.NodeID) error) error {
	return e.streamInt64(ctx, "query.node_ids", `SELECT node_id FROM node ORDER BY node_id`, nil,
		func(v int64) error { return fn(domain.NodeID(v)) })
}

// NodeCount returns the number of nodes.
func (e *QueryEngine) NodeCount(ctx domain.Context) (int64, error) {
	return e.scalar(ctx, "query.node_count", `SELECT COUNT(*) FROM node`, nil)
}

// PropertyIDs streams all property IDs in ascending order.
func (e *QueryEngine) PropertyIDs(ctx domain.Context, fn func(domain.PropertyID) error) error {
	return e.streamInt64(ctx, "query.property_ids", `SELECT prop_id FROM property ORDER BY prop_id`, nil,
		func(v int64) error { return fn(domain.PropertyID(v)) })
}

// PropertyCount returns the number of distinct properties.
func (e *QueryEngine) PropertyCount(ctx domain.Context) (int64, error) {
	return e.scalar(ctx, "query.property_count", `SELECT COUNT(*) FROM property`, nil)
}

// InEdges streams the edges ending at node, in insertion order.
func (e *QueryEngine) InEdges(ctx domain.Context, node domain.NodeID, fn func(domain.Edge) error) error {
	q := `SELECT subj, pred, obj FROM statement WHERE obj = ? ORDER BY no`
	return e.streamEdges(ctx, "query.in_edges", q, []any{int64(node)}, fn)
}

// OutEdges streams the edges starting at node, in insertion order.
func (e *QueryEngine) OutEdges(ctx domain.Context, node domain.NodeID, fn func(domain.Edge) error) error {
	q := `SELECT subj, pred, obj FROM statement WHERE subj = ? ORDER BY no`
	return e.streamEdges(ctx, "query.out_edges", q, []any{int64(node)}, fn)
}

// InPropertyDist streams how many in-edges of node carry each predicate.
func (e *QueryEngine) InPropertyDist(ctx domain.Context, node domain.NodeID, fn func(domain.PropertyFreq) error) error {
	q := `SELECT pred, COUNT(*) FROM statement WHERE obj = ? GROUP BY pred ORDER BY pred`
	return e.streamFreq(ctx, "query.in_property_dist", q, []any{int64(node)}, fn)
}

// OutPropertyDist streams how many out-edges of node carry each predicate.
func (e *QueryEngine) OutPropertyDist(ctx domain.Context, node domain.NodeID, fn func(domain.PropertyFreq) error) error {
	q := `SELECT pred, COUNT(*) FROM statement WHERE subj = ? GROUP BY pred ORDER BY pred`
	return e.streamFreq(ctx, "query.out_property_dist", q, []any{int64(node)}, fn)
}

// Edges streams edges matching the filter, in insertion order.
func (e *QueryEngine) Edges(ctx domain.Context, f domain.EdgeFilter, fn func(domain.Edge) error) error {
	where, args := filterClause(f)
	q := `SELECT subj, pred, obj FROM statement` + where + ` ORDER BY no`
	return e.streamEdges(ctx, "query.edges", q, args, fn)
}

// EdgeCount returns the number of edges matching the filter.
func (e *QueryEngine) EdgeCount(ctx domain.Context, f domain.EdgeFilter) (int64, error) {
	where, args := filterClause(f)
	return e.scalar(ctx, "query.edge_count", `SELECT COUNT(*) FROM statement`+where, args)
}

// Close releases nothing; the graph owns the database handle.
func (e *QueryEngine) Close() error { return nil }

func filterClause(f domain.EdgeFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Subject != nil {
		conds = append(conds, "subj = ?")
		args = append(args, int64(*f.Subject))
	}
	if f.Predicate != nil {
		conds = append(conds, "pred = ?")
		args = append(args, int64(*f.Predicate))
	}
	if f.Object != nil {
		conds = append(conds, "obj = ?")
		args = append(args, int64(*f.Object))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (e *QueryEngine) scalar(ctx domain.Context, op, q string, args []any) (int64, error) {
	observability.GraphQueriesTotal.WithLabelValues(op).Inc()
	var n int64
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=%s: %w", op, err)
	}
	return n, nil
}

func (e *QueryEngine) streamInt64(ctx domain.Context, op, q string, args []any, fn func(int64) error) error {
	observability.GraphQueriesTotal.WithLabelValues(op).Inc()
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("op=%s: %w", op, err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	return nil
}

func (e *QueryEngine) streamEdges(ctx domain.Context, op, q string, args []any, fn func(domain.Edge) error) error {
	observability.GraphQueriesTotal.WithLabelValues(op).Inc()
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var s, p, o int64
		if err := rows.Scan(&s, &p, &o); err != nil {
			return fmt.Errorf("op=%s: %w", op, err)
		}
		edge := domain.Edge{Subject: domain.NodeID(s), Predicate: domain.PropertyID(p), Object: domain.NodeID(o)}
		if err := fn(edge); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	return nil
}

func (e *QueryEngine) streamFreq(ctx domain.Context, op, q string, args []any, fn func(domain.PropertyFreq) error) error {
	observability.GraphQueriesTotal.WithLabelValues(op).Inc()
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p, n int64
		if err := rows.Scan(&p, &n); err != nil {
			return fmt.Errorf("op=%s: %w", op, err)
		}
		if err := fn(domain.PropertyFreq{Property: domain.PropertyID(p), Count: n}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	return nil
}
