package postgres

import (
	"fmt"

	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/labelcache"
)

const (
	insertNodesSQL = `INSERT INTO node (label) SELECT unnest($1::text[]) ON CONFLICT (label) DO NOTHING`
	selectNodesSQL = `SELECT label, node_id FROM node WHERE label = ANY($1)`
	insertPropsSQL = `INSERT INTO property (label) SELECT unnest($1::text[]) ON CONFLICT (label) DO NOTHING`
	selectPropsSQL = `SELECT label, prop_id FROM property WHERE label = ANY($1)`
	insertEdgesSQL = `INSERT INTO statement (subj, pred, obj)
		SELECT * FROM unnest($1::bigint[], $2::bigint[], $3::bigint[])
		ON CONFLICT (subj, pred, obj) DO NOTHING`
)

// ImportEdges streams src into the graph in transactions of BatchSize
// triples. Labels resolve through a bounded cache; each batch costs five
// statements no matter how many triples it carries.
func (g *Graph) ImportEdges(ctx domain.Context, src domain.EdgeSource) (domain.ImportStats, error) {
	ctx, span := startSpan(ctx, "graphpg.ImportEdges", "INSERT", "statement")
	defer span.End()

	var stats domain.ImportStats
	if err := g.EnsureSchema(ctx); err != nil {
		return stats, err
	}

	nodes := labelcache.New[string, int64](labelcache.DefaultImportSize)
	props := labelcache.New[string, int64](labelcache.DefaultImportSize)

	size := g.batchSize()
	batch := make([]domain.LabelTriple, 0, size)
	err := src.Each(ctx, func(t domain.LabelTriple) error {
		batch = append(batch, t)
		if len(batch) < size {
			return nil
		}
		if err := g.flushBatch(ctx, batch, nodes, props, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	})
	if err != nil {
		return stats, err
	}
	if len(batch) > 0 {
		if err := g.flushBatch(ctx, batch, nodes, props, &stats); err != nil {
			return stats, err
		}
	}

	nodeStats := nodes.Snapshot()
	slog.Debug("import finished",
		slog.Int64("rows", stats.Rows),
		slog.Int64("new_edges", stats.Edges),
		slog.Float64("label_cache_hit_rate", nodeStats.HitRate))
	return stats, nil
}

func (g *Graph) flushBatch(ctx domain.Context, batch []domain.LabelTriple, nodes, props *labelcache.Cache[string, int64], stats *domain.ImportStats) error {
	tx, err := g.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=graphpg.import: %w", err)
	}
	defer tx.Rollback(ctx)

	resolvedNodes := make(map[string]int64)
	resolvedProps := make(map[string]int64)
	missingNodes := make(map[string]struct{})
	missingProps := make(map[string]struct{})

	for _, t := range batch {
		for _, label := range []string{t.Subject, t.Object} {
			if _, ok := resolvedNodes[label]; ok {
				continue
			}
			if id, ok := nodes.Get(label); ok {
				resolvedNodes[label] = id
			} else {
				missingNodes[label] = struct{}{}
			}
		}
		if _, ok := resolvedProps[t.Predicate]; ok {
			continue
		}
		if id, ok := props.Get(t.Predicate); ok {
			resolvedProps[t.Predicate] = id
		} else {
			missingProps[t.Predicate] = struct{}{}
		}
	}

	created, err := resolveMissing(ctx, tx, insertNodesSQL, selectNodesSQL, missingNodes, resolvedNodes, nodes)
	if err != nil {
		return err
	}
	stats.Nodes += created

	created, err = resolveMissing(ctx, tx, insertPropsSQL, selectPropsSQL, missingProps, resolvedProps, props)
	if err != nil {
		return err
	}
	stats.Properties += created

	subjs := make([]int64, len(batch))
	preds := make([]int64, len(batch))
	objs := make([]int64, len(batch))
	for i, t := range batch {
		subjs[i] = resolvedNodes[t.Subject]
		preds[i] = resolvedProps[t.Predicate]
		objs[i] = resolvedNodes[t.Object]
	}
	tag, err := tx.Exec(ctx, insertEdgesSQL, subjs, preds, objs)
	if err != nil {
		return fmt.Errorf("op=graphpg.import: %w", err)
	}
	stats.Edges += tag.RowsAffected()
	stats.Rows += int64(len(batch))

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=graphpg.import: %w", err)
	}
	return nil
}

// resolveMissing inserts unseen labels, then reads their IDs back into the
// resolved map and the cache. Returns how many labels were newly created.
func resolveMissing(ctx domain.Context, tx pgx.Tx, insertSQL, selectSQL string, missing map[string]struct{}, resolved map[string]int64, cache *labelcache.Cache[string, int64]) (int64, error) {
	if len(missing) == 0 {
		return 0, nil
	}
	labels := make([]string, 0, len(missing))
	for label := range missing {
		labels = append(labels, label)
	}

	tag, err := tx.Exec(ctx, insertSQL, labels)
	if err != nil {
		return 0, fmt.Errorf("op=graphpg.import: %w", err)
	}

	rows, err := tx.Query(ctx, selectSQL, labels)
	if err != nil {
		return 0, fmt.Errorf("op=graphpg.import: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			label string
			id    int64
		)
		if err := rows.Scan(&label, &id); err != nil {
			return 0, fmt.Errorf("op=graphpg.import: %w", err)
		}
		resolved[label] = id
		cache.Put(label, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("op=graphpg.import: %w", err)
	}

	for _, label := range labels {
		if _, ok := resolved[label]; !ok {
			return 0, fmt.Errorf("op=graphpg.import: label %q unresolved after insert", label)
		}
	}
	return tag.RowsAffected(), nil
}
