package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/labelcache"
)

// ImportEdges streams src into the graph in transactions of BatchSize
// triples. Unlike the set-based PostgreSQL flow, rows go in one at a time;
// the file is local, so the per-statement cost is a function call, not a
// network round trip.
func (g *Graph) ImportEdges(ctx domain.Context, src domain.EdgeSource) (domain.ImportStats, error) {
	var stats domain.ImportStats

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
	return stats, nil
}

func (g *Graph) flushBatch(ctx domain.Context, batch []domain.LabelTriple, nodes, props *labelcache.Cache[string, int64], stats *domain.ImportStats) error {
	tx, err := g.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("op=graphsqlite.import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, t := range batch {
		subj, err := g.resolve(ctx, tx, nodes, nodeTable, t.Subject, &stats.Nodes)
		if err != nil {
			return err
		}
		pred, err := g.resolve(ctx, tx, props, propertyTable, t.Predicate, &stats.Properties)
		if err != nil {
			return err
		}
		obj, err := g.resolve(ctx, tx, nodes, nodeTable, t.Object, &stats.Nodes)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO statement (subj, pred, obj) VALUES (?, ?, ?)`,
			subj, pred, obj)
		if err != nil {
			return fmt.Errorf("op=graphsqlite.import: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("op=graphsqlite.import: %w", err)
		}
		stats.Edges += n
		stats.Rows++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("op=graphsqlite.import: %w", err)
	}
	return nil
}

type resourceTable struct {
	selectSQL string
	insertSQL string
}

var (
	nodeTable = resourceTable{
		selectSQL: `SELECT node_id FROM node WHERE label = ?`,
		insertSQL: `INSERT INTO node (node_id, label) VALUES (?, ?)`,
	}
	propertyTable = resourceTable{
		selectSQL: `SELECT prop_id FROM property WHERE label = ?`,
		insertSQL: `INSERT INTO property (prop_id, label) VALUES (?, ?)`,
	}
)

// resolve maps label to its ID, allocating a fresh one from the shared
// sequence when the label is new. created is bumped on allocation.
func (g *Graph) resolve(ctx domain.Context, tx *sql.Tx, cache *labelcache.Cache[string, int64], table resourceTable, label string, created *int64) (int64, error) {
	if id, ok := cache.Get(label); ok {
		return id, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, table.selectSQL, label).Scan(&id)
	switch {
	case err == nil:
		cache.Put(label, id)
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("op=graphsqlite.import: %w", err)
	}

	id, err = nextID(ctx, tx)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, table.insertSQL, id, label); err != nil {
		return 0, fmt.Errorf("op=graphsqlite.import: %w", err)
	}
	cache.Put(label, id)
	*created++
	return id, nil
}

// nextID bumps the shared sequence row. Running inside the import
// transaction keeps allocation atomic with the insert that uses it.
func nextID(ctx domain.Context, tx *sql.Tx) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`UPDATE resource_sequence SET value = value + 1 WHERE id = 1 RETURNING value`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=graphsqlite.import: %w", err)
	}
	return id, nil
}
