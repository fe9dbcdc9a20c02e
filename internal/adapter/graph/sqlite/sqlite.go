// Package sqlite stores knowledge graphs in a single SQLite file.
//
// The logical schema matches the PostgreSQL backend. SQLite has no shared
// sequences, so the disjoint node/property ID space is kept by a single-row
// resource_sequence table bumped inside the import transaction.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// DefaultBatchSize bounds how many triples one import transaction carries.
const DefaultBatchSize = 5000

var schema = []string{
	`CREATE TABLE IF NOT EXISTS resource_sequence (
		id    INTEGER PRIMARY KEY CHECK (id = 1),
		value INTEGER NOT NULL
	)`,
	`INSERT OR IGNORE INTO resource_sequence (id, value) VALUES (1, 0)`,
	`CREATE TABLE IF NOT EXISTS node (
		node_id INTEGER PRIMARY KEY,
		label   TEXT    NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS property (
		prop_id INTEGER PRIMARY KEY,
		label   TEXT    NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS statement (
		no   INTEGER PRIMARY KEY AUTOINCREMENT,
		subj INTEGER NOT NULL REFERENCES node (node_id),
		pred INTEGER NOT NULL REFERENCES property (prop_id),
		obj  INTEGER NOT NULL REFERENCES node (node_id),
		UNIQUE (subj, pred, obj)
	)`,
	`CREATE INDEX IF NOT EXISTS statement_obj_idx ON statement (obj)`,
	`CREATE INDEX IF NOT EXISTS statement_pred_idx ON statement (pred)`,
}

// Graph is a SQLite-backed embedded graph.
type Graph struct {
	DB *sql.DB
	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
}

// Open opens (or creates) the database file at path and prepares the schema.
func Open(path string) (*Graph, error) {
	if path == "" {
		return nil, fmt.Errorf("op=graphsqlite.open: %w: empty path", domain.ErrInvalidArgument)
	}
	// WAL, so readers run concurrently: streams hold their connection
	// while the callback runs, and walkers query edges with the node
	// enumeration still open. The import transaction is the only writer.
	dsn := "file:" + path + "?" + url.Values{
		"_busy_timeout": {"5000"},
		"_journal_mode": {"WAL"},
		"_foreign_keys": {"on"},
	}.Encode()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("op=graphsqlite.open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("op=graphsqlite.open: %w", err)
	}
	g := &Graph{DB: db}
	if err := g.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

func (g *Graph) ensureSchema() error {
	for _, q := range schema {
		if _, err := g.DB.Exec(q); err != nil {
			return fmt.Errorf("op=graphsqlite.ensure_schema: %w", err)
		}
	}
	return nil
}

// Index returns a label/ID resolver over this graph.
func (g *Graph) Index(_ domain.Context) (domain.Index, error) {
	return &Index{db: g.DB}, nil
}

// QueryEngine returns a streaming view over this graph.
func (g *Graph) QueryEngine(_ domain.Context) (domain.QueryEngine, error) {
	return &QueryEngine{db: g.DB}, nil
}

// Purge drops the graph tables. The file stays; reopening recreates the
// schema empty.
func (g *Graph) Purge(ctx domain.Context) error {
	drops := []string{
		`DROP TABLE IF EXISTS statement`,
		`DROP TABLE IF EXISTS node`,
		`DROP TABLE IF EXISTS property`,
		`DROP TABLE IF EXISTS resource_sequence`,
	}
	for _, q := range drops {
		if _, err := g.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("op=graphsqlite.purge: %w", err)
		}
	}
	return g.ensureSchema()
}

// Close closes the database file.
func (g *Graph) Close() error {
	if err := g.DB.Close(); err != nil {
		return fmt.Errorf("op=graphsqlite.close: %w", err)
	}
	return nil
}

func (g *Graph) batchSize() int {
	if g.BatchSize > 0 {
		return g.BatchSize
	}
	return DefaultBatchSize
}
