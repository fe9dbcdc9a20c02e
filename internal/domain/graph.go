package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
	ErrCorrupt         = errors.New("corrupt data")
)

// NodeID and PropertyID identify graph resources. Both are allocated from a
// single sequence per graph, so a value is never a node ID and a property ID
// at the same time. Sentences rely on that.
type (
	NodeID     int64
	PropertyID int64
)

// Edge is one directed labeled statement: subject --predicate--> object.
type Edge struct {
	Subject   NodeID
	Predicate PropertyID
	Object    NodeID
}

// LabelTriple is an edge as read from an external source, still in label
// (IRI or literal) form. Labels are opaque; nothing normalizes them.
type LabelTriple struct {
	Subject   string
	Predicate string
	Object    string
}

// PropertyFreq is one entry of a predicate frequency distribution.
type PropertyFreq struct {
	Property PropertyID
	Count    int64
}

// EdgeFilter restricts an edge scan. A nil field matches anything.
type EdgeFilter struct {
	Subject   *NodeID
	Predicate *PropertyID
	Object    *NodeID
}

// Matches reports whether e passes the filter.
func (f EdgeFilter) Matches(e Edge) bool {
	if f.Subject != nil && e.Subject != *f.Subject {
		return false
	}
	if f.Predicate != nil && e.Predicate != *f.Predicate {
		return false
	}
	if f.Object != nil && e.Object != *f.Object {
		return false
	}
	return true
}

// ImportStats counts the outcome of one import run. Nodes, Properties and
// Edges count newly created rows; Rows counts triples read from the source.
type ImportStats struct {
	Rows       int64
	Nodes      int64
	Properties int64
	Edges      int64
}

// Add accumulates another batch outcome.
func (s *ImportStats) Add(o ImportStats) {
	s.Rows += o.Rows
	s.Nodes += o.Nodes
	s.Properties += o.Properties
	s.Edges += o.Edges
}

// Graph ports

// Graph hands out views over one stored knowledge graph.
type Graph interface {
	Index(ctx Context) (Index, error)
	QueryEngine(ctx Context) (QueryEngine, error)
}

// EmbeddedGraph is a graph this process can also write to.
type EmbeddedGraph interface {
	Graph
	Importer
}

// Index resolves between labels and IDs in both directions. Unknown labels
// and IDs yield ErrNotFound; batch lookups fail on the first unknown element
// and preserve input order on success.
type Index interface {
	NodeIDFor(ctx Context, label string) (NodeID, error)
	NodeIDsFor(ctx Context, labels []string) ([]NodeID, error)
	NodeLabelFor(ctx Context, id NodeID) (string, error)
	NodeLabelsFor(ctx Context, ids []NodeID) ([]string, error)
	PropertyIDFor(ctx Context, label string) (PropertyID, error)
	PropertyIDsFor(ctx Context, labels []string) ([]PropertyID, error)
	PropertyLabelFor(ctx Context, id PropertyID) (string, error)
	PropertyLabelsFor(ctx Context, ids []PropertyID) ([]string, error)
	Close() error
}

// QueryEngine streams over the stored graph. All streams invoke fn once per
// element and hold O(1) state regardless of node degree; an error returned
// by fn aborts the stream and is passed through unchanged.
type QueryEngine interface {
	NodeIDs(ctx Context, fn func(NodeID) error) error
	NodeCount(ctx Context) (int64, error)
	PropertyIDs(ctx Context, fn func(PropertyID) error) error
	PropertyCount(ctx Context) (int64, error)

	// InEdges and OutEdges stream the edges ending or starting at node, in
	// insertion order.
	InEdges(ctx Context, node NodeID, fn func(Edge) error) error
	OutEdges(ctx Context, node NodeID, fn func(Edge) error) error

	// InPropertyDist and OutPropertyDist stream, per predicate, how many
	// in- or out-edges of node carry it.
	InPropertyDist(ctx Context, node NodeID, fn func(PropertyFreq) error) error
	OutPropertyDist(ctx Context, node NodeID, fn func(PropertyFreq) error) error

	Edges(ctx Context, f EdgeFilter, fn func(Edge) error) error
	EdgeCount(ctx Context, f EdgeFilter) (int64, error)

	Close() error
}

// Importer ingests label triples into graph storage. Re-importing a triple
// is a no-op; labels seen before resolve to their existing IDs.
type Importer interface {
	ImportEdges(ctx Context, src EdgeSource) (ImportStats, error)
}

// EdgeSource streams label triples from somewhere external.
type EdgeSource interface {
	Each(ctx Context, fn func(LabelTriple) error) error
}

// TripleList is an in-memory EdgeSource.
type TripleList []LabelTriple

func (l TripleList) Each(ctx Context, fn func(LabelTriple) error) error {
	for _, t := range l {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// Context aliases the std context so ports read uniformly; adapters and
// usecases pass context.Context straight through.
type Context = context.Context
