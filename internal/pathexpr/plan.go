// Package pathexpr implements the read-only path-expression builder (C3):
// a node query builder and a traversal builder that render the ASCII-arrow
// lingua franca into a deterministic text form plus a structured Plan a
// graph backend executes directly.
package pathexpr

import "context"

// Direction constrains which way an edge step may be traversed.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
	Any      Direction = "any"
)

// OrderDir is ascending or descending sort order.
type OrderDir string

const (
	Asc  OrderDir = "ASC"
	Desc OrderDir = "DESC"
)

// Predicate is one bound condition: `field op $paramRef`.
type Predicate struct {
	Field string
	Op    string // "=", "!=", "<", "<=", ">", ">="
	Param string // e.g. "$p1"
}

// NodePattern is one node step in a plan: a label and its predicates.
type NodePattern struct {
	Alias string
	Label string
	Where []Predicate
}

// EdgeStep is one traversal hop: edge types, direction, hop bounds, and any
// edge-level predicates attached via WhereEdge.
type EdgeStep struct {
	Types     []string
	Direction Direction
	MinHops   int
	MaxHops   int
	Where     []Predicate
}

// TraversalHop pairs one edge step with the node pattern it arrives at.
type TraversalHop struct {
	Edge EdgeStep
	To   NodePattern
}

// OrderClause is a single ORDER BY field/direction pair.
type OrderClause struct {
	Field string
	Dir   OrderDir
}

// PlanKind distinguishes a single-node query from a multi-hop traversal.
type PlanKind string

const (
	PlanNodeQuery PlanKind = "node_query"
	PlanTraversal PlanKind = "traversal"
)

// Plan is the structured AST a graph backend executes directly — the
// "concrete Cypher emission is an implementation choice" the lingua franca
// allows.
type Plan struct {
	Kind      PlanKind
	From      NodePattern
	Hops      []TraversalHop
	Limit     *int
	Offset    *int
	OrderBy   *OrderClause
	Returning []string
	Distinct  bool
	Params    []any
}

// Row is one result row, keyed by return alias (or node/edge field name for
// a plain node query).
type Row map[string]any

// Executor runs a built Plan against a concrete graph backend. Implemented
// by the graph store (or its in-memory reference implementation) per §6.3.
type Executor interface {
	Execute(ctx context.Context, plan *Plan) ([]Row, error)
}
