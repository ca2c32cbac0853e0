// Package schema implements the declarative node/edge schema registry (C2):
// a mapping from node label to field map, and from edge type to a
// from/to/cardinality/temporal descriptor.
package schema

import (
	"fmt"
)

// FieldKind enumerates the scalar and composite field types a schema field
// may declare.
type FieldKind string

const (
	KindString    FieldKind = "string"
	KindInt       FieldKind = "int"
	KindFloat     FieldKind = "float"
	KindBool      FieldKind = "bool"
	KindTimestamp FieldKind = "timestamp"
	KindEnum      FieldKind = "enum"
	KindArray     FieldKind = "array"
)

// Field describes one field of a node or edge-property record.
type Field struct {
	Name      string
	Kind      FieldKind
	Optional  bool
	Default   any
	Enum      []string  // required, non-empty, when Kind == KindEnum
	ElemKind  FieldKind // required when Kind == KindArray
	Min, Max  *float64
	MaxLength *int
}

// Cardinality describes how many edges of a type may exist per source node.
type Cardinality string

const (
	OneToOne  Cardinality = "1:1"
	OneToMany Cardinality = "1:N"
	ManyToMany Cardinality = "M:N"
)

// NodeDef is the field map for one node label.
type NodeDef struct {
	Label  string
	Fields []Field
}

// EdgeDef describes one edge type: its endpoints, cardinality, whether it is
// bitemporal (all graph edges are, per §3.1, so this is carried for
// completeness and future non-bitemporal extensions), and an optional
// edge-property field map (e.g. MENTIONS' context/confidence/count).
type EdgeDef struct {
	Type        string
	From        string
	To          string
	Cardinality Cardinality
	Temporal    bool
	Props       []Field
}

// SchemaError reports a structural defect detected at registry construction.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string { return "schema error: " + e.Message }

// Registry is an immutable, validated mapping of node labels and edge types.
// Once constructed it is safe for concurrent reads without synchronization
// (§5: "constructed once at startup, thereafter read-only").
type Registry struct {
	nodes  map[string]NodeDef
	edges  map[string]EdgeDef
	errs   []string
	nodeOrder []string
	edgeOrder []string
}

// DefineSchema constructs and validates a registry in one step. It never
// returns a registry whose IsValid() is false silently — construction fails
// with a *SchemaError naming the first validation failure, while
// ValidationErrors() on a successfully constructed registry is always empty.
func DefineSchema(nodes []NodeDef, edges []EdgeDef) (*Registry, error) {
	r := &Registry{
		nodes: make(map[string]NodeDef, len(nodes)),
		edges: make(map[string]EdgeDef, len(edges)),
	}
	for _, n := range nodes {
		if _, exists := r.nodes[n.Label]; exists {
			return nil, &SchemaError{Message: fmt.Sprintf("duplicate node label %q", n.Label)}
		}
		r.nodes[n.Label] = n
		r.nodeOrder = append(r.nodeOrder, n.Label)
	}
	for _, e := range edges {
		if _, exists := r.edges[e.Type]; exists {
			return nil, &SchemaError{Message: fmt.Sprintf("duplicate edge type %q", e.Type)}
		}
		r.edges[e.Type] = e
		r.edgeOrder = append(r.edgeOrder, e.Type)
	}

	r.errs = r.collectValidationErrors()
	if len(r.errs) > 0 {
		return nil, &SchemaError{Message: r.errs[0]}
	}
	return r, nil
}

func (r *Registry) collectValidationErrors() []string {
	var errs []string
	for _, e := range r.edges {
		if _, ok := r.nodes[e.From]; !ok {
			errs = append(errs, fmt.Sprintf("edge %q: unknown from-label %q", e.Type, e.From))
		}
		if _, ok := r.nodes[e.To]; !ok {
			errs = append(errs, fmt.Sprintf("edge %q: unknown to-label %q", e.Type, e.To))
		}
	}
	for _, n := range r.nodes {
		for _, f := range n.Fields {
			errs = append(errs, validateField(n.Label, f)...)
		}
	}
	for _, e := range r.edges {
		for _, f := range e.Props {
			errs = append(errs, validateField(e.Type, f)...)
		}
	}
	return errs
}

func validateField(owner string, f Field) []string {
	var errs []string
	if f.Kind == KindEnum && len(f.Enum) == 0 {
		errs = append(errs, fmt.Sprintf("%s.%s: enum field requires a non-empty literal set", owner, f.Name))
	}
	if f.Kind == KindArray && f.ElemKind == "" {
		errs = append(errs, fmt.Sprintf("%s.%s: array field requires an element type", owner, f.Name))
	}
	return errs
}

// IsValid reports whether the registry has zero validation errors. A
// Registry returned by DefineSchema is always valid; this exists so callers
// holding a *Registry from elsewhere (e.g. deserialized) can re-check.
func (r *Registry) IsValid() bool { return len(r.errs) == 0 }

// ValidationErrors returns the full list of structural defects found at
// construction (empty for any registry actually returned by DefineSchema).
func (r *Registry) ValidationErrors() []string { return r.errs }

// NodeLabels returns all defined node labels in declaration order.
func (r *Registry) NodeLabels() []string {
	out := make([]string, len(r.nodeOrder))
	copy(out, r.nodeOrder)
	return out
}

// EdgeTypes returns all defined edge types in declaration order.
func (r *Registry) EdgeTypes() []string {
	out := make([]string, len(r.edgeOrder))
	copy(out, r.edgeOrder)
	return out
}

// Node looks up a node definition by label.
func (r *Registry) Node(label string) (NodeDef, bool) {
	n, ok := r.nodes[label]
	return n, ok
}

// Edge looks up an edge definition by type.
func (r *Registry) Edge(edgeType string) (EdgeDef, bool) {
	e, ok := r.edges[edgeType]
	return e, ok
}

// EdgesFrom returns every edge type whose From label matches label.
func (r *Registry) EdgesFrom(label string) []EdgeDef {
	var out []EdgeDef
	for _, t := range r.edgeOrder {
		if e := r.edges[t]; e.From == label {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge type whose To label matches label.
func (r *Registry) EdgesTo(label string) []EdgeDef {
	var out []EdgeDef
	for _, t := range r.edgeOrder {
		if e := r.edges[t]; e.To == label {
			out = append(out, e)
		}
	}
	return out
}

// HasNodeLabel reports whether label is a defined node label.
func (r *Registry) HasNodeLabel(label string) bool {
	_, ok := r.nodes[label]
	return ok
}

// HasEdgeType reports whether edgeType is a defined edge type.
func (r *Registry) HasEdgeType(edgeType string) bool {
	_, ok := r.edges[edgeType]
	return ok
}
