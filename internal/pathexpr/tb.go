package pathexpr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
)

// ViaOptions configures one traversal hop: which edge direction to follow
// and how many hops to allow.
type ViaOptions struct {
	Direction Direction
	MinHops   int // 0 defaults to 1
	MaxHops   int // 0 defaults to MinHops (exact-length pattern)
}

// TB is the fluent traversal builder (§4.3 "Traversal builder
// TB.from(...).via(...).to(...)").
type TB struct {
	from   NodePattern
	binder *ParamBinder
	hops   []TraversalHop

	pendingEdge *EdgeStep

	propagateCurrent bool
	propagateAsOfT   *bitemporal.Instant
	propagateAsOfOpt AsOfOptions

	limitN, offsetN *int
	order           *OrderClause
	returning       []string
	distinct        bool

	aliasSeq int
}

// From starts a traversal at nodes carrying label matching cond.
func From(label string, cond map[string]any) *TB {
	t := &TB{binder: &ParamBinder{}}
	t.from = NodePattern{Alias: "n0", Label: label}
	t.applyWhere(&t.from, cond)
	return t
}

func (t *TB) applyWhere(n *NodePattern, cond map[string]any) {
	if len(cond) == 0 {
		return
	}
	keys := sortedKeys(cond)
	for _, k := range keys {
		ref := t.binder.Bind(cond[k])
		n.Where = append(n.Where, Predicate{Field: k, Op: "=", Param: ref})
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Via opens an edge step. Direction defaults to Outgoing when unset (§4.3
// tie-break: "An unset direction defaults to outgoing"). Hop bounds default
// to an exact single hop when unset.
func (t *TB) Via(edgeTypes []string, opts ViaOptions) *TB {
	dir := opts.Direction
	if dir == "" {
		dir = Outgoing
	}
	minH, maxH := opts.MinHops, opts.MaxHops
	if minH == 0 {
		minH = 1
	}
	if maxH == 0 {
		maxH = minH
	}
	t.pendingEdge = &EdgeStep{Types: edgeTypes, Direction: dir, MinHops: minH, MaxHops: maxH}
	return t
}

// WhereEdge attaches a predicate to the last opened edge step.
func (t *TB) WhereEdge(field, op string, value any) *TB {
	if t.pendingEdge == nil {
		return t
	}
	ref := t.binder.Bind(value)
	t.pendingEdge.Where = append(t.pendingEdge.Where, Predicate{Field: field, Op: op, Param: ref})
	return t
}

// To closes the pending edge step at a node matching label (optional) and
// cond (optional).
func (t *TB) To(label string, cond map[string]any) *TB {
	if t.pendingEdge == nil {
		// A To() without a preceding Via() is a builder misuse; surface it
		// as a no-op rather than a panic, keeping fluent chains safe to
		// build partially during tests.
		return t
	}
	t.aliasSeq++
	alias := fmt.Sprintf("n%d", t.aliasSeq)
	to := NodePattern{Alias: alias, Label: label}
	t.applyWhere(&to, cond)
	t.hops = append(t.hops, TraversalHop{Edge: *t.pendingEdge, To: to})
	t.pendingEdge = nil
	return t
}

// WhereCurrent propagates the tt_end = MAX_DATE short-circuit to every node
// and edge in the path (§4.3: "Bitemporal modifiers propagate to every node
// and edge in the path").
func (t *TB) WhereCurrent() *TB {
	t.propagateCurrent = true
	return t
}

// AsOf propagates asOf predicates to every node and edge in the path.
func (t *TB) AsOf(at bitemporal.Instant, opts AsOfOptions) *TB {
	t.propagateAsOfT = &at
	t.propagateAsOfOpt = opts
	return t
}

// Returning selects the aliases the traversal projects.
func (t *TB) Returning(aliases ...string) *TB {
	t.returning = aliases
	return t
}

// Distinct deduplicates the result set.
func (t *TB) Distinct() *TB {
	t.distinct = true
	return t
}

// Limit caps the result count.
func (t *TB) Limit(n int) *TB {
	t.limitN = &n
	return t
}

// Offset skips the first n matches.
func (t *TB) Offset(n int) *TB {
	t.offsetN = &n
	return t
}

// OrderBy sorts by field in dir.
func (t *TB) OrderBy(field string, dir OrderDir) *TB {
	t.order = &OrderClause{Field: field, Dir: dir}
	return t
}

func (t *TB) propagate(n *NodePattern) {
	if t.propagateCurrent {
		ref := t.binder.Bind(bitemporal.MaxDate)
		n.Where = append(n.Where, Predicate{Field: "tt_end", Op: "=", Param: ref})
	}
	if t.propagateAsOfT != nil {
		at := *t.propagateAsOfT
		if t.propagateAsOfOpt.ValidTime {
			ref := t.binder.Bind(at)
			n.Where = append(n.Where,
				Predicate{Field: "vt_start", Op: "<=", Param: ref},
				Predicate{Field: "vt_end", Op: ">", Param: ref},
			)
		}
		if t.propagateAsOfOpt.TransactionTime {
			ref := t.binder.Bind(at)
			n.Where = append(n.Where,
				Predicate{Field: "tt_start", Op: "<=", Param: ref},
				Predicate{Field: "tt_end", Op: ">", Param: ref},
			)
		}
	}
}

func (t *TB) propagateEdge(e *EdgeStep) {
	if t.propagateCurrent {
		ref := t.binder.Bind(bitemporal.MaxDate)
		e.Where = append(e.Where, Predicate{Field: "tt_end", Op: "=", Param: ref})
	}
	if t.propagateAsOfT != nil {
		at := *t.propagateAsOfT
		if t.propagateAsOfOpt.ValidTime {
			ref := t.binder.Bind(at)
			e.Where = append(e.Where,
				Predicate{Field: "vt_start", Op: "<=", Param: ref},
				Predicate{Field: "vt_end", Op: ">", Param: ref},
			)
		}
		if t.propagateAsOfOpt.TransactionTime {
			ref := t.binder.Bind(at)
			e.Where = append(e.Where,
				Predicate{Field: "tt_start", Op: "<=", Param: ref},
				Predicate{Field: "tt_end", Op: ">", Param: ref},
			)
		}
	}
}

// Build renders the deterministic text form and the structured Plan. The
// propagated bitemporal modifiers are applied in path order — from-node,
// then each hop's edge and to-node — so Params() order stays deterministic.
func (t *TB) Build() (*Plan, string) {
	from := t.from
	t.propagate(&from)

	hops := make([]TraversalHop, len(t.hops))
	for i, h := range t.hops {
		edge := h.Edge
		t.propagateEdge(&edge)
		to := h.To
		t.propagate(&to)
		hops[i] = TraversalHop{Edge: edge, To: to}
	}

	plan := &Plan{
		Kind:      PlanTraversal,
		From:      from,
		Hops:      hops,
		Limit:     t.limitN,
		Offset:    t.offsetN,
		OrderBy:   t.order,
		Returning: t.returning,
		Distinct:  t.distinct,
		Params:    t.binder.Values(),
	}

	var sb strings.Builder
	sb.WriteString(renderNode(from.Alias, from))
	var wherePreds []string
	if len(from.Where) > 0 {
		wherePreds = append(wherePreds, renderPredicates(from.Alias, from.Where))
	}
	for _, h := range hops {
		sb.WriteString(renderEdge(h.Edge))
		sb.WriteString(renderNode(h.To.Alias, h.To))
		if len(h.Edge.Where) > 0 {
			wherePreds = append(wherePreds, renderPredicates(h.To.Alias+"_edge", h.Edge.Where))
		}
		if len(h.To.Where) > 0 {
			wherePreds = append(wherePreds, renderPredicates(h.To.Alias, h.To.Where))
		}
	}
	renderTail(&sb, wherePreds, t.order, t.limitN, t.offsetN, t.returning, t.distinct)
	return plan, sb.String()
}

// Text renders the deterministic ASCII-arrow form without executing.
func (t *TB) Text() string {
	_, text := t.Build()
	return text
}

// Params returns the bound parameter values in bind order.
func (t *TB) Params() []any { return t.binder.Values() }

// Execute runs the built plan against exec and returns every match.
func (t *TB) Execute(ctx context.Context, exec Executor) ([]Row, error) {
	plan, _ := t.Build()
	return exec.Execute(ctx, plan)
}
