package pathexpr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
)

// AsOfOptions selects which bitemporal axis asOf() constrains. The zero
// value constrains neither; use DefaultAsOfOptions for "both".
type AsOfOptions struct {
	ValidTime       bool
	TransactionTime bool
}

// DefaultAsOfOptions constrains both the valid-time and transaction-time
// axes, the common case.
func DefaultAsOfOptions() AsOfOptions {
	return AsOfOptions{ValidTime: true, TransactionTime: true}
}

// QB is the fluent node query builder (§4.3 "Node query builder QB(label)").
type QB struct {
	label  string
	alias  string
	where  []Predicate
	binder *ParamBinder

	limitN, offsetN *int
	order           *OrderClause
	returning       []string
	distinct        bool
}

// NewQB starts a query over nodes carrying label.
func NewQB(label string) *QB {
	return &QB{label: label, alias: "n", binder: &ParamBinder{}}
}

// Where AND-joins equality predicates. Keys are sorted before binding so
// that repeated calls with the same map produce the same generated text and
// parameter order regardless of Go's randomized map iteration — required by
// the determinism property (§8.2.5).
func (q *QB) Where(cond map[string]any) *QB {
	keys := make([]string, 0, len(cond))
	for k := range cond {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ref := q.binder.Bind(cond[k])
		q.where = append(q.where, Predicate{Field: k, Op: "=", Param: ref})
	}
	return q
}

// AsOf adds `start <= $p AND end > $p` predicates for whichever axes opts
// selects.
func (q *QB) AsOf(t bitemporal.Instant, opts AsOfOptions) *QB {
	if opts.ValidTime {
		ref := q.binder.Bind(t)
		q.where = append(q.where,
			Predicate{Field: "vt_start", Op: "<=", Param: ref},
			Predicate{Field: "vt_end", Op: ">", Param: ref},
		)
	}
	if opts.TransactionTime {
		ref := q.binder.Bind(t)
		q.where = append(q.where,
			Predicate{Field: "tt_start", Op: "<=", Param: ref},
			Predicate{Field: "tt_end", Op: ">", Param: ref},
		)
	}
	return q
}

// WhereCurrent adds the tt_end = MAX_DATE short-circuit.
func (q *QB) WhereCurrent() *QB {
	ref := q.binder.Bind(bitemporal.MaxDate)
	q.where = append(q.where, Predicate{Field: "tt_end", Op: "=", Param: ref})
	return q
}

// WhereValid adds the vt_end = MAX_DATE short-circuit.
func (q *QB) WhereValid() *QB {
	ref := q.binder.Bind(bitemporal.MaxDate)
	q.where = append(q.where, Predicate{Field: "vt_end", Op: "=", Param: ref})
	return q
}

// Limit caps the result count.
func (q *QB) Limit(n int) *QB {
	q.limitN = &n
	return q
}

// Offset skips the first n matches.
func (q *QB) Offset(n int) *QB {
	q.offsetN = &n
	return q
}

// OrderBy sorts by field in dir. Ordering a bitemporal query by the indexed
// vt_start field is the canonical newest-first order (§4.3 tie-break note).
func (q *QB) OrderBy(field string, dir OrderDir) *QB {
	q.order = &OrderClause{Field: field, Dir: dir}
	return q
}

// Returning selects the aliases the query projects; an empty call returns
// the whole node.
func (q *QB) Returning(aliases ...string) *QB {
	q.returning = aliases
	return q
}

// Distinct deduplicates the result set.
func (q *QB) Distinct() *QB {
	q.distinct = true
	return q
}

// Build renders the deterministic text form and the structured Plan.
func (q *QB) Build() (*Plan, string) {
	plan := &Plan{
		Kind:      PlanNodeQuery,
		From:      NodePattern{Alias: q.alias, Label: q.label, Where: q.where},
		Limit:     q.limitN,
		Offset:    q.offsetN,
		OrderBy:   q.order,
		Returning: q.returning,
		Distinct:  q.distinct,
		Params:    q.binder.Values(),
	}

	var sb strings.Builder
	sb.WriteString(renderNode(q.alias, plan.From))
	var wherePreds []string
	if len(q.where) > 0 {
		wherePreds = append(wherePreds, renderPredicates(q.alias, q.where))
	}
	renderTail(&sb, wherePreds, q.order, q.limitN, q.offsetN, q.returning, q.distinct)
	return plan, sb.String()
}

// Text renders the deterministic ASCII-arrow form without executing.
func (q *QB) Text() string {
	_, text := q.Build()
	return text
}

// Params returns the bound parameter values in bind order.
func (q *QB) Params() []any { return q.binder.Values() }

// Execute runs the built plan against exec and returns every match.
func (q *QB) Execute(ctx context.Context, exec Executor) ([]Row, error) {
	plan, _ := q.Build()
	return exec.Execute(ctx, plan)
}

// First returns the first match, or ok=false if there are none.
func (q *QB) First(ctx context.Context, exec Executor) (Row, bool, error) {
	one := 1
	q.limitN = &one
	rows, err := q.Execute(ctx, exec)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Count returns the number of matches.
func (q *QB) Count(ctx context.Context, exec Executor) (int, error) {
	rows, err := q.Execute(ctx, exec)
	if err != nil {
		return 0, fmt.Errorf("pathexpr: count: %w", err)
	}
	return len(rows), nil
}

// Exists reports whether any match exists.
func (q *QB) Exists(ctx context.Context, exec Executor) (bool, error) {
	_, ok, err := q.First(ctx, exec)
	return ok, err
}
