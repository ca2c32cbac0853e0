package graphstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/pathexpr"
)

// paramIndex parses a "$pN" placeholder into its 0-based slice index.
func paramIndex(ref string) (int, error) {
	if !strings.HasPrefix(ref, "$p") {
		return 0, fmt.Errorf("graphstore: malformed parameter reference %q", ref)
	}
	n, err := strconv.Atoi(ref[2:])
	if err != nil {
		return 0, fmt.Errorf("graphstore: malformed parameter reference %q: %w", ref, err)
	}
	return n - 1, nil
}

func resolveParam(ref string, params []any) (any, error) {
	i, err := paramIndex(ref)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(params) {
		return nil, fmt.Errorf("graphstore: parameter %q out of range", ref)
	}
	return params[i], nil
}

func matchesPredicates(props map[string]any, preds []pathexpr.Predicate, params []any) (bool, error) {
	for _, p := range preds {
		want, err := resolveParam(p.Param, params)
		if err != nil {
			return false, err
		}
		got, ok := props[p.Field]
		if !ok {
			return false, nil
		}
		if !compare(got, p.Op, want) {
			return false, nil
		}
	}
	return true, nil
}

func compare(got any, op string, want any) bool {
	switch op {
	case "=":
		return equalValues(got, want)
	case "!=":
		return !equalValues(got, want)
	case "<", "<=", ">", ">=":
		gf, gok := toFloat(got)
		wf, wok := toFloat(want)
		if !gok || !wok {
			return false
		}
		switch op {
		case "<":
			return gf < wf
		case "<=":
			return gf <= wf
		case ">":
			return gf > wf
		case ">=":
			return gf >= wf
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func execNodeQuery(ns *namespaceStore, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	var matches []*NodeRow
	for _, n := range ns.nodes {
		if n.Label != plan.From.Label {
			continue
		}
		ok, err := matchesPredicates(n.asRow(), plan.From.Where, plan.Params)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, n)
		}
	}

	sortNodes(matches, plan.OrderBy)

	rows := make([]pathexpr.Row, 0, len(matches))
	for _, n := range matches {
		rows = append(rows, pathexpr.Row(n.asRow()))
	}
	return applyWindowAndProjection(rows, plan), nil
}

func sortNodes(nodes []*NodeRow, order *pathexpr.OrderClause) {
	if order == nil {
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		vi, vj := nodes[i].asRow()[order.Field], nodes[j].asRow()[order.Field]
		fi, iok := toFloat(vi)
		fj, jok := toFloat(vj)
		var less bool
		if iok && jok {
			less = fi < fj
		} else {
			less = fmt.Sprintf("%v", vi) < fmt.Sprintf("%v", vj)
		}
		if order.Dir == pathexpr.Desc {
			return !less
		}
		return less
	})
}

func applyWindowAndProjection(rows []pathexpr.Row, plan *pathexpr.Plan) []pathexpr.Row {
	if plan.Distinct {
		rows = dedupeRows(rows)
	}
	if plan.Offset != nil {
		off := *plan.Offset
		if off >= len(rows) {
			rows = nil
		} else {
			rows = rows[off:]
		}
	}
	if plan.Limit != nil && *plan.Limit < len(rows) {
		rows = rows[:*plan.Limit]
	}
	return rows
}

func dedupeRows(rows []pathexpr.Row) []pathexpr.Row {
	seen := make(map[string]bool, len(rows))
	out := make([]pathexpr.Row, 0, len(rows))
	for _, r := range rows {
		key := fmt.Sprintf("%v", r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func execTraversal(ns *namespaceStore, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	var starts []*NodeRow
	for _, n := range ns.nodes {
		if plan.From.Label != "" && n.Label != plan.From.Label {
			continue
		}
		ok, err := matchesPredicates(n.asRow(), plan.From.Where, plan.Params)
		if err != nil {
			return nil, err
		}
		if ok {
			starts = append(starts, n)
		}
	}

	type partial struct {
		aliases map[string]*NodeRow
		last    *NodeRow
	}
	frontier := make([]partial, 0, len(starts))
	for _, n := range starts {
		frontier = append(frontier, partial{aliases: map[string]*NodeRow{plan.From.Alias: n}, last: n})
	}

	for _, hop := range plan.Hops {
		var next []partial
		for _, p := range frontier {
			reached, err := traverseHop(ns, p.last, hop, plan.Params)
			if err != nil {
				return nil, err
			}
			for _, to := range reached {
				aliases := make(map[string]*NodeRow, len(p.aliases)+1)
				for k, v := range p.aliases {
					aliases[k] = v
				}
				aliases[hop.To.Alias] = to
				next = append(next, partial{aliases: aliases, last: to})
			}
		}
		frontier = next
	}

	rows := make([]pathexpr.Row, 0, len(frontier))
	for _, p := range frontier {
		row := pathexpr.Row{}
		if len(plan.Returning) > 0 {
			for _, alias := range plan.Returning {
				if n, ok := p.aliases[alias]; ok {
					row[alias] = n.asRow()
				}
			}
		} else {
			for alias, n := range p.aliases {
				row[alias] = n.asRow()
			}
		}
		rows = append(rows, row)
	}

	if plan.OrderBy != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			li := fmt.Sprintf("%v", rows[i])
			lj := fmt.Sprintf("%v", rows[j])
			if plan.OrderBy.Dir == pathexpr.Desc {
				return li > lj
			}
			return li < lj
		})
	}

	return applyWindowAndProjection(rows, plan), nil
}

func traverseHop(ns *namespaceStore, from *NodeRow, hop pathexpr.TraversalHop, params []any) ([]*NodeRow, error) {
	var out []*NodeRow
	for _, ed := range ns.edges {
		if !edgeTypeMatches(ed.Type, hop.Edge.Types) {
			continue
		}
		var otherID string
		switch hop.Edge.Direction {
		case pathexpr.Incoming:
			if ed.To != from.ID {
				continue
			}
			otherID = ed.From
		case pathexpr.Any:
			if ed.From == from.ID {
				otherID = ed.To
			} else if ed.To == from.ID {
				otherID = ed.From
			} else {
				continue
			}
		default: // Outgoing
			if ed.From != from.ID {
				continue
			}
			otherID = ed.To
		}

		ok, err := matchesPredicates(ed.asMatchProps(), hop.Edge.Where, params)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		to, ok := ns.nodes[otherID]
		if !ok {
			continue
		}
		if hop.To.Label != "" && to.Label != hop.To.Label {
			continue
		}
		matched, err := matchesPredicates(to.asRow(), hop.To.Where, params)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, to)
		}
	}
	return out, nil
}

func edgeTypeMatches(edgeType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if t == edgeType {
			return true
		}
	}
	return false
}
