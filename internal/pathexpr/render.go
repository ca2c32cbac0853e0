package pathexpr

import (
	"fmt"
	"strings"
)

func renderPredicates(alias string, preds []Predicate) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, fmt.Sprintf("%s.%s %s %s", alias, p.Field, p.Op, p.Param))
	}
	return strings.Join(parts, " AND ")
}

func renderNode(alias string, n NodePattern) string {
	if n.Label == "" {
		return fmt.Sprintf("(%s)", alias)
	}
	return fmt.Sprintf("(%s:%s)", alias, n.Label)
}

func renderHopLength(min, max int) string {
	if min == 0 && max == 0 {
		return ""
	}
	if min == max {
		return fmt.Sprintf("*%d", min)
	}
	return fmt.Sprintf("*%d..%d", min, max)
}

func renderEdge(e EdgeStep) string {
	var types string
	if len(e.Types) > 0 {
		types = ":" + strings.Join(e.Types, "|")
	}
	length := renderHopLength(e.MinHops, e.MaxHops)
	label := fmt.Sprintf("[%s%s]", types, length)

	switch e.Direction {
	case Incoming:
		return "<-" + label + "-"
	case Any:
		return "-" + label + "-"
	default: // Outgoing
		return "-" + label + "->"
	}
}

// renderTail appends WHERE/ORDER BY/LIMIT/OFFSET/RETURN/DISTINCT clauses
// common to both the node query and the traversal plan.
func renderTail(sb *strings.Builder, wherePredicates []string, order *OrderClause, limit, offset *int, returning []string, distinct bool) {
	if len(wherePredicates) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(wherePredicates, " AND "))
	}
	if len(returning) > 0 {
		sb.WriteString(" RETURN ")
		if distinct {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(strings.Join(returning, ", "))
	}
	if order != nil {
		sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", order.Field, order.Dir))
	}
	if limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *limit))
	}
	if offset != nil {
		sb.WriteString(fmt.Sprintf(" SKIP %d", *offset))
	}
}
