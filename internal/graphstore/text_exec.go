package graphstore

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/pathexpr"
)

// ExecuteText is a minimal, best-effort interpreter for the validated
// free-form read path (§4.6.3 `query(expression, params, ctx)`). It
// understands a single-node MATCH/WHERE/RETURN/ORDER BY/LIMIT shape — the
// same shape C3's QB renders — and exists so the reference backend can
// serve the free-form path without a full Cypher grammar; production
// wiring passes the raw text straight through to a real graph database.
func (e *Engine) ExecuteText(ctx context.Context, namespace, expr string, params map[string]any) ([]pathexpr.Row, error) {
	ns, err := e.store(namespace)
	if err != nil {
		return nil, err
	}

	m := matchClause.FindStringSubmatch(expr)
	if m == nil {
		return nil, fmt.Errorf("graphstore: unsupported free-form expression shape")
	}
	alias, label := m[1], m[2]

	var whereField, whereOp, whereParam string
	if wm := whereClause.FindStringSubmatch(expr); wm != nil {
		whereField, whereOp, whereParam = wm[2], wm[3], wm[4]
	}

	var orderField string
	orderDesc := false
	if om := orderClause.FindStringSubmatch(expr); om != nil {
		orderField = om[2]
		orderDesc = strings.EqualFold(om[3], "DESC")
	}

	limit := -1
	if lm := limitClause.FindStringSubmatch(expr); lm != nil {
		limit, _ = strconv.Atoi(lm[1])
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	var matches []*NodeRow
	for _, n := range ns.nodes {
		if n.Label != label {
			continue
		}
		if whereField != "" {
			val, ok := params[strings.TrimPrefix(whereParam, "$")]
			if !ok {
				return nil, fmt.Errorf("graphstore: missing bound parameter %q", whereParam)
			}
			got, ok := n.asRow()[whereField]
			if !ok || !compare(got, whereOp, val) {
				continue
			}
		}
		matches = append(matches, n)
	}

	if orderField != "" {
		sortNodes(matches, &pathexpr.OrderClause{Field: orderField, Dir: descDir(orderDesc)})
	}

	rows := make([]pathexpr.Row, 0, len(matches))
	for _, n := range matches {
		rows = append(rows, pathexpr.Row{alias: n.asRow()})
	}
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func descDir(desc bool) pathexpr.OrderDir {
	if desc {
		return pathexpr.Desc
	}
	return pathexpr.Asc
}

var (
	matchClause = regexp.MustCompile(`(?i)\(\s*(\w+)\s*:\s*(\w+)\s*\)`)
	whereClause = regexp.MustCompile(`(?i)WHERE\s+(\w+)\.(\w+)\s*(=|!=|<=|>=|<|>)\s*(\$\w+)`)
	orderClause = regexp.MustCompile(`(?i)ORDER BY\s+(\w+)\.(\w+)\s*(ASC|DESC)?`)
	limitClause = regexp.MustCompile(`(?i)LIMIT\s+(\d+)`)
)
