package memory

import (
	"strings"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
	"github.com/rawcontext/engram-sub001/internal/schema"
)

// findByHashPlan builds the currentness-scoped content-hash dedup lookup
// (§4.6.1 step 2): any Memory with matching content_hash and vt_end > now.
func findByHashPlan(hash string, now bitemporal.Instant) *pathexpr.QB {
	return pathexpr.NewQB(schema.LabelMemory).
		Where(map[string]any{"content_hash": hash}).
		AsOf(now, pathexpr.AsOfOptions{ValidTime: true}).
		Limit(1)
}

// lexicalCandidatesPlan builds the currentness+project-scoped node query the
// lexical fallback filters in Go (case-insensitive substring match isn't an
// operator the path-expression predicates express — §4.6.2 step 3).
func lexicalCandidatesPlan(project string, vtEndAfter bitemporal.Instant) *pathexpr.QB {
	q := pathexpr.NewQB(schema.LabelMemory).
		AsOf(vtEndAfter, pathexpr.AsOfOptions{ValidTime: true}).
		OrderBy("vt_start", pathexpr.Desc)
	if project != "" {
		q = q.Where(map[string]any{"project": project})
	}
	return q
}

// replacementPlan finds the Memory that replaces oldID via an incoming
// REPLACES edge: `(new:Memory) -[:REPLACES]-> (old:Memory)` pivoted from the
// old side, so traversal direction is Incoming (§4.6.2 step 6).
func replacementPlan(oldID string) *pathexpr.TB {
	return pathexpr.From(schema.LabelMemory, map[string]any{"id": oldID}).
		Via([]string{schema.EdgeReplaces}, pathexpr.ViaOptions{Direction: pathexpr.Incoming}).
		To(schema.LabelMemory, nil).
		Returning("n1").
		Limit(1)
}

func matchesSubstring(content, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(needle))
}
