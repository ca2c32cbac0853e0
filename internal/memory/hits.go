package memory

import (
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/vectorsearch"
)

// recallHit is the internal merge/rank unit spanning both the vector and
// lexical result sources (§4.6.2 steps 4-8). mergeOrder breaks weighted-score
// ties at the original merge position (§4.6.2 step 4, §4.6.5).
type recallHit struct {
	id          string
	content     string
	memType     string
	tags        []string
	timestamp   bitemporal.Instant
	source      string
	mergeOrder  int
	baseScore   float64
	pinned      bool
	decayScore  float64
	weighted    float64
	invalidated bool
	replacedBy  *string
	accessCount int
}

func hitsFromVector(resp *vectorsearch.SearchResponse, now bitemporal.Instant) []recallHit {
	if resp == nil {
		return nil
	}
	hits := make([]recallHit, 0, len(resp.Results))
	for i, r := range resp.Results {
		h := recallHit{
			id:         stringField(r.Payload, "node_id"),
			content:    stringField(r.Payload, "content"),
			memType:    stringField(r.Payload, "type"),
			tags:       stringSliceField(r.Payload, "tags"),
			baseScore:  r.Score,
			source:     "vector",
			mergeOrder: i,
		}
		if ts, ok := instantField(r.Payload, "timestamp"); ok {
			h.timestamp = ts
		}
		if vtEnd, ok := instantField(r.Payload, "vt_end"); ok && vtEnd < now {
			h.invalidated = true
		}
		hits = append(hits, h)
	}
	return hits
}

func hitFromRow(row map[string]any) recallHit {
	h := recallHit{
		id:        stringField(row, "id"),
		content:   stringField(row, "content"),
		memType:   stringField(row, "memory_type"),
		tags:      stringSliceField(row, "tags"),
		baseScore: lexicalBaseScore,
		source:    "lexical",
	}
	if ts, ok := instantField(row, "vt_start"); ok {
		h.timestamp = ts
	}
	return h
}

// mergeHits combines the two sources per §4.6.2 step 4: vector results win
// collisions on id, lexical results fill the remaining slots, and merge
// order (vector first, in their own order, then unseen lexical hits) is the
// deterministic tie-break input to the ranking step.
func mergeHits(vectorHits, lexicalHits []recallHit) []recallHit {
	merged := make([]recallHit, 0, len(vectorHits)+len(lexicalHits))
	seen := make(map[string]bool, len(vectorHits))
	for _, h := range vectorHits {
		h.mergeOrder = len(merged)
		merged = append(merged, h)
		seen[h.id] = true
	}
	for _, h := range lexicalHits {
		if seen[h.id] {
			continue
		}
		h.mergeOrder = len(merged)
		merged = append(merged, h)
		seen[h.id] = true
	}
	return merged
}

func filterByType(hits []recallHit, memType string) []recallHit {
	if memType == "" {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		if h.memType == memType {
			out = append(out, h)
		}
	}
	return out
}

func toRecallItems(hits []recallHit) []RecallItem {
	out := make([]RecallItem, len(hits))
	for i, h := range hits {
		out[i] = RecallItem{
			ID:          h.id,
			Content:     h.content,
			Type:        h.memType,
			Tags:        h.tags,
			Timestamp:   h.timestamp,
			Score:       h.weighted,
			BaseScore:   h.baseScore,
			DecayScore:  decayMultiplier(h),
			Pinned:      h.pinned,
			Invalidated: h.invalidated,
			ReplacedBy:  h.replacedBy,
			Source:      h.source,
		}
	}
	return out
}

// decayMultiplier reports the effective decay applied to h's base score:
// 1.0 for pinned memories regardless of stored decay_score (§4.6.2 step 6,
// §8.5 property 16), the stored decay_score otherwise.
func decayMultiplier(h recallHit) float64 {
	if h.pinned {
		return 1.0
	}
	return h.decayScore
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringSliceField(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func instantField(m map[string]any, key string) (bitemporal.Instant, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return toInstant(v)
}

func toInstant(v any) (bitemporal.Instant, bool) {
	switch n := v.(type) {
	case int:
		return bitemporal.Instant(n), true
	case int64:
		return bitemporal.Instant(n), true
	case float64:
		return bitemporal.Instant(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
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
