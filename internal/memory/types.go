package memory

import "github.com/rawcontext/engram-sub001/internal/bitemporal"

// Recall tuning bounds (§4.6.2).
const (
	DefaultRecallLimit = 5
	MaxRecallLimit     = 20

	vectorThreshold   = 0.5
	vectorStrategy    = "hybrid"
	vectorCollection  = "memory"
	lexicalBaseScore  = 0.5
	defaultRerankTier = "fast"
	defaultMemoryType = "context"
)

// Context depth presets (§4.6.4).
const (
	DepthShallow = 3
	DepthMedium  = 5
	DepthDeep    = 10
)

// RememberInput is the body of a remember call (§4.6.1).
type RememberInput struct {
	Content string
	Type    string
	Tags    []string
	Project string
}

// RememberResult reports whether a new memory was written or an existing
// one deduplicated against.
type RememberResult struct {
	ID        string
	Stored    bool
	Duplicate bool
}

// RecallFilters narrows a recall call (§4.6.2 parameters).
type RecallFilters struct {
	Type       string
	Project    string
	After      *bitemporal.Instant
	Before     *bitemporal.Instant
	VTEndAfter *bitemporal.Instant
}

// RerankOptions configures the vector search service's reranking pass.
type RerankOptions struct {
	Rerank bool
	Tier   string // fast | accurate | code | llm
}

// DefaultRerankOptions matches §4.6.2's documented default.
func DefaultRerankOptions() RerankOptions {
	return RerankOptions{Rerank: true, Tier: defaultRerankTier}
}

// RecallItem is one ranked recall hit (§4.6.2 steps 6-8, §4.6.5).
type RecallItem struct {
	ID          string
	Content     string
	Type        string
	Tags        []string
	Timestamp   bitemporal.Instant
	Score       float64 // weighted score (baseScore * effectiveDecay); the ranking key
	BaseScore   float64 // pre-decay relevance score (§6.2 response field "score")
	DecayScore  float64 // effective decay multiplier applied; 1.0 for pinned/undecayed
	Pinned      bool
	Invalidated bool
	ReplacedBy  *string
	Source      string // "vector" | "lexical"
}

// ContextItem is one entry of a getContext response (§4.6.4).
type ContextItem struct {
	Type      string
	Content   string
	Relevance float64
	Source    string
}

func depthToLimit(depth int) int {
	switch {
	case depth <= 0:
		return DepthShallow
	default:
		return depth
	}
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
