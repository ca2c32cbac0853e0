package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/rawcontext/engram-sub001/internal/tenant"
)

// GetContext implements §4.6.4: a primary recall over the task description
// and a secondary recall scoped to memory_type "decision", merged and
// sliced to twice the requested depth. files is accepted for API parity
// with the HTTP contract (§6.2) but the context-assembly algorithm itself
// doesn't consult it.
func (s *Service) GetContext(ctx context.Context, tc tenant.TenantContext, task string, files []string, depth int) ([]ContextItem, error) {
	depth = depthToLimit(depth)

	primary, err := s.Recall(ctx, tc, task, depth, RecallFilters{}, DefaultRerankOptions())
	if err != nil {
		return nil, fmt.Errorf("memory: getContext primary recall: %w", err)
	}

	decisionLimit := ceilDiv(depth, 2)
	decisions, err := s.Recall(ctx, tc, "decisions about "+task, decisionLimit, RecallFilters{Type: "decision"}, DefaultRerankOptions())
	if err != nil {
		return nil, fmt.Errorf("memory: getContext decision recall: %w", err)
	}

	items := make([]ContextItem, 0, len(primary)+len(decisions))
	for _, r := range primary {
		items = append(items, contextItemFromRecall(r))
	}
	for _, r := range decisions {
		items = append(items, contextItemFromRecall(r))
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Relevance > items[j].Relevance })

	max := 2 * depth
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func contextItemFromRecall(r RecallItem) ContextItem {
	return ContextItem{Type: r.Type, Content: r.Content, Relevance: r.Score, Source: r.ID}
}
