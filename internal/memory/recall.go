package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/tenant"
	"github.com/rawcontext/engram-sub001/internal/vectorsearch"
)

// errNoVectorClient marks a Service wired without a vector search
// collaborator; recall degrades to the keyword-only path every call.
var errNoVectorClient = errors.New("memory: no vector search client configured")

func clampRecallLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecallLimit
	}
	if limit > MaxRecallLimit {
		return MaxRecallLimit
	}
	return limit
}

func (s *Service) buildVectorRequest(query string, oversampled int, tc tenant.TenantContext, filters RecallFilters, vtEndAfter bitemporal.Instant, rerank RerankOptions) vectorsearch.SearchRequest {
	vf := map[string]any{"vt_end_after": vtEndAfter, "org_id": tc.OrgID}
	if filters.Project != "" {
		vf["project"] = filters.Project
	}
	if filters.After != nil || filters.Before != nil {
		tr := map[string]any{}
		if filters.After != nil {
			tr["start"] = *filters.After
		}
		if filters.Before != nil {
			tr["end"] = *filters.Before
		}
		vf["time_range"] = tr
	}
	return vectorsearch.SearchRequest{
		Text:       query,
		Limit:      oversampled,
		Threshold:  vectorThreshold,
		Strategy:   vectorStrategy,
		Rerank:     rerank.Rerank,
		RerankTier: rerank.Tier,
		Collection: vectorCollection,
		Filters:    vf,
	}
}

// lexicalSearch implements §4.6.2 step 3: a path expression over Memory
// scoped by the same project/currentness filters, case-insensitive content
// substring match, ordered newest-first, capped at limit.
func (s *Service) lexicalSearch(ctx context.Context, graph *tenant.GraphHandle, query string, filters RecallFilters, vtEndAfter bitemporal.Instant, limit int) ([]recallHit, error) {
	rows, err := lexicalCandidatesPlan(filters.Project, vtEndAfter).Execute(ctx, graph)
	if err != nil {
		return nil, err
	}

	hits := make([]recallHit, 0, limit)
	for _, row := range rows {
		content := stringField(row, "content")
		if !matchesSubstring(content, query) {
			continue
		}
		if filters.After != nil || filters.Before != nil {
			vtStart, ok := instantField(row, "vt_start")
			if ok {
				if filters.After != nil && vtStart < *filters.After {
					continue
				}
				if filters.Before != nil && vtStart > *filters.Before {
					continue
				}
			}
		}
		hits = append(hits, hitFromRow(row))
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Recall implements §4.6.2's pipeline: vector search and the lexical graph
// fallback run concurrently via errgroup; a vector failure degrades to a
// keyword-only recall at double the oversample factor instead of failing
// the request (step 10).
func (s *Service) Recall(ctx context.Context, tc tenant.TenantContext, query string, limit int, filters RecallFilters, rerank RerankOptions) ([]RecallItem, error) {
	limit = clampRecallLimit(limit)

	graph, err := s.router.GraphFor(ctx, tc)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to resolve tenant graph", err)
	}

	now := bitemporal.Now()
	vtEndAfter := now
	if filters.VTEndAfter != nil {
		vtEndAfter = *filters.VTEndAfter
	}

	var vectorResp *vectorsearch.SearchResponse
	var vectorErr error
	var lexHits []recallHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.vector == nil {
			vectorErr = errNoVectorClient
			return nil
		}
		resp, err := s.vector.Search(gctx, s.buildVectorRequest(query, limit*2, tc, filters, vtEndAfter, rerank))
		if err != nil {
			vectorErr = err
			return nil
		}
		vectorResp = resp
		return nil
	})
	g.Go(func() error {
		hits, err := s.lexicalSearch(gctx, graph, query, filters, vtEndAfter, limit)
		if err != nil {
			return fmt.Errorf("lexical recall: %w", err)
		}
		lexHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "recall failed", err)
	}

	stageStart := time.Now()
	var merged []recallHit
	if vectorErr != nil {
		s.logger.Warn("memory: vector search unavailable, falling back to keyword-only recall", zap.Error(vectorErr))
		fallback, err := s.lexicalSearch(ctx, graph, query, filters, vtEndAfter, limit*2)
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeInternal, "keyword-only recall failed", err)
		}
		merged = fallback
		s.observeStage("lexical_fallback", stageStart)
	} else {
		merged = mergeHits(hitsFromVector(vectorResp, now), lexHits)
		s.observeStage("vector_merge", stageStart)
	}

	stageStart = time.Now()
	if err := s.attachDecayAndReplacement(ctx, graph, merged); err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to resolve decay/replacement state", err)
	}
	s.observeStage("decay_replacement", stageStart)

	merged = filterByType(merged, filters.Type)
	rankHits(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	s.submitAccessTracking(graph, merged)

	return toRecallItems(merged), nil
}

// attachDecayAndReplacement implements §4.6.2 steps 5-6: read
// {decay_score, pinned} for the merge union, compute each hit's weighted
// score, and for invalidated hits resolve the REPLACES successor chain.
func (s *Service) attachDecayAndReplacement(ctx context.Context, graph *tenant.GraphHandle, hits []recallHit) error {
	for i := range hits {
		h := &hits[i]

		node, err := graph.GetNode(ctx, h.id)
		if err == nil && node != nil {
			props := node.GetProps()
			h.pinned, _ = props["pinned"].(bool)
			h.decayScore = decayScoreOf(props)
			h.accessCount = accessCountOf(props)
		} else {
			h.decayScore = 1.0
		}

		effectiveDecay := 1.0
		if !h.pinned {
			effectiveDecay = h.decayScore
		}
		h.weighted = h.baseScore * effectiveDecay

		if h.invalidated {
			rows, err := replacementPlan(h.id).Execute(ctx, graph)
			if err != nil {
				return fmt.Errorf("resolve replacement for %q: %w", h.id, err)
			}
			if len(rows) > 0 {
				if n1, ok := rows[0]["n1"].(map[string]any); ok {
					if id := stringField(n1, "id"); id != "" {
						h.replacedBy = &id
					}
				}
			}
		}
	}
	return nil
}

func decayScoreOf(props map[string]any) float64 {
	if v, ok := props["decay_score"]; ok {
		if f, ok := toFloat64(v); ok {
			return f
		}
	}
	return 1.0
}

func accessCountOf(props map[string]any) int {
	if v, ok := props["access_count"]; ok {
		if f, ok := toFloat64(v); ok {
			return int(f)
		}
	}
	return 0
}

// rankHits implements §4.6.2 step 8 / §4.6.5: sort by weighted score
// descending, ties broken by original merge order (a stable sort over
// already-merge-ordered input preserves that automatically).
func rankHits(hits []recallHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].weighted > hits[j].weighted
	})
}

// submitAccessTracking implements §4.6.2 step 9: a fire-and-forget
// last_accessed/access_count update for every returned id, using the
// access_count already read in attachDecayAndReplacement rather than a
// second graph round trip.
func (s *Service) submitAccessTracking(graph *tenant.GraphHandle, hits []recallHit) {
	now := bitemporal.Now()
	for _, h := range hits {
		id := h.id
		updates := map[string]any{"last_accessed": now, "access_count": h.accessCount + 1}
		submitted := s.pool.Submit(func(ctx context.Context) {
			if err := graph.SetNodeProps(ctx, id, updates); err != nil {
				s.logger.Warn("memory: failed to update access tracking", zap.String("id", id), zap.Error(err))
			}
		})
		if !submitted {
			s.logger.Warn("memory: task pool saturated, dropped access-tracking task", zap.String("id", id))
		}
	}
}
