// Package memory implements the memory service (C6) — the hard subsystem:
// remember, recall, query, and getContext, all scoped to a single tenant
// context per call. Detached work (vector indexing, access tracking) is
// submitted to a bounded internal/taskpool.Pool rather than a raw
// `go func()`, and the vector search fan-out in recall runs alongside the
// lexical graph fallback via golang.org/x/sync/errgroup (§4.6, §9 Design
// Note).
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/schema"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
	"github.com/rawcontext/engram-sub001/internal/telemetry"
	"github.com/rawcontext/engram-sub001/internal/tenant"
	"github.com/rawcontext/engram-sub001/internal/vectorsearch"
)

// Service implements remember/recall/query/getContext against a tenant
// router, an external vector search collaborator, and a detached task pool.
type Service struct {
	router  *tenant.Router
	vector  vectorsearch.Client
	pool    *taskpool.Pool
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// New constructs a Service. vector may be nil, in which case recall always
// takes the keyword-only fallback path (§4.6.2 step 10).
func New(router *tenant.Router, vector vectorsearch.Client, pool *taskpool.Pool, logger *zap.Logger) *Service {
	return &Service{router: router, vector: vector, pool: pool, logger: logger}
}

// SetMetrics wires recall-pipeline-stage observability (§4.9 expansion)
// into an already-constructed Service. Optional: a nil or never-called
// metrics stays silently absent, as in every existing test of this package.
func (s *Service) SetMetrics(metrics *telemetry.Metrics) {
	s.metrics = metrics
}

// observeStage records a recall pipeline stage's duration if metrics were
// wired via SetMetrics; a no-op otherwise.
func (s *Service) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRecallStage(stage, time.Since(start))
	}
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Remember implements §4.6.1. It deduplicates on content hash against the
// currently-valid corpus, then writes a new Memory node and fires off a
// detached vector-index call.
func (s *Service) Remember(ctx context.Context, tc tenant.TenantContext, in RememberInput) (*RememberResult, error) {
	graph, err := s.router.GraphFor(ctx, tc)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to resolve tenant graph", err)
	}

	hash := contentHash(in.Content)
	now := bitemporal.Now()

	existing, found, err := s.findCurrentByHash(ctx, graph, hash, now)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to check memory for duplicates", err)
	}
	if found {
		return &RememberResult{ID: existing, Stored: false, Duplicate: true}, nil
	}

	memType := in.Type
	if memType == "" {
		memType = defaultMemoryType
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	vt, err := bitemporal.OpenInterval(now)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to open valid-time interval", err)
	}
	tt, err := bitemporal.OpenInterval(now)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to open transaction-time interval", err)
	}

	props := map[string]any{
		"content":      in.Content,
		"content_hash": hash,
		"memory_type":  memType,
		"tags":         tags,
		"project":      in.Project,
		"created_at":   time.UnixMilli(now).UTC().Format(time.RFC3339),
	}

	id, err := graph.InsertNode(ctx, schema.LabelMemory, props, vt, tt)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to write memory", err)
	}

	s.submitIndex(id, in, memType, tc.OrgID)

	return &RememberResult{ID: id, Stored: true, Duplicate: false}, nil
}

// submitIndex sends the fire-and-forget indexMemory call (§4.6.1 step 4).
// Failures are logged, never propagated to the caller.
func (s *Service) submitIndex(id string, in RememberInput, memType, orgID string) {
	if s.vector == nil {
		return
	}
	req := vectorsearch.IndexRequest{
		ID:      id,
		Content: in.Content,
		Type:    memType,
		Tags:    in.Tags,
		Project: in.Project,
		OrgID:   orgID,
	}
	submitted := s.pool.Submit(func(ctx context.Context) {
		if err := s.vector.IndexMemory(ctx, req); err != nil {
			s.logger.Warn("memory: failed to index memory in vector search",
				zap.String("id", id), zap.Error(err))
		}
	})
	if !submitted {
		s.logger.Warn("memory: task pool saturated, dropped vector index task", zap.String("id", id))
	}
}

func (s *Service) findCurrentByHash(ctx context.Context, graph *tenant.GraphHandle, hash string, now bitemporal.Instant) (string, bool, error) {
	rows, err := findByHashPlan(hash, now).Execute(ctx, graph)
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	id, _ := rows[0]["id"].(string)
	return id, id != "", nil
}

// Query implements §4.6.3: pass expression through the caller's already-run
// validator (the validator runs at the httpapi boundary so its errors map
// to VALIDATION_ERROR before reaching this service), then execute the
// free-form text directly against the tenant graph.
func (s *Service) Query(ctx context.Context, tc tenant.TenantContext, expression string, params map[string]any) ([]map[string]any, error) {
	graph, err := s.router.GraphFor(ctx, tc)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to resolve tenant graph", err)
	}
	rows, err := graph.ExecuteText(ctx, expression, params)
	if err != nil {
		return nil, fmt.Errorf("memory: query: %w", err)
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}
