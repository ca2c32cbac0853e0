package tenant

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
)

type countingBackend struct {
	provisionCalls int32
	rows           []pathexpr.Row
	err            error
}

func (b *countingBackend) EnsureNamespace(ctx context.Context, namespace string) error {
	atomic.AddInt32(&b.provisionCalls, 1)
	return b.err
}

func (b *countingBackend) Execute(ctx context.Context, namespace string, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	return b.rows, nil
}

func (b *countingBackend) ExecuteText(ctx context.Context, namespace, expr string, params map[string]any) ([]pathexpr.Row, error) {
	return b.rows, nil
}

func (b *countingBackend) InsertNode(ctx context.Context, namespace, label string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	return "", nil
}

func (b *countingBackend) GetNode(ctx context.Context, namespace, id string) (BackendNode, error) {
	return nil, nil
}

func (b *countingBackend) SetNodeProps(ctx context.Context, namespace, id string, updates map[string]any) error {
	return nil
}

func (b *countingBackend) CloseNode(ctx context.Context, namespace, id string, at bitemporal.Instant) error {
	return nil
}

func (b *countingBackend) InsertEdge(ctx context.Context, namespace, edgeType, fromID, toID string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	return "", nil
}

func (b *countingBackend) EdgesFrom(ctx context.Context, namespace, fromID, edgeType string) ([]BackendEdge, error) {
	return nil, nil
}

func TestRouter_GraphFor_ProvisionsOnce(t *testing.T) {
	backend := &countingBackend{}
	router := NewRouter(backend, "engram_default")
	tc := TenantContext{OrgID: "org1", OrgSlug: "acme"}

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := router.GraphFor(context.Background(), tc)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.provisionCalls))
}

func TestRouter_GraphFor_NamespaceFormat(t *testing.T) {
	backend := &countingBackend{}
	router := NewRouter(backend, "engram_default")
	tc := TenantContext{OrgID: "42", OrgSlug: "acme"}

	h, err := router.GraphFor(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, "engram_acme_42", h.Namespace())
}

func TestRouter_Query_ScopesExecuteToNamespace(t *testing.T) {
	backend := &countingBackend{rows: []pathexpr.Row{{"id": "x"}}}
	router := NewRouter(backend, "engram_default")
	tc := TenantContext{OrgID: "1", OrgSlug: "acme"}

	rows, err := router.Query(context.Background(), tc, &pathexpr.Plan{})
	require.NoError(t, err)
	assert.Equal(t, []pathexpr.Row{{"id": "x"}}, rows)
}

func TestRouter_DefaultGraph_DistinctNamespace(t *testing.T) {
	backend := &countingBackend{}
	router := NewRouter(backend, "engram_default")

	h, err := router.DefaultGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "engram_default", h.Namespace())
}

func TestTenantContext_HasScope(t *testing.T) {
	tc := TenantContext{Scopes: []string{"memory:read", "memory:write"}}
	assert.True(t, tc.HasScope("memory:read"))
	assert.False(t, tc.HasScope("query:read"))
}
