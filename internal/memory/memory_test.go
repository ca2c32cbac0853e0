package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/graphstore"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
	"github.com/rawcontext/engram-sub001/internal/tenant"
	"github.com/rawcontext/engram-sub001/internal/vectorsearch"
)

// fakeVector is an in-test vectorsearch.Client double. searchFn defaults to
// returning no results; IndexMemory calls are recorded and broadcast on a
// channel so tests can await the fire-and-forget index call deterministically
// instead of sleeping.
type fakeVector struct {
	mu       sync.Mutex
	searchFn func(ctx context.Context, req vectorsearch.SearchRequest) (*vectorsearch.SearchResponse, error)
	indexed  chan vectorsearch.IndexRequest
}

func newFakeVector() *fakeVector {
	return &fakeVector{indexed: make(chan vectorsearch.IndexRequest, 16)}
}

func (f *fakeVector) Search(ctx context.Context, req vectorsearch.SearchRequest) (*vectorsearch.SearchResponse, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, req)
	}
	return &vectorsearch.SearchResponse{}, nil
}

func (f *fakeVector) IndexMemory(ctx context.Context, req vectorsearch.IndexRequest) error {
	f.indexed <- req
	return nil
}

func newTestServiceWithRouter(t *testing.T, vector vectorsearch.Client) (*Service, *tenant.Router, tenant.TenantContext) {
	t.Helper()
	engine := graphstore.NewEngine()
	backend := graphstore.NewTenantBackend(engine)
	router := tenant.NewRouter(backend, "engram_default")
	logger := zap.NewNop()
	pool := taskpool.New(4, 32, logger)
	t.Cleanup(pool.Shutdown)

	svc := New(router, vector, pool, logger)
	tc := tenant.TenantContext{OrgID: "1", OrgSlug: "acme"}
	return svc, router, tc
}

func newTestService(t *testing.T, vector vectorsearch.Client) (*Service, tenant.TenantContext) {
	svc, _, tc := newTestServiceWithRouter(t, vector)
	return svc, tc
}

func TestRemember_StoresNewMemoryAndFiresIndex(t *testing.T) {
	vector := newFakeVector()
	svc, tc := newTestService(t, vector)

	result, err := svc.Remember(context.Background(), tc, RememberInput{Content: "the build broke at HEAD", Project: "engram"})
	require.NoError(t, err)
	assert.True(t, result.Stored)
	assert.False(t, result.Duplicate)
	assert.NotEmpty(t, result.ID)

	select {
	case req := <-vector.indexed:
		assert.Equal(t, result.ID, req.ID)
		assert.Equal(t, "context", req.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for index call")
	}
}

func TestRemember_DeduplicatesOnContentHash(t *testing.T) {
	vector := newFakeVector()
	svc, tc := newTestService(t, vector)
	ctx := context.Background()

	first, err := svc.Remember(ctx, tc, RememberInput{Content: "duplicate content"})
	require.NoError(t, err)
	<-vector.indexed

	second, err := svc.Remember(ctx, tc, RememberInput{Content: "duplicate content"})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Stored)
	assert.Equal(t, first.ID, second.ID)
}

func TestRemember_DifferentTenantsDoNotCollide(t *testing.T) {
	vector := newFakeVector()
	svc, tc := newTestService(t, vector)
	ctx := context.Background()
	other := tenant.TenantContext{OrgID: "2", OrgSlug: "other"}

	_, err := svc.Remember(ctx, tc, RememberInput{Content: "shared text"})
	require.NoError(t, err)
	<-vector.indexed

	result, err := svc.Remember(ctx, other, RememberInput{Content: "shared text"})
	require.NoError(t, err)
	assert.True(t, result.Stored)
	assert.False(t, result.Duplicate)
}

func TestRemember_DefaultsTypeAndTags(t *testing.T) {
	vector := newFakeVector()
	svc, tc := newTestService(t, vector)

	result, err := svc.Remember(context.Background(), tc, RememberInput{Content: "no type given"})
	require.NoError(t, err)

	req := <-vector.indexed
	assert.Equal(t, result.ID, req.ID)
	assert.Equal(t, "context", req.Type)
	assert.Empty(t, req.Tags)
}

func TestQuery_RunsFreeFormExpressionScopedToTenant(t *testing.T) {
	vector := newFakeVector()
	svc, tc := newTestService(t, vector)
	ctx := context.Background()

	_, err := svc.Remember(ctx, tc, RememberInput{Content: "queryable memory", Project: "engram"})
	require.NoError(t, err)
	<-vector.indexed

	rows, err := svc.Query(ctx, tc, "MATCH (n:Memory) WHERE n.project = $proj RETURN n", map[string]any{"proj": "engram"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestQuery_ScopedToTenantNamespace(t *testing.T) {
	vector := newFakeVector()
	svc, tc := newTestService(t, vector)
	ctx := context.Background()
	other := tenant.TenantContext{OrgID: "2", OrgSlug: "other"}

	_, err := svc.Remember(ctx, tc, RememberInput{Content: "tenant-scoped", Project: "engram"})
	require.NoError(t, err)
	<-vector.indexed

	rows, err := svc.Query(ctx, other, "MATCH (n:Memory) WHERE n.project = $proj RETURN n", map[string]any{"proj": "engram"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
