package adminaudit

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rawcontext/engram-sub001/internal/audit"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
	"github.com/rawcontext/engram-sub001/internal/tenant"
)

type fakeBackend struct {
	ensured []string
	rows    []pathexpr.Row
}

func (f *fakeBackend) EnsureNamespace(ctx context.Context, namespace string) error {
	f.ensured = append(f.ensured, namespace)
	return nil
}

func (f *fakeBackend) Execute(ctx context.Context, namespace string, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	return f.rows, nil
}

func (f *fakeBackend) ExecuteText(ctx context.Context, namespace, expr string, params map[string]any) ([]pathexpr.Row, error) {
	return f.rows, nil
}

func (f *fakeBackend) InsertNode(ctx context.Context, namespace, label string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	return "", nil
}

func (f *fakeBackend) GetNode(ctx context.Context, namespace, id string) (tenant.BackendNode, error) {
	return nil, nil
}

func (f *fakeBackend) SetNodeProps(ctx context.Context, namespace, id string, updates map[string]any) error {
	return nil
}

func (f *fakeBackend) CloseNode(ctx context.Context, namespace, id string, at bitemporal.Instant) error {
	return nil
}

func (f *fakeBackend) InsertEdge(ctx context.Context, namespace, edgeType, fromID, toID string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	return "", nil
}

func (f *fakeBackend) EdgesFrom(ctx context.Context, namespace, fromID, edgeType string) ([]tenant.BackendEdge, error) {
	return nil, nil
}

func TestQuery_AuditsBeforeExecuting(t *testing.T) {
	backend := &fakeBackend{rows: []pathexpr.Row{{"id": "n1"}}}
	router := tenant.NewRouter(backend, "engram_default")
	reg := prometheus.NewRegistry()
	sink := audit.NewSink(zaptest.NewLogger(t), "engram_test", reg)
	gw := NewGateway(router, sink)

	plan, _ := pathexpr.NewQB("Memory").Build()
	rows, err := gw.Query(context.Background(), "u1", "org-a", "org-b", "memory", "m1", RequestMeta{IPAddress: "1.2.3.4"}, plan)
	require.NoError(t, err)
	assert.Equal(t, []pathexpr.Row{{"id": "n1"}}, rows)
	assert.Contains(t, backend.ensured, "engram_default")

	metrics, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, float64(1), metrics[0].Metric[0].GetCounter().GetValue())
}
