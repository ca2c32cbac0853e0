package graphstore

import (
	"context"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/tenant"
)

// TenantBackend adapts an *Engine to tenant.Backend: the engine's own
// GetNode/EdgesFrom return concrete *NodeRow/*EdgeRow (useful to
// graphstore's own tests), while tenant.Backend's contract returns the
// narrower BackendNode/BackendEdge interfaces so internal/tenant and
// internal/memory never import this package's concrete row types.
type TenantBackend struct {
	*Engine
}

// NewTenantBackend wraps engine for use as a tenant.Router's Backend.
func NewTenantBackend(engine *Engine) TenantBackend {
	return TenantBackend{Engine: engine}
}

func (b TenantBackend) GetNode(ctx context.Context, namespace, id string) (tenant.BackendNode, error) {
	return b.Engine.GetNode(ctx, namespace, id)
}

func (b TenantBackend) EdgesFrom(ctx context.Context, namespace, fromID, edgeType string) ([]tenant.BackendEdge, error) {
	rows, err := b.Engine.EdgesFrom(ctx, namespace, fromID, edgeType)
	if err != nil {
		return nil, err
	}
	out := make([]tenant.BackendEdge, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

var _ tenant.Backend = TenantBackend{}
var _ bitemporal.Bitemporal = (*NodeRow)(nil)
