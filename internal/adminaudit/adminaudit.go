// Package adminaudit is the sole gateway to tenant.Router.DefaultGraph()
// (§4.5/§9 Open Question: "no cross-tenant listing API" resolved by
// confining the escape hatch to explicit admin operations). Every call
// is logged through internal/audit before the underlying graph handle is
// returned; internal/memory never imports this package.
package adminaudit

import (
	"context"

	"github.com/rawcontext/engram-sub001/internal/audit"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
	"github.com/rawcontext/engram-sub001/internal/tenant"
)

// RequestMeta carries the request-scoped fields logCrossTenantRead needs
// beyond what the query itself conveys (§6.3).
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Gateway is the only supported way to reach the process-wide default
// graph namespace.
type Gateway struct {
	router *tenant.Router
	sink   *audit.Sink
}

// NewGateway constructs a Gateway over router, auditing every access
// through sink.
func NewGateway(router *tenant.Router, sink *audit.Sink) *Gateway {
	return &Gateway{router: router, sink: sink}
}

// Query executes an already-planned query against the default namespace
// on behalf of an admin operator, auditing the access first.
func (g *Gateway) Query(ctx context.Context, userID, userOrgID, targetOrgID, resourceType, resourceID string, meta RequestMeta, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	g.sink.LogCrossTenantRead(ctx, audit.CrossTenantRead{
		UserID:       userID,
		UserOrgID:    userOrgID,
		TargetOrgID:  targetOrgID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})

	graph, err := g.router.DefaultGraph(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Execute(ctx, plan)
}
