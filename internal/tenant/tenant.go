// Package tenant implements the tenant router (C5): per-organization graph
// namespace resolution, lazy idempotent provisioning, and the gated
// default-namespace escape hatch for admin operations.
package tenant

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
)

// TenantContext identifies the organization (and, optionally, the user and
// granted scopes) a request operates as.
type TenantContext struct {
	OrgID   string
	OrgSlug string
	UserID  string // empty when the request carries no user identity
	Scopes  []string
}

// Namespace is the tenant's physical graph namespace name:
// `engram_{org_slug}_{org_id}` (§4.5).
func (tc TenantContext) Namespace() string {
	return fmt.Sprintf("engram_%s_%s", tc.OrgSlug, tc.OrgID)
}

// HasScope reports whether tc carries scope among its granted scopes.
func (tc TenantContext) HasScope(scope string) bool {
	for _, s := range tc.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Backend is the external graph collaborator (§6.3) a Router provisions
// namespaces against and executes plans within. Per §6.3 ("property and
// relationship writes through the same expression channel"), reads and
// structured-plan queries go through Execute; the node/edge primitives
// below are the write surface internal/memory needs for remember's insert,
// the dedup/decay/access-tracking updates, and the REPLACES edge — the
// in-memory reference engine (internal/graphstore) implements all of it.
type Backend interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	Execute(ctx context.Context, namespace string, plan *pathexpr.Plan) ([]pathexpr.Row, error)

	// ExecuteText runs the validated free-form read path (§4.6.3): the
	// backend's own interpreter for the ASCII-arrow text QB/TB already
	// render, bypassing the structured Plan for callers that only have the
	// validated expression string (internal/memory's query operation).
	ExecuteText(ctx context.Context, namespace, expr string, params map[string]any) ([]pathexpr.Row, error)

	InsertNode(ctx context.Context, namespace, label string, props map[string]any, vt, tt bitemporal.Interval) (string, error)
	GetNode(ctx context.Context, namespace, id string) (BackendNode, error)
	SetNodeProps(ctx context.Context, namespace, id string, updates map[string]any) error
	CloseNode(ctx context.Context, namespace, id string, at bitemporal.Instant) error
	InsertEdge(ctx context.Context, namespace, edgeType, fromID, toID string, props map[string]any, vt, tt bitemporal.Interval) (string, error)
	EdgesFrom(ctx context.Context, namespace, fromID, edgeType string) ([]BackendEdge, error)
}

// BackendNode is the minimal node shape a Backend hands back, enough for
// the memory service's decay/dedup reads without depending on
// internal/graphstore's concrete row type.
type BackendNode interface {
	bitemporal.Bitemporal
	GetID() string
	GetLabel() string
	GetProps() map[string]any
}

// BackendEdge is the minimal edge shape a Backend hands back.
type BackendEdge interface {
	bitemporal.Bitemporal
	GetID() string
	GetType() string
	GetFrom() string
	GetTo() string
	GetProps() map[string]any
}

// GraphHandle is a namespace-bound pathexpr.Executor: every plan it runs is
// implicitly scoped to one tenant's namespace.
type GraphHandle struct {
	namespace string
	backend   Backend
}

// Execute implements pathexpr.Executor, scoped to the handle's namespace.
func (h *GraphHandle) Execute(ctx context.Context, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	return h.backend.Execute(ctx, h.namespace, plan)
}

// Namespace returns the handle's bound namespace name.
func (h *GraphHandle) Namespace() string { return h.namespace }

// ExecuteText runs a validated free-form expression against the handle's
// namespace.
func (h *GraphHandle) ExecuteText(ctx context.Context, expr string, params map[string]any) ([]pathexpr.Row, error) {
	return h.backend.ExecuteText(ctx, h.namespace, expr, params)
}

// InsertNode writes a new node in the handle's namespace.
func (h *GraphHandle) InsertNode(ctx context.Context, label string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	return h.backend.InsertNode(ctx, h.namespace, label, props, vt, tt)
}

// GetNode reads a node by id from the handle's namespace.
func (h *GraphHandle) GetNode(ctx context.Context, id string) (BackendNode, error) {
	return h.backend.GetNode(ctx, h.namespace, id)
}

// SetNodeProps merges updates into a node's properties.
func (h *GraphHandle) SetNodeProps(ctx context.Context, id string, updates map[string]any) error {
	return h.backend.SetNodeProps(ctx, h.namespace, id, updates)
}

// CloseNode closes a node's transaction-time interval at instant at.
func (h *GraphHandle) CloseNode(ctx context.Context, id string, at bitemporal.Instant) error {
	return h.backend.CloseNode(ctx, h.namespace, id, at)
}

// InsertEdge writes a new edge in the handle's namespace.
func (h *GraphHandle) InsertEdge(ctx context.Context, edgeType, fromID, toID string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	return h.backend.InsertEdge(ctx, h.namespace, edgeType, fromID, toID, props, vt, tt)
}

// EdgesFrom returns every live edge of edgeType originating at fromID.
func (h *GraphHandle) EdgesFrom(ctx context.Context, fromID, edgeType string) ([]BackendEdge, error) {
	return h.backend.EdgesFrom(ctx, h.namespace, fromID, edgeType)
}

// Router lazily provisions and caches one GraphHandle per tenant namespace.
// Concurrent first-use provisioning is coalesced with singleflight: at most
// one EnsureNamespace call reaches the backend per namespace, and losers
// await the winner (§4.5).
type Router struct {
	backend          Backend
	group            singleflight.Group
	defaultNamespace string

	mu      sync.RWMutex
	handles map[string]*GraphHandle
}

// NewRouter constructs a Router over backend. defaultNamespace names the
// namespace DefaultGraph resolves to.
func NewRouter(backend Backend, defaultNamespace string) *Router {
	return &Router{
		backend:          backend,
		defaultNamespace: defaultNamespace,
		handles:          make(map[string]*GraphHandle),
	}
}

// GraphFor returns a handle on tc's namespace, lazily provisioning it on
// first use.
func (r *Router) GraphFor(ctx context.Context, tc TenantContext) (*GraphHandle, error) {
	ns := tc.Namespace()
	if h, ok := r.cached(ns); ok {
		return h, nil
	}

	v, err, _ := r.group.Do(ns, func() (any, error) {
		if h, ok := r.cached(ns); ok {
			return h, nil
		}
		if err := r.backend.EnsureNamespace(ctx, ns); err != nil {
			return nil, fmt.Errorf("tenant: provision namespace %q: %w", ns, err)
		}
		h := &GraphHandle{namespace: ns, backend: r.backend}
		r.mu.Lock()
		r.handles[ns] = h
		r.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*GraphHandle), nil
}

func (r *Router) cached(ns string) (*GraphHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[ns]
	return h, ok
}

// Query runs a pre-built plan against tc's tenant graph and returns its rows
// (§4.5 `query(ctx, expr, params)`).
func (r *Router) Query(ctx context.Context, tc TenantContext, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	h, err := r.GraphFor(ctx, tc)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, plan)
}

// DefaultGraph returns a handle bound to the non-tenant-scoped default
// namespace. Used only by explicit admin operations that opt out of tenant
// scoping (§4.5 invariant: "no operation in the memory service calls
// defaultGraph()") — reachable only via internal/adminaudit, which audits
// every call before use.
func (r *Router) DefaultGraph(ctx context.Context) (*GraphHandle, error) {
	if err := r.backend.EnsureNamespace(ctx, r.defaultNamespace); err != nil {
		return nil, fmt.Errorf("tenant: provision default namespace: %w", err)
	}
	return &GraphHandle{namespace: r.defaultNamespace, backend: r.backend}, nil
}
