package graphstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/pathexpr"
)

// Sentinel errors returned by the reference engine.
var (
	ErrNamespaceNotFound = errors.New("graphstore: namespace not found")
	ErrNodeNotFound      = errors.New("graphstore: node not found")
)

type namespaceStore struct {
	mu    sync.RWMutex
	nodes map[string]*NodeRow
	edges map[string]*EdgeRow
}

func newNamespaceStore() *namespaceStore {
	return &namespaceStore{
		nodes: make(map[string]*NodeRow),
		edges: make(map[string]*EdgeRow),
	}
}

// Engine is the in-memory reference graph backend. It is safe for
// concurrent use: each namespace has its own lock, so work in one tenant's
// namespace never contends with another's.
type Engine struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceStore
}

// NewEngine constructs an empty engine.
func NewEngine() *Engine {
	return &Engine{namespaces: make(map[string]*namespaceStore)}
}

// EnsureNamespace idempotently provisions namespace. Safe under concurrent
// callers; the tenant router's singleflight already coalesces concurrent
// first-use, but the engine does not depend on that — a second call here is
// a no-op.
func (e *Engine) EnsureNamespace(ctx context.Context, namespace string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.namespaces[namespace]; !ok {
		e.namespaces[namespace] = newNamespaceStore()
	}
	return nil
}

func (e *Engine) store(namespace string) (*namespaceStore, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ns, ok := e.namespaces[namespace]
	if !ok {
		return nil, ErrNamespaceNotFound
	}
	return ns, nil
}

// NewNodeID allocates a lexicographically sortable ULID for a new node or
// edge, matching §9's Design Note on row representation.
func NewNodeID() string {
	return ulid.Make().String()
}

// NewRequestID allocates a request-scoped identifier (not graph-visible),
// used by internal/httpapi request-id middleware.
func NewRequestID() string {
	return uuid.NewString()
}

// InsertNode writes a new node row and returns its ID. The id is also
// mirrored into the node's own Props under "id" so a later QB/TB predicate
// can address this node by id — e.g. internal/memory's REPLACES traversal,
// which pivots off a known old memory id.
func (e *Engine) InsertNode(ctx context.Context, namespace, label string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	ns, err := e.store(namespace)
	if err != nil {
		return "", err
	}
	id := NewNodeID()
	stored := cloneProps(props)
	stored["id"] = id
	ns.mu.Lock()
	ns.nodes[id] = &NodeRow{ID: id, Label: label, Props: stored, VT: vt, TT: tt}
	ns.mu.Unlock()
	return id, nil
}

// GetNode returns the node row by id.
func (e *Engine) GetNode(ctx context.Context, namespace, id string) (*NodeRow, error) {
	ns, err := e.store(namespace)
	if err != nil {
		return nil, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	n, ok := ns.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return n, nil
}

// SetNodeProps merges updates into the node's property map in place. Used
// by the access-tracking detached task (§4.6.2 step 9).
func (e *Engine) SetNodeProps(ctx context.Context, namespace, id string, updates map[string]any) error {
	ns, err := e.store(namespace)
	if err != nil {
		return err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	n, ok := ns.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	for k, v := range updates {
		n.Props[k] = v
	}
	return nil
}

// CloseNode closes a node's transaction-time interval at instant at — the
// soft-delete / supersede mechanism versioning relies on.
func (e *Engine) CloseNode(ctx context.Context, namespace, id string, at bitemporal.Instant) error {
	ns, err := e.store(namespace)
	if err != nil {
		return err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	n, ok := ns.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	closed, err := bitemporal.CloseInterval(n.TT, at)
	if err != nil {
		return err
	}
	n.TT = closed
	return nil
}

// InsertEdge writes a new edge row and returns its ID.
func (e *Engine) InsertEdge(ctx context.Context, namespace, edgeType, fromID, toID string, props map[string]any, vt, tt bitemporal.Interval) (string, error) {
	ns, err := e.store(namespace)
	if err != nil {
		return "", err
	}
	id := NewNodeID()
	ns.mu.Lock()
	ns.edges[id] = &EdgeRow{ID: id, Type: edgeType, From: fromID, To: toID, Props: cloneProps(props), VT: vt, TT: tt}
	ns.mu.Unlock()
	return id, nil
}

// EdgesFrom returns every live edge of edgeType originating at fromID.
func (e *Engine) EdgesFrom(ctx context.Context, namespace, fromID, edgeType string) ([]*EdgeRow, error) {
	ns, err := e.store(namespace)
	if err != nil {
		return nil, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	var out []*EdgeRow
	for _, ed := range ns.edges {
		if ed.From == fromID && ed.Type == edgeType && bitemporal.CurrentTT(ed) {
			out = append(out, ed)
		}
	}
	return out, nil
}

// Execute implements tenant.Backend's Execute, running a structured Plan
// built by QB/TB directly against namespace's in-memory store. It is not a
// pathexpr.Executor itself; tenant.GraphHandle binds the namespace for that.
func (e *Engine) Execute(ctx context.Context, namespace string, plan *pathexpr.Plan) ([]pathexpr.Row, error) {
	ns, err := e.store(namespace)
	if err != nil {
		return nil, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	switch plan.Kind {
	case pathexpr.PlanNodeQuery:
		return execNodeQuery(ns, plan)
	case pathexpr.PlanTraversal:
		return execTraversal(ns, plan)
	default:
		return nil, errors.New("graphstore: unknown plan kind")
	}
}
