// Package graphstore provides the GraphBackend reference implementation
// (§6.3): an in-memory, namespace-partitioned, bitemporal-aware labeled
// property graph that executes pathexpr Plans directly and a minimal
// read-only interpreter for the validated free-form query path (§4.6.3).
// Production wiring swaps in a real graph database client behind the same
// interfaces; this engine exists so the core is independently testable.
package graphstore

import "github.com/rawcontext/engram-sub001/internal/bitemporal"

// NodeRow is one bitemporal node row.
type NodeRow struct {
	ID    string
	Label string
	Props map[string]any
	VT    bitemporal.Interval
	TT    bitemporal.Interval
}

func (n *NodeRow) ValidTime() bitemporal.Interval       { return n.VT }
func (n *NodeRow) TransactionTime() bitemporal.Interval { return n.TT }
func (n *NodeRow) GetID() string                        { return n.ID }
func (n *NodeRow) GetLabel() string                     { return n.Label }
func (n *NodeRow) GetProps() map[string]any             { return n.Props }

// EdgeRow is one bitemporal edge row.
type EdgeRow struct {
	ID    string
	Type  string
	From  string
	To    string
	Props map[string]any
	VT    bitemporal.Interval
	TT    bitemporal.Interval
}

func (e *EdgeRow) ValidTime() bitemporal.Interval       { return e.VT }
func (e *EdgeRow) TransactionTime() bitemporal.Interval { return e.TT }
func (e *EdgeRow) GetID() string                        { return e.ID }
func (e *EdgeRow) GetType() string                      { return e.Type }
func (e *EdgeRow) GetFrom() string                      { return e.From }
func (e *EdgeRow) GetTo() string                        { return e.To }
func (e *EdgeRow) GetProps() map[string]any             { return e.Props }

func cloneProps(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (n *NodeRow) asRow() map[string]any {
	out := cloneProps(n.Props)
	out["id"] = n.ID
	out["label"] = n.Label
	out["vt_start"] = n.VT.Start
	out["vt_end"] = n.VT.End
	out["tt_start"] = n.TT.Start
	out["tt_end"] = n.TT.End
	return out
}

// asMatchProps merges the bitemporal axes into the edge's property map so
// that AsOf/WhereCurrent/WhereValid predicates (which reference vt_start,
// vt_end, tt_start, tt_end) can match the same way they do for nodes via
// asRow — those fields live on EdgeRow, not in Props itself.
func (e *EdgeRow) asMatchProps() map[string]any {
	out := cloneProps(e.Props)
	out["id"] = e.ID
	out["type"] = e.Type
	out["vt_start"] = e.VT.Start
	out["vt_end"] = e.VT.End
	out["tt_start"] = e.TT.Start
	out["tt_end"] = e.TT.End
	return out
}
