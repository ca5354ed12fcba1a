package graph

import (
	"sort"
	"time"
)

// Plan is a validated, immutable, ready-to-run representation of a graph
// definition. It holds no per-run state: the same Plan may be shared
// read-only across any number of concurrent runs and Executors.
type Plan[S any] struct {
	nodes    map[string]Node[S]
	edges    map[string]edge[S]
	timeouts map[string]time.Duration
	start    string
}

// Start returns the entry node name.
func (p *Plan[S]) Start() string {
	return p.start
}

// Nodes returns the declared node names in sorted order.
func (p *Plan[S]) Nodes() []string {
	names := make([]string, 0, len(p.nodes))
	for name := range p.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a node name is declared in the plan.
func (p *Plan[S]) Has(name string) bool {
	_, ok := p.nodes[name]
	return ok
}

// next determines the destination after nodeID completes, evaluating the
// router against the merged state for conditional edges. The returned
// destination is a node name or End; outcome is the router's outcome name,
// empty for unconditional edges.
//
// Returns a RoutingError when a router produces an outcome outside its
// declared set. Compilation guarantees every node has an outgoing path, so a
// missing edge here indicates a plan constructed outside Compile.
func (p *Plan[S]) next(nodeID string, state S) (dest, outcome string, err error) {
	e, ok := p.edges[nodeID]
	if !ok {
		return "", "", &NodeError{NodeID: nodeID, Message: "no outgoing path in plan"}
	}
	if !e.conditional() {
		return e.to, "", nil
	}

	outcome = e.router(state)
	dest, declared := e.outcomes[outcome]
	if !declared {
		return "", "", &RoutingError{NodeID: nodeID, Outcome: outcome}
	}
	return dest, outcome, nil
}

// timeoutFor returns the per-node timeout override, or zero when none is set.
func (p *Plan[S]) timeoutFor(nodeID string) time.Duration {
	return p.timeouts[nodeID]
}
