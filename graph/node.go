package graph

import "context"

// Node is a unit of work in the workflow graph. It receives the current
// state, performs its computation, and returns a NodeResult describing the
// partial state update it produced.
//
// Nodes must be stateless across invocations: any memory of prior calls
// belongs in the state container, not in the node. A node's output should be
// deterministic with respect to its declared state inputs so runs stay
// reproducible and testable.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult is the output of one node execution.
//
// Exactly one of three shapes is meaningful:
//   - Delta only: the normal case; the update is merged and the run advances.
//   - Delta plus Suspend: the update is merged, then the run freezes at this
//     node awaiting an external decision.
//   - Err: the run terminates as Failed; no further nodes execute.
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node. Fields not
	// set in the delta retain their prior values after the merge.
	Delta S

	// Suspend, if non-nil, requests that the run pause at this node.
	// The node will be re-executed on resume with the external decision
	// merged into state.
	Suspend *Suspension

	// Err, if non-nil, terminates the run with a Failed result. The engine
	// performs no retries; retry policy belongs to the node or the caller.
	Err error
}

// Suspension describes why a node is pausing the run and what decision is
// pending. It is captured into the checkpoint so external callers can see
// exactly what they are approving.
type Suspension struct {
	// Reason is a short machine-readable code, e.g. "awaiting approval".
	Reason string

	// Detail carries a human- and machine-readable summary of the pending
	// action and its impact. Optional.
	Detail map[string]interface{}
}

// NodeFunc adapts a plain function to the Node interface.
//
// Example:
//
//	greet := graph.NodeFunc[MyState](func(ctx context.Context, s MyState) graph.NodeResult[MyState] {
//	    return graph.NodeResult[MyState]{Delta: MyState{Greeting: "hello"}}
//	})
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}
