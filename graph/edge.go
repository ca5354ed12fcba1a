package graph

// End is the terminal marker. Routing to End completes the run; the state at
// that point is the final result. End is reserved and cannot be used as a
// node name.
const End = "__end__"

// Router evaluates the current state and returns one outcome name from its
// declared, finite outcome set. Routers must be pure functions over state and
// must be total: returning a name absent from the outcome map is a fatal
// RoutingError.
//
// Routers always see state after the merge of the just-executed node's delta,
// so a field written by a node can steer the very next transition.
//
// Type parameter S is the state type to evaluate.
type Router[S any] func(state S) string

// edge is one node's single outgoing path: either an unconditional
// destination or a router with its bound outcome map.
type edge[S any] struct {
	// to is the unconditional destination. Empty when the edge is conditional.
	to string

	// router selects an outcome name at run time. Nil for unconditional edges.
	router Router[S]

	// outcomes binds each declared outcome name to a destination node name
	// or End.
	outcomes map[string]string
}

// conditional reports whether this edge routes through a router.
func (e edge[S]) conditional() bool {
	return e.router != nil
}
