package graph

import (
	"fmt"
	"sort"
	"time"
)

// Builder accumulates a mutable graph definition: nodes, edges, and the
// start marker. Call Compile to validate the definition and obtain an
// immutable Plan. A Builder is not safe for concurrent use; a compiled Plan
// is.
//
// Example:
//
//	b := graph.NewBuilder[MyState]()
//	_ = b.AddNode("fetch", fetchNode)
//	_ = b.AddNode("score", scoreNode)
//	_ = b.AddEdge("fetch", "score")
//	_ = b.AddConditionalEdge("score", scoreRouter, map[string]string{
//	    "retry": "fetch",
//	    "done":  graph.End,
//	})
//	_ = b.SetStart("fetch")
//	plan, err := b.Compile()
type Builder[S any] struct {
	nodes    map[string]Node[S]
	order    []string
	edges    map[string]edge[S]
	timeouts map[string]time.Duration
	start    string
	startSet bool
}

// NewBuilder creates an empty graph definition.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes:    make(map[string]Node[S]),
		edges:    make(map[string]edge[S]),
		timeouts: make(map[string]time.Duration),
	}
}

// NodeOption configures a node at registration time.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	timeout time.Duration
}

// WithNodeTimeout bounds each invocation of this node. It overrides the
// executor's DefaultNodeTimeout. On timeout the node's attempt is treated as
// a failure of that node, never a silent skip.
func WithNodeTimeout(d time.Duration) NodeOption {
	return func(cfg *nodeConfig) {
		cfg.timeout = d
	}
}

// AddNode registers a node under a unique name.
//
// Returns an error if the name is empty or reserved, the node is nil, or the
// name is already taken.
func (b *Builder[S]) AddNode(name string, node Node[S], opts ...NodeOption) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if name == End {
		return fmt.Errorf("node name %q is reserved for the terminal marker", End)
	}
	if node == nil {
		return fmt.Errorf("node %q: implementation cannot be nil", name)
	}
	if _, exists := b.nodes[name]; exists {
		return fmt.Errorf("duplicate node name: %s", name)
	}

	var cfg nodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	b.nodes[name] = node
	b.order = append(b.order, name)
	if cfg.timeout > 0 {
		b.timeouts[name] = cfg.timeout
	}
	return nil
}

// AddEdge declares the unconditional transition taken after from completes.
//
// Destinations may reference nodes added later; dangling references are
// rejected at Compile. Each node may declare at most one outgoing path.
func (b *Builder[S]) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("edge endpoints cannot be empty")
	}
	if _, exists := b.edges[from]; exists {
		return fmt.Errorf("node %s already has an outgoing edge", from)
	}
	b.edges[from] = edge[S]{to: to}
	return nil
}

// AddConditionalEdge declares a runtime-routed transition: after from
// completes, router is evaluated against the merged state and the returned
// outcome name selects a destination from outcomes.
//
// The outcome set is closed at definition time: a router returning a name
// not present in outcomes is a fatal RoutingError at run time, and an
// outcome bound to an empty destination is rejected at Compile.
func (b *Builder[S]) AddConditionalEdge(from string, router Router[S], outcomes map[string]string) error {
	if from == "" {
		return fmt.Errorf("edge source cannot be empty")
	}
	if router == nil {
		return fmt.Errorf("node %s: router cannot be nil", from)
	}
	if len(outcomes) == 0 {
		return fmt.Errorf("node %s: conditional edge needs at least one outcome", from)
	}
	if _, exists := b.edges[from]; exists {
		return fmt.Errorf("node %s already has an outgoing edge", from)
	}

	bound := make(map[string]string, len(outcomes))
	for name, dest := range outcomes {
		bound[name] = dest
	}
	b.edges[from] = edge[S]{router: router, outcomes: bound}
	return nil
}

// SetStart designates the entry point. Exactly one start node is required;
// calling SetStart twice is an error.
func (b *Builder[S]) SetStart(name string) error {
	if name == "" {
		return fmt.Errorf("start node name cannot be empty")
	}
	if b.startSet {
		return fmt.Errorf("start node already set to %s", b.start)
	}
	if _, exists := b.nodes[name]; !exists {
		return fmt.Errorf("start node does not exist: %s", name)
	}
	b.start = name
	b.startSet = true
	return nil
}

// Compile validates the definition and returns an immutable Plan.
//
// Checks performed, with every failure collected into one ValidationError:
//   - a start node is set
//   - every node has exactly one outgoing path (edge or conditional edge)
//   - every edge destination references a declared node or End
//   - every declared outcome has a non-empty bound destination
//   - every node is reachable from start by breadth-first traversal over
//     unconditional edges and all declared outcome destinations
//
// A compiled Plan holds no per-run state and may be executed concurrently by
// independent Executors.
func (b *Builder[S]) Compile() (*Plan[S], error) {
	var problems []string

	if !b.startSet {
		problems = append(problems, "no start node set")
	}
	if len(b.nodes) == 0 {
		problems = append(problems, "graph has no nodes")
	}

	// Edges from undeclared nodes, and per-node path presence.
	for from := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge from undeclared node %s", from))
		}
	}
	for _, name := range b.order {
		e, ok := b.edges[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("node %s has no outgoing path (route to %s to terminate)", name, End))
			continue
		}
		for _, dest := range b.destinations(e) {
			if dest == "" {
				problems = append(problems, fmt.Sprintf("node %s: outcome has no bound destination", name))
				continue
			}
			if dest == End {
				continue
			}
			if _, ok := b.nodes[dest]; !ok {
				problems = append(problems, fmt.Sprintf("node %s: edge references undeclared node %s", name, dest))
			}
		}
	}

	// Reachability from start over every possible transition.
	if b.startSet {
		reached := b.reachable()
		for _, name := range b.order {
			if !reached[name] {
				problems = append(problems, fmt.Sprintf("node %s is unreachable from start", name))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ValidationError{Problems: problems}
	}

	plan := &Plan[S]{
		nodes:    make(map[string]Node[S], len(b.nodes)),
		edges:    make(map[string]edge[S], len(b.edges)),
		timeouts: make(map[string]time.Duration, len(b.timeouts)),
		start:    b.start,
	}
	for name, n := range b.nodes {
		plan.nodes[name] = n
	}
	for from, e := range b.edges {
		plan.edges[from] = e
	}
	for name, d := range b.timeouts {
		plan.timeouts[name] = d
	}
	return plan, nil
}

// destinations lists every destination an edge can select, in a stable order.
func (b *Builder[S]) destinations(e edge[S]) []string {
	if !e.conditional() {
		return []string{e.to}
	}
	dests := make([]string, 0, len(e.outcomes))
	for _, dest := range e.outcomes {
		dests = append(dests, dest)
	}
	sort.Strings(dests)
	return dests
}

// reachable computes the set of node names reachable from start by BFS.
func (b *Builder[S]) reachable() map[string]bool {
	reached := map[string]bool{b.start: true}
	queue := []string{b.start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		e, ok := b.edges[current]
		if !ok {
			continue
		}
		for _, dest := range b.destinations(e) {
			if dest == End || dest == "" || reached[dest] {
				continue
			}
			if _, declared := b.nodes[dest]; !declared {
				continue
			}
			reached[dest] = true
			queue = append(queue, dest)
		}
	}
	return reached
}
