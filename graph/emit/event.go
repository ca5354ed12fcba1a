// Package emit provides structured observability events for workflow runs.
package emit

// Event is one observability record emitted during a workflow run.
//
// The executor emits events at the boundaries that matter for debugging a
// cyclic workflow: node start/end, routing decisions, suspension, and the
// three terminal outcomes. Events flow to an Emitter, which may log them,
// buffer them, convert them to trace spans, or discard them.
type Event struct {
	// RunID identifies the workflow run that produced this event.
	RunID string

	// Step is the zero-based execution step within the run. Each node
	// invocation advances the step, so a node revisited in a loop appears
	// at multiple steps.
	Step int

	// NodeID names the node the event concerns. Empty for run-level events
	// such as run_completed.
	NodeID string

	// Msg is the event kind. The executor emits:
	//   - "node_start", "node_end"
	//   - "routing_decision"
	//   - "run_completed", "run_suspended", "run_failed"
	Msg string

	// Meta carries event-specific structured data. Common keys:
	//   - "duration_ms": node execution duration
	//   - "outcome": router outcome name
	//   - "destination": routing destination node
	//   - "reason": suspension reason
	//   - "error": failure description
	//   - "visits": revisit count for the node
	Meta map[string]interface{}
}
