// Package tool defines the interface for side-effecting capabilities that
// workflow nodes invoke, such as web search or sandboxed file access.
package tool

import "context"

// Tool is an executable capability a node can call during a run.
//
// Implementations should validate input parameters, respect context
// cancellation, and return structured output. Tools run inside node
// execution, so a tool error surfaces as that node's failure unless the node
// chooses to absorb it.
//
// Example implementation:
//
//	type ClockTool struct{}
//
//	func (c *ClockTool) Name() string { return "current_time" }
//
//	func (c *ClockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
//	    return map[string]interface{}{"now": time.Now().UTC().Format(time.RFC3339)}, nil
//	}
type Tool interface {
	// Name returns the unique identifier for this tool, lowercase with
	// underscores, e.g. "search_web" or "read_file".
	Name() string

	// Call executes the tool. The input may be nil for parameterless tools.
	// Implementations check ctx.Err() before expensive operations and return
	// descriptive errors for invalid inputs.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
