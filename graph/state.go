package graph

import (
	"encoding/json"
	"fmt"
)

// Reducer merges a node's partial update into the previous state and returns
// the merged state. Fields the delta does not set must retain their prior
// values (last-writer per field; only one node runs at a time, so no write
// races exist within a run).
//
// Reducers must be pure and deterministic: same inputs, same merged state.
//
// Example:
//
//	func reduce(prev, delta MyState) MyState {
//	    if delta.Query != "" {
//	        prev.Query = delta.Query
//	    }
//	    prev.Findings = append(prev.Findings, delta.Findings...)
//	    return prev
//	}
type Reducer[S any] func(prev, delta S) S

// deepCopy clones state S via a JSON round trip so that snapshots (e.g.
// checkpoints) never alias slices or maps still owned by a live run.
//
// S must be JSON-serializable: exported fields, no channels or functions,
// no cycles. These are the same constraints the checkpoint persistence
// boundary imposes, so they cost nothing extra.
func deepCopy[S any](state S) (S, error) {
	var copied S

	data, err := json.Marshal(state)
	if err != nil {
		return copied, fmt.Errorf("marshal state: %w", err)
	}
	if err := json.Unmarshal(data, &copied); err != nil {
		return copied, fmt.Errorf("unmarshal state: %w", err)
	}
	return copied, nil
}
