package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, organized
// by run ID. It backs tests that assert on execution order (which nodes ran,
// what routing decided, when a run suspended) and simple debugging sessions.
//
// All events stay resident until cleared, so it is not meant for long-lived
// production processes.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter selects a subset of a run's events. Empty or nil fields do
// not filter; set fields combine with AND.
type HistoryFilter struct {
	// NodeID keeps only events for this node.
	NodeID string

	// Msg keeps only events of this kind, e.g. "node_end".
	Msg string

	// MinStep keeps events with Step >= *MinStep.
	MinStep *int

	// MaxStep keeps events with Step <= *MaxStep.
	MaxStep *int
}

// NewBufferedEmitter creates an empty BufferedEmitter. Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores the event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History returns all events for a run in emission order. The returned slice
// is a copy; an unknown run ID yields an empty slice.
func (b *BufferedEmitter) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// HistoryWithFilter returns a run's events that match the filter, in
// emission order.
//
// Example:
//
//	// Every routing decision made by the confidence check
//	decisions := emitter.HistoryWithFilter("run-001", emit.HistoryFilter{
//	    NodeID: "solve",
//	    Msg:    "routing_decision",
//	})
func (b *BufferedEmitter) HistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[runID] {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.NodeID != "" && event.NodeID != filter.NodeID {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinStep != nil && event.Step < *filter.MinStep {
		return false
	}
	if filter.MaxStep != nil && event.Step > *filter.MaxStep {
		return false
	}
	return true
}

// Clear removes stored events. A non-empty runID clears only that run; an
// empty runID clears everything.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, runID)
}
