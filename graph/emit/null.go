package emit

// NullEmitter implements Emitter by discarding every event.
//
// Use it when observability output is unwanted, e.g. in benchmarks or when a
// caller only cares about the RunResult.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter. Safe for concurrent use.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(_ Event) {}
