package emit

// Emitter receives observability events from workflow execution.
//
// Implementations must be safe for concurrent use: independent runs sharing
// one Executor emit interleaved events. Emit must not panic and must not
// block workflow progress; a slow backend should buffer or drop rather than
// stall the run.
//
// Provided implementations:
//   - LogEmitter: text or JSONL output to a writer
//   - BufferedEmitter: in-memory capture with query support, for tests
//   - OTelEmitter: OpenTelemetry spans
//   - NullEmitter: discard everything
type Emitter interface {
	// Emit delivers one event to the backend. Errors are handled internally.
	Emit(event Event)
}
