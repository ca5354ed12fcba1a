package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/store"
)

// RunStatus is the terminal disposition of a run attempt.
type RunStatus int

const (
	// StatusCompleted means routing reached End; State holds the final state.
	StatusCompleted RunStatus = iota

	// StatusSuspended means a node paused the run awaiting an external
	// decision; Checkpoint holds the resumable snapshot.
	StatusSuspended

	// StatusFailed means a node errored, a router misrouted, the iteration
	// bound tripped, or the context was cancelled; Err holds the cause.
	StatusFailed
)

// String returns the lowercase status name.
func (s RunStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSuspended:
		return "suspended"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunResult is the outcome of Run or Resume. Exactly one status applies:
//
//   - StatusCompleted: State is final; Checkpoint and Err are unset.
//   - StatusSuspended: Checkpoint holds the frozen run; State mirrors the
//     checkpointed state for convenience.
//   - StatusFailed: Err identifies the cause and FailedNode the node at which
//     the run stopped; State holds the last fully merged state, which is
//     useful for debugging but must not be treated as a final result.
type RunResult[S any] struct {
	// Status is the run's terminal disposition.
	Status RunStatus

	// State is the state at termination (see the per-status meaning above).
	State S

	// Checkpoint is the suspension snapshot. Non-nil only when Status is
	// StatusSuspended.
	Checkpoint *store.Checkpoint[S]

	// FailedNode names the node at which a failed run stopped. Empty unless
	// Status is StatusFailed.
	FailedNode string

	// Err is the failure cause. Non-nil only when Status is StatusFailed.
	Err error
}

// Executor drives runs of compiled plans. One Executor may serve any number
// of concurrent runs over any number of plans; per-run state lives entirely
// in the stack frame of the Run or Resume call, so runs never share or leak
// state through the Executor.
//
// Type parameter S is the workflow state type.
type Executor[S any] struct {
	reducer  Reducer[S]
	store    store.Store[S]
	emitter  emit.Emitter
	registry *Registry[S]
	opts     Options
}

// NewExecutor creates an Executor.
//
// The reducer merges each node's delta into the accumulated state; a nil
// reducer means every delta replaces the whole state, which is rarely what a
// multi-node workflow wants. A nil store falls back to an in-memory store,
// so suspension works but does not survive a restart. A nil emitter discards
// events.
//
// Example:
//
//	exec := graph.NewExecutor(reduce, store.NewMemStore[MyState](),
//	    emit.NewLogEmitter(os.Stdout, false),
//	    graph.WithMaxVisits(5),
//	)
//	result := exec.Run(ctx, plan, "run-001", MyState{Query: "start"})
func NewExecutor[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts ...Option) *Executor[S] {
	if st == nil {
		st = store.NewMemStore[S]()
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}

	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	return &Executor[S]{
		reducer: reducer,
		store:   st,
		emitter: emitter,
		opts:    options,
	}
}

// AttachRegistry connects an in-process suspended-run registry. The executor
// will record suspensions into it and clear entries on resume. Attach before
// starting runs; the registry pointer is read without synchronization.
func (x *Executor[S]) AttachRegistry(reg *Registry[S]) {
	x.registry = reg
}

// Store returns the checkpoint store the executor persists suspensions to.
func (x *Executor[S]) Store() store.Store[S] {
	return x.store
}

// Run executes a plan from its start node with the given initial state and
// drives it until completion, suspension, or failure. Run never panics on
// node errors and never retries; the returned RunResult is the single source
// of truth for what happened.
//
// The runID must be unique among live runs sharing a checkpoint store; a
// suspension overwrites any prior checkpoint under the same ID.
func (x *Executor[S]) Run(ctx context.Context, plan *Plan[S], runID string, initial S) RunResult[S] {
	if plan == nil {
		return RunResult[S]{
			Status: StatusFailed,
			Err:    fmt.Errorf("nil plan"),
		}
	}
	return x.execute(ctx, plan, runID, plan.Start(), initial, make(map[string]int))
}

// Resume continues a suspended run from its checkpoint.
//
// The decision is merged into the checkpointed state through the reducer,
// then the suspended node re-executes with the merged state. The node sees
// the decision in state and branches accordingly; resuming is therefore
// equivalent to the node never having suspended at all, aside from the
// decision now being present.
//
// The checkpoint is consumed: its store record and registry entry are
// removed before execution continues, so a second Resume with the same
// checkpoint operates on a stale snapshot at the caller's own risk.
func (x *Executor[S]) Resume(ctx context.Context, plan *Plan[S], cp store.Checkpoint[S], decision S) RunResult[S] {
	if plan == nil {
		return RunResult[S]{
			Status: StatusFailed,
			Err:    fmt.Errorf("nil plan"),
		}
	}
	if !plan.Has(cp.NodeID) {
		return RunResult[S]{
			Status:     StatusFailed,
			State:      cp.State,
			FailedNode: cp.NodeID,
			Err: &NodeError{
				NodeID:  cp.NodeID,
				Message: "checkpoint references a node not present in the plan",
			},
		}
	}

	if err := x.store.Delete(ctx, cp.RunID); err != nil {
		return RunResult[S]{
			Status:     StatusFailed,
			State:      cp.State,
			FailedNode: cp.NodeID,
			Err:        fmt.Errorf("consume checkpoint %s: %w", cp.RunID, err),
		}
	}
	if x.registry != nil {
		x.registry.Remove(cp.RunID)
	}

	state := x.reduce(cp.State, decision)

	visits := make(map[string]int, len(cp.Visits))
	for node, count := range cp.Visits {
		visits[node] = count
	}

	return x.execute(ctx, plan, cp.RunID, cp.NodeID, state, visits)
}

// execute is the sequential run loop shared by Run and Resume. It owns the
// run's entire mutable state (current node, accumulated state, visit
// counters) as locals, which is what makes concurrent runs on one Executor
// safe.
func (x *Executor[S]) execute(ctx context.Context, plan *Plan[S], runID, current string, state S, visits map[string]int) RunResult[S] {
	x.opts.Metrics.runStarted()

	maxVisits := x.opts.maxVisits()
	step := 0

	for {
		if err := ctx.Err(); err != nil {
			return x.fail(runID, step, current, state, &NodeError{
				NodeID:  current,
				Message: "run cancelled",
				Cause:   err,
			})
		}

		if visits[current] > maxVisits {
			x.opts.Metrics.iterationLimitHit()
			return x.fail(runID, step, current, state, &IterationLimitError{
				NodeID: current,
				Limit:  maxVisits,
			})
		}

		x.emitter.Emit(emit.Event{
			RunID:  runID,
			Step:   step,
			NodeID: current,
			Msg:    "node_start",
			Meta:   map[string]interface{}{"visits": visits[current]},
		})

		started := time.Now()
		result, timeoutErr := runNodeWithTimeout(ctx, plan.nodes[current], current, state,
			plan.timeoutFor(current), x.opts.DefaultNodeTimeout)
		elapsed := time.Since(started)

		if timeoutErr != nil {
			x.opts.Metrics.observeNode(current, "error", elapsed)
			x.emitNodeEnd(runID, step, current, elapsed, timeoutErr)
			return x.fail(runID, step, current, state, timeoutErr)
		}
		if result.Err != nil {
			nodeErr := &NodeError{NodeID: current, Cause: result.Err}
			x.opts.Metrics.observeNode(current, "error", elapsed)
			x.emitNodeEnd(runID, step, current, elapsed, nodeErr)
			return x.fail(runID, step, current, state, nodeErr)
		}

		// The delta merges before the suspension check so a node can both
		// record progress and pause in one result.
		state = x.reduce(state, result.Delta)

		if result.Suspend != nil {
			x.opts.Metrics.observeNode(current, "suspended", elapsed)
			x.emitNodeEnd(runID, step, current, elapsed, nil)
			return x.suspendRun(ctx, runID, step, current, state, visits, result.Suspend)
		}

		// A suspended attempt does not count as a visit; only completed
		// executions advance the counter, so suspend/resume cannot consume
		// iteration budget.
		visits[current]++

		x.opts.Metrics.observeNode(current, "ok", elapsed)
		x.emitNodeEnd(runID, step, current, elapsed, nil)

		dest, outcome, err := plan.next(current, state)
		if err != nil {
			return x.fail(runID, step, current, state, err)
		}

		routingMeta := map[string]interface{}{"destination": dest}
		if outcome != "" {
			routingMeta["outcome"] = outcome
		}
		x.emitter.Emit(emit.Event{
			RunID:  runID,
			Step:   step,
			NodeID: current,
			Msg:    "routing_decision",
			Meta:   routingMeta,
		})

		if dest == End {
			x.emitter.Emit(emit.Event{
				RunID: runID,
				Step:  step,
				Msg:   "run_completed",
			})
			x.opts.Metrics.runFinished(StatusCompleted)
			return RunResult[S]{Status: StatusCompleted, State: state}
		}

		current = dest
		step++
	}
}

// suspendRun freezes the run: snapshots state and visit counters into a
// checkpoint, persists it, and reports StatusSuspended.
func (x *Executor[S]) suspendRun(ctx context.Context, runID string, step int, nodeID string, state S, visits map[string]int, susp *Suspension) RunResult[S] {
	snapshot, err := deepCopy(state)
	if err != nil {
		return x.fail(runID, step, nodeID, state, &NodeError{
			NodeID:  nodeID,
			Message: "snapshot state for checkpoint",
			Cause:   err,
		})
	}

	visitsCopy := make(map[string]int, len(visits))
	for node, count := range visits {
		visitsCopy[node] = count
	}

	cp := store.Checkpoint[S]{
		RunID:     runID,
		NodeID:    nodeID,
		State:     snapshot,
		Visits:    visitsCopy,
		Reason:    susp.Reason,
		Detail:    susp.Detail,
		CreatedAt: time.Now().UTC(),
	}

	if err := x.store.Save(ctx, cp); err != nil {
		return x.fail(runID, step, nodeID, state, &NodeError{
			NodeID:  nodeID,
			Message: "persist checkpoint",
			Cause:   err,
		})
	}
	if x.registry != nil {
		x.registry.Put(cp)
	}

	x.emitter.Emit(emit.Event{
		RunID:  runID,
		Step:   step,
		NodeID: nodeID,
		Msg:    "run_suspended",
		Meta:   map[string]interface{}{"reason": susp.Reason},
	})
	x.opts.Metrics.runFinished(StatusSuspended)

	return RunResult[S]{
		Status:     StatusSuspended,
		State:      state,
		Checkpoint: &cp,
	}
}

// fail terminates the run with StatusFailed, emitting the terminal event and
// recording metrics.
func (x *Executor[S]) fail(runID string, step int, nodeID string, state S, err error) RunResult[S] {
	x.emitter.Emit(emit.Event{
		RunID:  runID,
		Step:   step,
		NodeID: nodeID,
		Msg:    "run_failed",
		Meta:   map[string]interface{}{"error": err.Error()},
	})
	x.opts.Metrics.runFinished(StatusFailed)

	return RunResult[S]{
		Status:     StatusFailed,
		State:      state,
		FailedNode: nodeID,
		Err:        err,
	}
}

// emitNodeEnd emits the node_end event with latency and optional error meta.
func (x *Executor[S]) emitNodeEnd(runID string, step int, nodeID string, elapsed time.Duration, err error) {
	meta := map[string]interface{}{
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
	}
	x.emitter.Emit(emit.Event{
		RunID:  runID,
		Step:   step,
		NodeID: nodeID,
		Msg:    "node_end",
		Meta:   meta,
	})
}

// reduce applies the configured reducer, defaulting to whole-state
// replacement when none is set.
func (x *Executor[S]) reduce(prev, delta S) S {
	if x.reducer == nil {
		return delta
	}
	return x.reducer(prev, delta)
}
