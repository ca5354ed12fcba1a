// Package store provides persistence for suspended-run checkpoints.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for the requested run ID.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a flat, serializable snapshot of a suspended run: everything
// needed to resume execution at exactly the node that paused.
//
// A checkpoint is created only when a node signals suspension and is
// consumed exactly once by a resume call. The record must round-trip through
// its serialized form exactly: resuming after serialize/deserialize must
// reproduce identical continuation behavior.
//
// Type parameter S is the state type, which must be JSON-serializable.
type Checkpoint[S any] struct {
	// RunID identifies the suspended run. One checkpoint exists per run.
	RunID string `json:"run_id"`

	// NodeID names the node that suspended. Resume re-enters this node,
	// not its successor, so the node's own logic can branch on the merged
	// external decision.
	NodeID string `json:"node_id"`

	// State is the full state snapshot at suspension, including any delta
	// the suspending node returned alongside its suspension request.
	State S `json:"state"`

	// Visits carries the per-node revisit counters so iteration bounds
	// survive suspend/resume.
	Visits map[string]int `json:"visits,omitempty"`

	// Reason is the machine-readable suspension reason, e.g.
	// "awaiting approval".
	Reason string `json:"reason,omitempty"`

	// Detail summarizes the pending action and its impact for the external
	// decider. Optional.
	Detail map[string]interface{} `json:"detail,omitempty"`

	// CreatedAt records when the run suspended.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists suspended-run checkpoints so suspension can survive a
// process restart before resume.
//
// Implementations must be safe for concurrent use: multiple runs may suspend
// and multiple external callers may resume at the same time.
//
// Available implementations:
//   - MemStore: in-memory, for tests and single-process workflows
//   - SQLiteStore: single-file database, zero-setup local persistence
//   - MySQLStore: shared database for production deployments
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// Save persists a checkpoint, replacing any existing checkpoint for the
	// same run ID.
	Save(ctx context.Context, cp Checkpoint[S]) error

	// Load retrieves the checkpoint for a run.
	// Returns ErrNotFound if the run has no suspended checkpoint.
	Load(ctx context.Context, runID string) (Checkpoint[S], error)

	// Delete removes a run's checkpoint. Deleting a missing checkpoint is
	// not an error; a resume that consumed the checkpoint and a cleanup
	// sweep may race benignly.
	Delete(ctx context.Context, runID string) error

	// List returns the run IDs with a suspended checkpoint, sorted.
	List(ctx context.Context) ([]string, error)
}
