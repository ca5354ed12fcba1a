package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// Designed for tests and single-process workflows where suspension does not
// need to survive a restart. Thread-safe.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint[S]
}

// NewMemStore creates an empty in-memory checkpoint store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		checkpoints: make(map[string]Checkpoint[S]),
	}
}

// Save persists a checkpoint, replacing any prior checkpoint for the run.
func (m *MemStore[S]) Save(_ context.Context, cp Checkpoint[S]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoints[cp.RunID] = cp
	return nil
}

// Load retrieves a run's checkpoint, or ErrNotFound.
func (m *MemStore[S]) Load(_ context.Context, runID string) (Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, exists := m.checkpoints[runID]
	if !exists {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	return cp, nil
}

// Delete removes a run's checkpoint. Idempotent.
func (m *MemStore[S]) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, runID)
	return nil
}

// List returns the suspended run IDs in sorted order.
func (m *MemStore[S]) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.checkpoints))
	for id := range m.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
