package graph

import (
	"sort"
	"sync"

	"github.com/dshills/stategraph/graph/store"
)

// Registry is an in-process index of suspended runs. It mirrors the durable
// store so callers can inspect pending decisions without a storage round
// trip, e.g. to render an approval queue.
//
// The registry is advisory: the store remains the source of truth across
// restarts, and Resume consults the checkpoint it is handed, not the
// registry. Safe for concurrent use.
type Registry[S any] struct {
	mu        sync.RWMutex
	suspended map[string]store.Checkpoint[S]
}

// NewRegistry creates an empty registry.
func NewRegistry[S any]() *Registry[S] {
	return &Registry[S]{
		suspended: make(map[string]store.Checkpoint[S]),
	}
}

// Put records a suspended run, replacing any prior entry for the same run.
func (r *Registry[S]) Put(cp store.Checkpoint[S]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.suspended[cp.RunID] = cp
}

// Get returns the checkpoint for a suspended run, if present.
func (r *Registry[S]) Get(runID string) (store.Checkpoint[S], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.suspended[runID]
	return cp, ok
}

// Take removes and returns the checkpoint for a run. The second result is
// false when the run was not registered. Taking is atomic, so two resumers
// racing for one run cannot both receive the entry.
func (r *Registry[S]) Take(runID string) (store.Checkpoint[S], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp, ok := r.suspended[runID]
	if ok {
		delete(r.suspended, runID)
	}
	return cp, ok
}

// Remove drops a run's entry. Idempotent.
func (r *Registry[S]) Remove(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.suspended, runID)
}

// RunIDs returns the registered run IDs in sorted order.
func (r *Registry[S]) RunIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.suspended))
	for id := range r.suspended {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports how many runs are currently registered as suspended.
func (r *Registry[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.suspended)
}
