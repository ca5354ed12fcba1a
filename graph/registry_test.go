package graph

import (
	"reflect"
	"sync"
	"testing"

	"github.com/dshills/stategraph/graph/store"
)

func TestRegistry(t *testing.T) {
	cp := func(runID string) store.Checkpoint[testState] {
		return store.Checkpoint[testState]{RunID: runID, NodeID: "gate"}
	}

	t.Run("put and get", func(t *testing.T) {
		r := NewRegistry[testState]()
		r.Put(cp("r1"))

		got, ok := r.Get("r1")
		if !ok || got.RunID != "r1" {
			t.Errorf("Get = %v, %v", got, ok)
		}
		if _, ok := r.Get("missing"); ok {
			t.Error("Get reported a missing run as present")
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		r := NewRegistry[testState]()
		r.Put(cp("r1"))
		updated := cp("r1")
		updated.NodeID = "other"
		r.Put(updated)

		got, _ := r.Get("r1")
		if got.NodeID != "other" {
			t.Errorf("NodeID = %q, want other", got.NodeID)
		}
		if r.Len() != 1 {
			t.Errorf("Len = %d, want 1", r.Len())
		}
	})

	t.Run("take removes", func(t *testing.T) {
		r := NewRegistry[testState]()
		r.Put(cp("r1"))

		got, ok := r.Take("r1")
		if !ok || got.RunID != "r1" {
			t.Fatalf("Take = %v, %v", got, ok)
		}
		if _, ok := r.Take("r1"); ok {
			t.Error("second Take succeeded")
		}
	})

	t.Run("take is exclusive under contention", func(t *testing.T) {
		r := NewRegistry[testState]()
		r.Put(cp("r1"))

		const workers = 16
		var wg sync.WaitGroup
		wins := make(chan string, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := r.Take("r1"); ok {
					wins <- "won"
				}
			}()
		}
		wg.Wait()
		close(wins)

		var count int
		for range wins {
			count++
		}
		if count != 1 {
			t.Errorf("winners = %d, want exactly 1", count)
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		r := NewRegistry[testState]()
		r.Put(cp("r1"))
		r.Remove("r1")
		r.Remove("r1")
		if r.Len() != 0 {
			t.Errorf("Len = %d, want 0", r.Len())
		}
	})

	t.Run("run IDs sorted", func(t *testing.T) {
		r := NewRegistry[testState]()
		r.Put(cp("zebra"))
		r.Put(cp("alpha"))
		r.Put(cp("mango"))

		want := []string{"alpha", "mango", "zebra"}
		if got := r.RunIDs(); !reflect.DeepEqual(got, want) {
			t.Errorf("RunIDs = %v, want %v", got, want)
		}
	})
}
