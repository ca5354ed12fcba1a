package incident

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/store"
	"github.com/dshills/stategraph/graph/tool"
)

// newMockedResponder wires the workflow with canned model responses and mock
// tools. The emitter is returned for event assertions.
func newMockedResponder(t *testing.T, responses []string) (*Responder, *model.MockChatModel, *emit.BufferedEmitter) {
	t.Helper()

	llm := &model.MockChatModel{Responses: responses}
	search := &tool.MockTool{Output: map[string]interface{}{
		"formatted": "--- Result 1 ---\nuse pgbouncer",
	}}
	files := &tool.MockTool{Output: map[string]interface{}{
		"formatted": "--- File: worker.py ---\nconn = psycopg2.connect(...)",
	}}
	emitter := emit.NewBufferedEmitter()

	responder, err := NewResponder(llm, search, files,
		WithStore(store.NewMemStore[IncidentState]()),
		WithEmitter(emitter),
		WithExecutorOptions(graph.WithMaxVisits(10)),
	)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	return responder, llm, emitter
}

func TestNewPlan(t *testing.T) {
	llm := &model.MockChatModel{}
	plan, err := NewPlan(llm, &tool.MockTool{}, &tool.MockTool{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if plan.Start() != NodeDiagnose {
		t.Errorf("start = %q", plan.Start())
	}
	for _, name := range []string{NodeDiagnose, NodeResearch, NodeAudit, NodeSolve, NodeApproval} {
		if !plan.Has(name) {
			t.Errorf("plan missing node %q", name)
		}
	}
}

func TestResponder_InvestigateAndApprove(t *testing.T) {
	ctx := context.Background()
	responder, _, emitter := newMockedResponder(t, []string{
		diagnoseResponse,
		researchDoneResponse,
		"The worker opens a connection per task.",
		solveRiskyResponse,
	})

	result := responder.Investigate(ctx, "inc-1", "stack trace", 3)

	if result.Status != graph.StatusSuspended {
		t.Fatalf("status = %v, want suspended (err: %v)", result.Status, result.Err)
	}
	if result.Checkpoint.NodeID != NodeApproval {
		t.Errorf("suspended at %q, want %q", result.Checkpoint.NodeID, NodeApproval)
	}
	if result.Checkpoint.Reason != SuspendReasonApproval {
		t.Errorf("reason = %q", result.Checkpoint.Reason)
	}

	t.Run("pending approval is listable", func(t *testing.T) {
		pending, err := responder.PendingApprovals(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(pending) != 1 || pending[0] != "inc-1" {
			t.Errorf("pending = %v", pending)
		}

		cp, err := responder.Pending(ctx, "inc-1")
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if cp.Detail["pending_action"] != "restarts production workers" {
			t.Errorf("detail = %v", cp.Detail)
		}
	})

	t.Run("workflow path through the events", func(t *testing.T) {
		starts := emitter.HistoryWithFilter("inc-1", emit.HistoryFilter{Msg: "node_start"})
		var path []string
		for _, event := range starts {
			path = append(path, event.NodeID)
		}
		want := []string{NodeDiagnose, NodeResearch, NodeAudit, NodeSolve, NodeApproval}
		if len(path) != len(want) {
			t.Fatalf("path = %v, want %v", path, want)
		}
		for i := range want {
			if path[i] != want[i] {
				t.Errorf("path[%d] = %q, want %q", i, path[i], want[i])
			}
		}
	})

	final, err := responder.Approve(ctx, "inc-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if final.Status != graph.StatusCompleted {
		t.Fatalf("status = %v, want completed (err: %v)", final.Status, final.Err)
	}
	if final.State.Status != StatusComplete {
		t.Errorf("state status = %q", final.State.Status)
	}
	if !strings.Contains(final.State.ProposedSolution, "pgbouncer") {
		t.Errorf("solution = %q", final.State.ProposedSolution)
	}

	t.Run("checkpoint consumed", func(t *testing.T) {
		if _, err := responder.Pending(ctx, "inc-1"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("pending after approve = %v, want ErrNotFound", err)
		}
	})
}

func TestResponder_ReviseLoop(t *testing.T) {
	ctx := context.Background()
	responder, llm, _ := newMockedResponder(t, []string{
		diagnoseResponse,
		researchDoneResponse,
		"The worker opens a connection per task.",
		solveRiskyResponse, // first proposal, needs approval
		solveSafeResponse,  // revised proposal, completes without approval
	})

	result := responder.Investigate(ctx, "inc-2", "stack trace", 3)
	if result.Status != graph.StatusSuspended {
		t.Fatalf("status = %v, want suspended (err: %v)", result.Status, result.Err)
	}
	solverCallsBefore := llm.CallCount()

	final, err := responder.Revise(ctx, "inc-2", "avoid restarting workers")
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if final.Status != graph.StatusCompleted {
		t.Fatalf("status = %v, want completed (err: %v)", final.Status, final.Err)
	}

	t.Run("solver ran again with the notes", func(t *testing.T) {
		if llm.CallCount() != solverCallsBefore+1 {
			t.Fatalf("model calls after revise = %d, want %d", llm.CallCount(), solverCallsBefore+1)
		}
		prompt := llm.Calls[len(llm.Calls)-1][1].Content
		if !strings.Contains(prompt, "avoid restarting workers") {
			t.Errorf("revised prompt missing notes: %q", prompt)
		}
	})

	t.Run("final state carries the revised proposal", func(t *testing.T) {
		if !strings.Contains(final.State.ProposedSolution, "reuse a shared connection pool") {
			t.Errorf("solution = %q", final.State.ProposedSolution)
		}
		if final.State.Status != StatusComplete {
			t.Errorf("status = %q", final.State.Status)
		}
	})
}

func TestResponder_ResearchLoop(t *testing.T) {
	ctx := context.Background()
	responder, llm, emitter := newMockedResponder(t, []string{
		diagnoseResponse,
		researchLoopResponse, // asks for a narrower query
		researchDoneResponse, // second pass succeeds
		"The worker opens a connection per task.",
		solveSafeResponse,
	})

	result := responder.Investigate(ctx, "inc-3", "stack trace", 3)
	if result.Status != graph.StatusCompleted {
		t.Fatalf("status = %v, want completed (err: %v)", result.Status, result.Err)
	}

	t.Run("research node ran twice", func(t *testing.T) {
		starts := emitter.HistoryWithFilter("inc-3", emit.HistoryFilter{
			NodeID: NodeResearch,
			Msg:    "node_start",
		})
		if len(starts) != 2 {
			t.Errorf("research runs = %d, want 2", len(starts))
		}
	})

	t.Run("second pass used the refined query", func(t *testing.T) {
		if len(llm.Calls) != 5 {
			t.Fatalf("model calls = %d, want 5", len(llm.Calls))
		}
		if result.State.SearchQueries[0] != "pgbouncer transaction pooling psycopg2" {
			t.Errorf("final queries = %v", result.State.SearchQueries)
		}
	})

	if result.State.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.State.Iterations)
	}
}

func TestResponder_ApproveWithoutSuspension(t *testing.T) {
	ctx := context.Background()
	responder, _, _ := newMockedResponder(t, []string{diagnoseResponse})

	if _, err := responder.Approve(ctx, "never-ran"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
