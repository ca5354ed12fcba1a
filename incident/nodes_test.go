package incident

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
)

const diagnoseResponse = `{
	"error_type": "database",
	"error_summary": "connection pool exhausted",
	"affected_components": ["worker", "postgres"],
	"search_keywords": ["psycopg2 connection slots reserved"],
	"files_to_check": ["worker.py", "database.py"]
}`

const researchDoneResponse = `{
	"relevant_solutions": [
		{"solution_summary": "use pgbouncer", "source_url": "https://stackoverflow.com/q/1", "confidence": "high"}
	],
	"common_patterns": ["pool exhaustion under load"],
	"warnings": ["raising max_connections needs a restart"],
	"needs_more_research": false,
	"refined_query": ""
}`

const researchLoopResponse = `{
	"relevant_solutions": [],
	"common_patterns": [],
	"warnings": [],
	"needs_more_research": true,
	"refined_query": "pgbouncer transaction pooling psycopg2"
}`

const solveRiskyResponse = `{
	"root_cause": "workers open one connection per task and never release them",
	"solution_summary": "introduce pgbouncer in transaction pooling mode",
	"confidence_score": 0.8,
	"step_by_step": ["install pgbouncer", "point workers at the pooler"],
	"executable_commands": ["apt install pgbouncer"],
	"file_changes": [
		{"file_path": "worker.py", "description": "reuse the pool", "before": "connect()", "after": "pool.getconn()"}
	],
	"requires_approval": true,
	"approval_reason": "restarts production workers",
	"prevention": "add pool saturation alerting",
	"verification": "watch pg_stat_activity"
}`

const solveSafeResponse = `{
	"root_cause": "workers open one connection per task",
	"solution_summary": "reuse a shared connection pool",
	"confidence_score": 0.9,
	"step_by_step": ["switch to a module-level pool"],
	"requires_approval": false
}`

func TestDiagnostician(t *testing.T) {
	t.Run("parses the diagnosis", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{diagnoseResponse}}
		node := NewDiagnostician(llm)

		result := node.Run(context.Background(), NewInitialState("stack trace", 3))
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}

		delta := result.Delta
		if delta.ErrorType != "database" {
			t.Errorf("ErrorType = %q", delta.ErrorType)
		}
		if delta.ErrorSummary != "connection pool exhausted" {
			t.Errorf("ErrorSummary = %q", delta.ErrorSummary)
		}
		if !reflect.DeepEqual(delta.AffectedComponents, []string{"worker", "postgres"}) {
			t.Errorf("AffectedComponents = %v", delta.AffectedComponents)
		}
		if !reflect.DeepEqual(delta.FilesToCheck, []string{"worker.py", "database.py"}) {
			t.Errorf("FilesToCheck = %v", delta.FilesToCheck)
		}
		if delta.Status != StatusResearching {
			t.Errorf("Status = %q", delta.Status)
		}
		if len(delta.Messages) != 1 || !strings.HasPrefix(delta.Messages[0], "[diagnostician]") {
			t.Errorf("Messages = %v", delta.Messages)
		}

		// The error log reaches the model.
		if !strings.Contains(llm.Calls[0][1].Content, "stack trace") {
			t.Error("prompt missing the error log")
		}
	})

	t.Run("caps search queries at five", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{`{
			"error_type": "network",
			"search_keywords": ["a","b","c","d","e","f","g"]
		}`}}
		result := NewDiagnostician(llm).Run(context.Background(), IncidentState{})
		if got := len(result.Delta.SearchQueries); got != 5 {
			t.Errorf("queries = %d, want 5", got)
		}
	})

	t.Run("model error fails the node", func(t *testing.T) {
		boom := errors.New("rate limited")
		llm := &model.MockChatModel{Err: boom}
		result := NewDiagnostician(llm).Run(context.Background(), IncidentState{})
		if !errors.Is(result.Err, boom) {
			t.Errorf("err = %v", result.Err)
		}
	})

	t.Run("unparseable response fails the node", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{"I could not produce JSON, sorry."}}
		result := NewDiagnostician(llm).Run(context.Background(), IncidentState{})
		if result.Err == nil {
			t.Error("expected error for unparseable response")
		}
	})
}

func TestResearcher(t *testing.T) {
	baseState := IncidentState{
		ErrorType:     "database",
		ErrorSummary:  "connection pool exhausted",
		SearchQueries: []string{"psycopg2 connection slots"},
		MaxIterations: 3,
	}

	t.Run("finishes and hands off to audit", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{researchDoneResponse}}
		search := &tool.MockTool{Output: map[string]interface{}{
			"formatted": "--- Result 1 ---\nuse pgbouncer",
		}}
		result := NewResearcher(llm, search).Run(context.Background(), baseState)
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}

		delta := result.Delta
		if delta.Status != StatusAuditing {
			t.Errorf("Status = %q, want auditing", delta.Status)
		}
		if delta.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", delta.Iterations)
		}
		if len(delta.ResearchFindings) != 3 {
			t.Errorf("findings = %v", delta.ResearchFindings)
		}
		if !strings.Contains(delta.ResearchFindings[0], "use pgbouncer") {
			t.Errorf("first finding = %q", delta.ResearchFindings[0])
		}
		if len(delta.RelevantDocs) != 1 || !strings.Contains(delta.RelevantDocs[0], "use pgbouncer") {
			t.Errorf("RelevantDocs = %v", delta.RelevantDocs)
		}

		if search.CallCount() != 1 {
			t.Errorf("search calls = %d, want 1", search.CallCount())
		}
		if search.Calls[0]["query"] != "psycopg2 connection slots" {
			t.Errorf("search input = %v", search.Calls[0])
		}
	})

	t.Run("loops with the refined query", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{researchLoopResponse}}
		search := &tool.MockTool{Output: map[string]interface{}{"formatted": "thin results"}}
		result := NewResearcher(llm, search).Run(context.Background(), baseState)
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}

		delta := result.Delta
		if delta.Status != StatusResearching {
			t.Errorf("Status = %q, want researching", delta.Status)
		}
		want := []string{"pgbouncer transaction pooling psycopg2"}
		if !reflect.DeepEqual(delta.SearchQueries, want) {
			t.Errorf("SearchQueries = %v, want %v", delta.SearchQueries, want)
		}
		if len(delta.RelevantDocs) != 0 {
			t.Errorf("loop delta carries docs: %v", delta.RelevantDocs)
		}
	})

	t.Run("iteration budget overrides the loop request", func(t *testing.T) {
		state := baseState
		state.Iterations = 2 // next iteration is the 3rd of 3
		llm := &model.MockChatModel{Responses: []string{researchLoopResponse}}
		search := &tool.MockTool{Output: map[string]interface{}{"formatted": "x"}}
		result := NewResearcher(llm, search).Run(context.Background(), state)
		if result.Delta.Status != StatusAuditing {
			t.Errorf("Status = %q, want auditing at the cap", result.Delta.Status)
		}
	})

	t.Run("failed search becomes a finding", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{researchDoneResponse}}
		search := &tool.MockTool{Err: errors.New("api quota exceeded")}
		result := NewResearcher(llm, search).Run(context.Background(), baseState)
		if result.Err != nil {
			t.Fatalf("search failure killed the run: %v", result.Err)
		}
		// The failure text is handed to the model as context.
		prompt := llm.Calls[0][1].Content
		if !strings.Contains(prompt, "api quota exceeded") {
			t.Errorf("prompt missing failure context: %q", prompt)
		}
	})
}

func TestAuditor(t *testing.T) {
	state := IncidentState{
		ErrorType:    "database",
		ErrorSummary: "connection pool exhausted",
		FilesToCheck: []string{"worker.py"},
	}

	t.Run("feeds code to the model", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{"The worker opens a connection per task."}}
		files := &tool.MockTool{Output: map[string]interface{}{
			"formatted": "--- File: worker.py ---\nconn = psycopg2.connect(...)",
		}}
		result := NewAuditor(llm, files).Run(context.Background(), state)
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}

		delta := result.Delta
		if delta.Status != StatusSolving {
			t.Errorf("Status = %q, want solving", delta.Status)
		}
		if !strings.Contains(delta.CodeContext, "psycopg2.connect") {
			t.Errorf("CodeContext missing the code: %q", delta.CodeContext)
		}
		if !strings.Contains(delta.CodeContext, "[Analysis]") {
			t.Errorf("CodeContext missing the analysis: %q", delta.CodeContext)
		}
		if files.Calls[0]["pattern"] != "worker.py" {
			t.Errorf("files input = %v", files.Calls[0])
		}
	})

	t.Run("no readable files still audits", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{"Nothing to see."}}
		files := &tool.MockTool{Err: errors.New("denied")}
		result := NewAuditor(llm, files).Run(context.Background(), state)
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}
		if !strings.Contains(result.Delta.CodeContext, "No relevant code files") {
			t.Errorf("CodeContext = %q", result.Delta.CodeContext)
		}
	})
}

func TestSolver(t *testing.T) {
	state := IncidentState{
		ErrorType:        "database",
		ErrorSummary:     "connection pool exhausted",
		ResearchFindings: []string{"- use pgbouncer"},
		CodeContext:      "worker.py opens raw connections",
		MaxIterations:    3,
	}

	t.Run("risky solution awaits approval", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{solveRiskyResponse}}
		result := NewSolver(llm).Run(context.Background(), state)
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}

		delta := result.Delta
		if delta.Status != StatusAwaitingApproval {
			t.Errorf("Status = %q", delta.Status)
		}
		if !delta.NeedsApproval || delta.PendingAction != "restarts production workers" {
			t.Errorf("approval flags: needs=%v action=%q", delta.NeedsApproval, delta.PendingAction)
		}
		if delta.ApprovalDecision != DecisionPending {
			t.Errorf("ApprovalDecision = %q, want pending", delta.ApprovalDecision)
		}
		if delta.SolutionConfidence != 0.8 {
			t.Errorf("confidence = %v", delta.SolutionConfidence)
		}
		for _, want := range []string{
			"never release them",
			"pgbouncer in transaction pooling mode",
			"1. install pgbouncer",
			"$ apt install pgbouncer",
			"worker.py: reuse the pool",
			"Prevention:",
			"Verification:",
		} {
			if !strings.Contains(delta.ProposedSolution, want) {
				t.Errorf("ProposedSolution missing %q:\n%s", want, delta.ProposedSolution)
			}
		}
		for _, want := range []string{"Before:", "connect()", "After:", "pool.getconn()"} {
			if !strings.Contains(delta.CodeChanges, want) {
				t.Errorf("CodeChanges missing %q:\n%s", want, delta.CodeChanges)
			}
		}
	})

	t.Run("safe solution completes", func(t *testing.T) {
		llm := &model.MockChatModel{Responses: []string{solveSafeResponse}}
		result := NewSolver(llm).Run(context.Background(), state)
		if result.Delta.Status != StatusComplete {
			t.Errorf("Status = %q, want complete", result.Delta.Status)
		}
		if result.Delta.NeedsApproval {
			t.Error("NeedsApproval set for safe solution")
		}
	})

	t.Run("revision notes reach the prompt", func(t *testing.T) {
		revised := state
		revised.ApprovalDecision = DecisionRevise
		revised.ReviewerNotes = "avoid restarting workers during business hours"

		llm := &model.MockChatModel{Responses: []string{solveSafeResponse}}
		result := NewSolver(llm).Run(context.Background(), revised)
		if result.Err != nil {
			t.Fatalf("err = %v", result.Err)
		}
		prompt := llm.Calls[0][1].Content
		if !strings.Contains(prompt, "avoid restarting workers during business hours") {
			t.Errorf("prompt missing reviewer notes: %q", prompt)
		}
	})
}

func TestApproval(t *testing.T) {
	state := IncidentState{
		ProposedSolution:   "introduce pgbouncer",
		SolutionConfidence: 0.8,
		PendingAction:      "restarts production workers",
	}

	t.Run("pending decision suspends", func(t *testing.T) {
		pending := state
		pending.ApprovalDecision = DecisionPending
		result := NewApproval().Run(context.Background(), pending)

		if result.Suspend == nil {
			t.Fatal("expected suspension")
		}
		if result.Suspend.Reason != SuspendReasonApproval {
			t.Errorf("reason = %q", result.Suspend.Reason)
		}
		detail := result.Suspend.Detail
		if detail["pending_action"] != "restarts production workers" {
			t.Errorf("detail = %v", detail)
		}
		if detail["confidence"] != 0.8 {
			t.Errorf("confidence detail = %v", detail["confidence"])
		}
		if result.Delta.Status != StatusAwaitingApproval {
			t.Errorf("Status = %q", result.Delta.Status)
		}
	})

	t.Run("accept completes", func(t *testing.T) {
		accepted := state
		accepted.ApprovalDecision = DecisionAccept
		result := NewApproval().Run(context.Background(), accepted)
		if result.Suspend != nil {
			t.Error("accepted run suspended")
		}
		if result.Delta.Status != StatusComplete {
			t.Errorf("Status = %q", result.Delta.Status)
		}
	})

	t.Run("revise returns to solving", func(t *testing.T) {
		revised := state
		revised.ApprovalDecision = DecisionRevise
		revised.ReviewerNotes = "too risky"
		result := NewApproval().Run(context.Background(), revised)
		if result.Suspend != nil {
			t.Error("revised run suspended")
		}
		if result.Delta.Status != StatusSolving {
			t.Errorf("Status = %q", result.Delta.Status)
		}
		if !strings.Contains(result.Delta.Messages[0], "too risky") {
			t.Errorf("Messages = %v", result.Delta.Messages)
		}
	})
}
