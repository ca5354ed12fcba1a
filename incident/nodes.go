package incident

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
)

// SuspendReasonApproval is the suspension reason the approval node records
// when it pauses a run for a human decision.
const SuspendReasonApproval = "awaiting approval"

// chat sends a system instruction plus one user prompt and returns the text.
func chat(ctx context.Context, llm model.ChatModel, system, prompt string) (string, error) {
	out, err := llm.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Diagnostician analyses the raw error log: it categorises the error,
// summarises it, and generates the search queries and file patterns the
// later phases work from.
type Diagnostician struct {
	llm model.ChatModel
}

// NewDiagnostician creates the diagnosis node.
func NewDiagnostician(llm model.ChatModel) *Diagnostician {
	return &Diagnostician{llm: llm}
}

// Run implements graph.Node.
func (d *Diagnostician) Run(ctx context.Context, state IncidentState) graph.NodeResult[IncidentState] {
	response, err := chat(ctx, d.llm, diagnosticianSystem,
		fmt.Sprintf(diagnosticianPrompt, state.ErrorLog))
	if err != nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("diagnose: %w", err)}
	}

	parsed := extractJSON(response)
	if parsed == nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("diagnose: unparseable model response")}
	}

	queries := jsonStringSlice(parsed, "search_keywords")
	if len(queries) > 5 {
		queries = queries[:5]
	}

	return graph.NodeResult[IncidentState]{Delta: IncidentState{
		ErrorType:          jsonString(parsed, "error_type"),
		ErrorSummary:       jsonString(parsed, "error_summary"),
		AffectedComponents: jsonStringSlice(parsed, "affected_components"),
		SearchQueries:      queries,
		FilesToCheck:       jsonStringSlice(parsed, "files_to_check"),
		Messages:           []string{"[diagnostician] " + response},
		Status:             StatusResearching,
	}}
}

// Researcher searches the web for fixes and distils the results. It may
// loop: when the model reports the findings are insufficient and proposes a
// refined query, the router sends the run back through this node with the
// narrower query, up to MaxIterations cycles.
type Researcher struct {
	llm    model.ChatModel
	search tool.Tool
}

// NewResearcher creates the research node. The search tool is typically
// TavilySearch; tests substitute a mock.
func NewResearcher(llm model.ChatModel, search tool.Tool) *Researcher {
	return &Researcher{llm: llm, search: search}
}

// Run implements graph.Node.
func (r *Researcher) Run(ctx context.Context, state IncidentState) graph.NodeResult[IncidentState] {
	var results []string
	for _, query := range state.SearchQueries {
		out, err := r.search.Call(ctx, map[string]interface{}{
			"query":       query,
			"max_results": 5,
		})
		if err != nil {
			// A failed search is a finding, not a run failure; the model can
			// still reason from whatever the other queries returned.
			results = append(results, fmt.Sprintf("Search for %q failed: %v", query, err))
			continue
		}
		if formatted, ok := out["formatted"].(string); ok && formatted != "" {
			results = append(results, formatted)
		}
	}

	searchResults := "No search results found."
	if len(results) > 0 {
		searchResults = strings.Join(results, "\n\n---\n\n")
	}

	response, err := chat(ctx, r.llm, researcherSystem,
		fmt.Sprintf(researcherPrompt, state.ErrorSummary, state.ErrorType, searchResults))
	if err != nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("research: %w", err)}
	}

	parsed := extractJSON(response)
	if parsed == nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("research: unparseable model response")}
	}

	var findings []string
	for _, sol := range jsonObjectSlice(parsed, "relevant_solutions") {
		findings = append(findings, fmt.Sprintf("- %s (source: %s, confidence: %s)",
			jsonString(sol, "solution_summary"),
			jsonString(sol, "source_url"),
			jsonString(sol, "confidence")))
	}
	if patterns := jsonStringSlice(parsed, "common_patterns"); len(patterns) > 0 {
		findings = append(findings, "Common patterns: "+strings.Join(patterns, ", "))
	}
	if warnings := jsonStringSlice(parsed, "warnings"); len(warnings) > 0 {
		findings = append(findings, "Warnings: "+strings.Join(warnings, ", "))
	}

	iterations := state.Iterations + 1
	needMore := jsonBool(parsed, "needs_more_research")
	refined := jsonString(parsed, "refined_query")

	if needMore && refined != "" && iterations < state.MaxIterations {
		return graph.NodeResult[IncidentState]{Delta: IncidentState{
			ResearchFindings: findings,
			SearchQueries:    []string{refined},
			Iterations:       iterations,
			Messages:         []string{"[researcher] " + response},
			Status:           StatusResearching,
		}}
	}

	return graph.NodeResult[IncidentState]{Delta: IncidentState{
		ResearchFindings: findings,
		RelevantDocs:     []string{searchResults},
		Iterations:       iterations,
		Messages:         []string{"[researcher] " + response},
		Status:           StatusAuditing,
	}}
}

// Auditor reads code files matching the diagnostician's patterns through a
// sandboxed file tool and asks the model to connect the code to the error.
type Auditor struct {
	llm   model.ChatModel
	files tool.Tool
}

// NewAuditor creates the code audit node. The files tool is typically
// FileReader; tests substitute a mock.
func NewAuditor(llm model.ChatModel, files tool.Tool) *Auditor {
	return &Auditor{llm: llm, files: files}
}

// Run implements graph.Node.
func (a *Auditor) Run(ctx context.Context, state IncidentState) graph.NodeResult[IncidentState] {
	var codeContext strings.Builder
	for _, pattern := range state.FilesToCheck {
		out, err := a.files.Call(ctx, map[string]interface{}{"pattern": pattern})
		if err != nil {
			continue
		}
		if formatted, ok := out["formatted"].(string); ok && formatted != "" {
			codeContext.WriteString(formatted)
			codeContext.WriteString("\n\n")
		}
	}

	code := strings.TrimSpace(codeContext.String())
	if code == "" {
		code = "No relevant code files found or accessible."
	}

	response, err := chat(ctx, a.llm, auditorSystem,
		fmt.Sprintf(auditorPrompt, state.ErrorSummary, state.ErrorType,
			strings.Join(state.ResearchFindings, "\n"), code))
	if err != nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("audit: %w", err)}
	}

	return graph.NodeResult[IncidentState]{Delta: IncidentState{
		CodeContext: code + "\n\n[Analysis]\n" + response,
		Messages:    []string{"[auditor] " + response},
		Status:      StatusSolving,
	}}
}

// Solver synthesises the diagnosis, research, and audit into a concrete fix
// with a confidence score. It flags destructive fixes for human approval and
// resets the approval decision so every new proposal gets a fresh review.
type Solver struct {
	llm model.ChatModel
}

// NewSolver creates the solution node.
func NewSolver(llm model.ChatModel) *Solver {
	return &Solver{llm: llm}
}

// Run implements graph.Node.
func (s *Solver) Run(ctx context.Context, state IncidentState) graph.NodeResult[IncidentState] {
	revision := ""
	if state.ApprovalDecision == DecisionRevise && state.ReviewerNotes != "" {
		revision = fmt.Sprintf(solverRevisionNote, state.ReviewerNotes)
	}

	response, err := chat(ctx, s.llm, solverSystem,
		fmt.Sprintf(solverPrompt, state.ErrorSummary, state.ErrorType,
			strings.Join(state.ResearchFindings, "\n"), state.CodeContext, revision))
	if err != nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("solve: %w", err)}
	}

	parsed := extractJSON(response)
	if parsed == nil {
		return graph.NodeResult[IncidentState]{Err: fmt.Errorf("solve: unparseable model response")}
	}

	steps := jsonStringSlice(parsed, "step_by_step")
	requiresApproval := jsonBool(parsed, "requires_approval")

	solution := formatSolution(parsed, steps)
	codeChanges := formatCodeChanges(parsed)

	status := StatusComplete
	if requiresApproval {
		status = StatusAwaitingApproval
	}

	return graph.NodeResult[IncidentState]{Delta: IncidentState{
		ProposedSolution:   solution,
		SolutionConfidence: jsonFloat(parsed, "confidence_score"),
		SolutionSteps:      steps,
		CodeChanges:        codeChanges,
		NeedsApproval:      requiresApproval,
		PendingAction:      jsonString(parsed, "approval_reason"),
		ApprovalDecision:   DecisionPending,
		Messages:           []string{"[solver] " + response},
		Status:             status,
	}}
}

// formatSolution renders the structured solver output as one readable block.
func formatSolution(parsed map[string]interface{}, steps []string) string {
	var sb strings.Builder

	if rootCause := jsonString(parsed, "root_cause"); rootCause != "" {
		sb.WriteString(rootCause)
		sb.WriteString("\n\n")
	}
	if summary := jsonString(parsed, "solution_summary"); summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	if len(steps) > 0 {
		sb.WriteString("\nSteps:\n")
		for i, step := range steps {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}
	if commands := jsonStringSlice(parsed, "executable_commands"); len(commands) > 0 {
		sb.WriteString("\nCommands to run:\n")
		for _, cmd := range commands {
			fmt.Fprintf(&sb, "  $ %s\n", cmd)
		}
	}
	if changes := jsonObjectSlice(parsed, "file_changes"); len(changes) > 0 {
		sb.WriteString("\nFile changes:\n")
		for _, fc := range changes {
			fmt.Fprintf(&sb, "  - %s: %s\n",
				jsonString(fc, "file_path"), jsonString(fc, "description"))
		}
	}
	if prevention := jsonString(parsed, "prevention"); prevention != "" {
		fmt.Fprintf(&sb, "\nPrevention: %s\n", prevention)
	}
	if verification := jsonString(parsed, "verification"); verification != "" {
		fmt.Fprintf(&sb, "Verification: %s\n", verification)
	}

	solution := strings.TrimSpace(sb.String())
	if solution == "" {
		solution = "No solution generated."
	}
	return solution
}

// formatCodeChanges renders before/after diffs from the solver output.
func formatCodeChanges(parsed map[string]interface{}) string {
	var sb strings.Builder
	for _, fc := range jsonObjectSlice(parsed, "file_changes") {
		before := jsonString(fc, "before")
		after := jsonString(fc, "after")
		if before == "" || after == "" {
			continue
		}
		fmt.Fprintf(&sb, "File: %s\nBefore:\n%s\nAfter:\n%s\n---\n",
			jsonString(fc, "file_path"), before, after)
	}
	return strings.TrimSpace(sb.String())
}

// Approval is the human-in-the-loop checkpoint. On first entry the decision
// is still pending, so it suspends the run with a checkpoint describing the
// action awaiting sign-off. On resume the reviewer's decision is present in
// state and the node records the verdict; routing then either finishes the
// run or sends it back to the solver for another attempt.
type Approval struct{}

// NewApproval creates the approval checkpoint node.
func NewApproval() *Approval {
	return &Approval{}
}

// Run implements graph.Node.
func (a *Approval) Run(_ context.Context, state IncidentState) graph.NodeResult[IncidentState] {
	switch state.ApprovalDecision {
	case DecisionAccept:
		return graph.NodeResult[IncidentState]{Delta: IncidentState{
			Messages: []string{"[approval] solution approved by reviewer"},
			Status:   StatusComplete,
		}}
	case DecisionRevise:
		msg := "[approval] solution rejected, returning to solver"
		if state.ReviewerNotes != "" {
			msg += ": " + state.ReviewerNotes
		}
		return graph.NodeResult[IncidentState]{Delta: IncidentState{
			Messages: []string{msg},
			Status:   StatusSolving,
		}}
	default:
		return graph.NodeResult[IncidentState]{
			Delta: IncidentState{
				Messages: []string{"[approval] awaiting human decision"},
				Status:   StatusAwaitingApproval,
			},
			Suspend: &graph.Suspension{
				Reason: SuspendReasonApproval,
				Detail: map[string]interface{}{
					"pending_action": state.PendingAction,
					"confidence":     state.SolutionConfidence,
					"solution":       truncate(state.ProposedSolution, 500),
				},
			},
		}
	}
}
