// Package incident implements an automated incident-response workflow: it
// diagnoses an error log, researches fixes on the web, audits related code,
// proposes a solution, and pauses for human approval when the fix is risky.
package incident

import "fmt"

// Investigation status values, carried in IncidentState.Status.
const (
	StatusInvestigating    = "investigating"
	StatusResearching      = "researching"
	StatusAuditing         = "auditing"
	StatusSolving          = "solving"
	StatusAwaitingApproval = "awaiting_approval"
	StatusComplete         = "complete"
)

// Approval decision values, carried in IncidentState.ApprovalDecision.
// The solver resets the decision to DecisionPending with every new proposal;
// the external reviewer supplies DecisionAccept or DecisionRevise on resume.
const (
	DecisionPending = "pending"
	DecisionAccept  = "accept"
	DecisionRevise  = "revise"
)

// DefaultMaxIterations bounds the research refinement loop when the caller
// does not configure one.
const DefaultMaxIterations = 3

// IncidentState is the shared state flowing through the incident workflow.
// Every node reads the fields it needs and returns a delta with the fields
// it produced; ReduceIncidentState merges deltas field by field.
type IncidentState struct {
	// ErrorLog is the raw error message or stack trace under investigation.
	ErrorLog string `json:"error_log,omitempty"`

	// Diagnostic phase.
	ErrorType          string   `json:"error_type,omitempty"`
	ErrorSummary       string   `json:"error_summary,omitempty"`
	AffectedComponents []string `json:"affected_components,omitempty"`

	// Research phase.
	SearchQueries    []string `json:"search_queries,omitempty"`
	ResearchFindings []string `json:"research_findings,omitempty"`
	RelevantDocs     []string `json:"relevant_docs,omitempty"`

	// Code audit phase.
	FilesToCheck []string `json:"files_to_check,omitempty"`
	CodeContext  string   `json:"code_context,omitempty"`

	// Solution phase.
	ProposedSolution   string   `json:"proposed_solution,omitempty"`
	SolutionConfidence float64  `json:"solution_confidence,omitempty"`
	SolutionSteps      []string `json:"solution_steps,omitempty"`
	CodeChanges        string   `json:"code_changes,omitempty"`

	// Control flow.
	Iterations    int    `json:"iterations,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	NeedsApproval bool   `json:"needs_approval,omitempty"`
	PendingAction string `json:"pending_action,omitempty"`

	// ApprovalDecision is the human verdict on the proposed solution. It is
	// DecisionPending until a reviewer resumes the run with DecisionAccept or
	// DecisionRevise.
	ApprovalDecision string `json:"approval_decision,omitempty"`

	// ReviewerNotes carries optional guidance from the reviewer on revise.
	ReviewerNotes string `json:"reviewer_notes,omitempty"`

	// Messages is the append-only log of each node's reasoning.
	Messages []string `json:"messages,omitempty"`

	// Status tracks the investigation phase.
	Status string `json:"status,omitempty"`
}

// NewInitialState creates the starting state for one investigation. A
// maxIterations of zero selects DefaultMaxIterations.
func NewInitialState(errorLog string, maxIterations int) IncidentState {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return IncidentState{
		ErrorLog:         errorLog,
		ErrorType:        "unknown",
		MaxIterations:    maxIterations,
		ApprovalDecision: DecisionPending,
		Status:           StatusInvestigating,
	}
}

// ReduceIncidentState merges a node's delta into the accumulated state.
//
// Merge rules, per field group:
//   - Scalars replace when the delta sets a non-zero value.
//   - Messages, ResearchFindings, and RelevantDocs are append-only logs.
//   - SearchQueries and FilesToCheck replace wholesale when set; the research
//     loop narrows queries between iterations rather than accumulating them.
//   - The solver's solution fields (confidence, steps, approval flags)
//     replace as a group whenever a delta carries a new ProposedSolution, so
//     a refined proposal never inherits stale flags from its predecessor.
func ReduceIncidentState(prev, delta IncidentState) IncidentState {
	if delta.ErrorLog != "" {
		prev.ErrorLog = delta.ErrorLog
	}
	if delta.ErrorType != "" {
		prev.ErrorType = delta.ErrorType
	}
	if delta.ErrorSummary != "" {
		prev.ErrorSummary = delta.ErrorSummary
	}
	if delta.AffectedComponents != nil {
		prev.AffectedComponents = delta.AffectedComponents
	}

	if delta.SearchQueries != nil {
		prev.SearchQueries = delta.SearchQueries
	}
	prev.ResearchFindings = append(prev.ResearchFindings, delta.ResearchFindings...)
	prev.RelevantDocs = append(prev.RelevantDocs, delta.RelevantDocs...)

	if delta.FilesToCheck != nil {
		prev.FilesToCheck = delta.FilesToCheck
	}
	if delta.CodeContext != "" {
		prev.CodeContext = delta.CodeContext
	}

	if delta.ProposedSolution != "" {
		prev.ProposedSolution = delta.ProposedSolution
		prev.SolutionConfidence = delta.SolutionConfidence
		prev.SolutionSteps = delta.SolutionSteps
		prev.CodeChanges = delta.CodeChanges
		prev.NeedsApproval = delta.NeedsApproval
		prev.PendingAction = delta.PendingAction
	}

	if delta.Iterations > prev.Iterations {
		prev.Iterations = delta.Iterations
	}
	if delta.MaxIterations > 0 {
		prev.MaxIterations = delta.MaxIterations
	}

	if delta.ApprovalDecision != "" {
		prev.ApprovalDecision = delta.ApprovalDecision
	}
	if delta.ReviewerNotes != "" {
		prev.ReviewerNotes = delta.ReviewerNotes
	}

	prev.Messages = append(prev.Messages, delta.Messages...)

	if delta.Status != "" {
		prev.Status = delta.Status
	}
	return prev
}

// Summary renders a short human-readable report of the investigation.
func (s IncidentState) Summary() string {
	return fmt.Sprintf("type=%s confidence=%.0f%% iterations=%d status=%s",
		s.ErrorType, s.SolutionConfidence*100, s.Iterations, s.Status)
}
