package incident

// Router outcome names, bound to destinations in NewPlan.
const (
	// Research loop outcomes.
	OutcomeResearch = "research"
	OutcomeAudit    = "audit"

	// Solution confidence outcomes.
	OutcomeRefine  = "refine"
	OutcomeApprove = "approve"
	OutcomeDone    = "done"

	// Approval verdict outcomes.
	OutcomeAccept = "accept"
	OutcomeRevise = "revise"
)

// ShouldContinueResearch decides whether the researcher loops for another
// search cycle or hands off to the code audit. The researcher signals a loop
// by leaving Status at researching; the iteration cap is enforced here as
// well so a model that always asks for more cannot spin forever.
func ShouldContinueResearch(state IncidentState) string {
	if state.Status == StatusResearching && state.Iterations < state.MaxIterations {
		return OutcomeResearch
	}
	return OutcomeAudit
}

// CheckSolutionConfidence decides what happens after the solver:
//   - a low-confidence proposal goes back to research, while iteration
//     budget remains
//   - a risky proposal goes to the human approval checkpoint
//   - anything else finishes the run
func CheckSolutionConfidence(state IncidentState) string {
	if state.SolutionConfidence < 0.3 && state.Iterations < state.MaxIterations {
		return OutcomeRefine
	}
	if state.NeedsApproval {
		return OutcomeApprove
	}
	return OutcomeDone
}

// AfterApproval routes on the reviewer's verdict: acceptance finishes the
// run, anything else sends it back to the solver for a revised proposal.
// This router only runs after the approval node completed without
// suspending, which means a decision is present.
func AfterApproval(state IncidentState) string {
	if state.ApprovalDecision == DecisionAccept {
		return OutcomeAccept
	}
	return OutcomeRevise
}
