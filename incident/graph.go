package incident

import (
	"context"
	"fmt"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/store"
	"github.com/dshills/stategraph/graph/tool"
)

// Workflow node names.
const (
	NodeDiagnose = "diagnose"
	NodeResearch = "research"
	NodeAudit    = "audit"
	NodeSolve    = "solve"
	NodeApproval = "human_approval"
)

// NewPlan builds and compiles the incident-response workflow:
//
//	diagnose -> research -> (loop | audit) -> solve -> (refine | approve | end)
//	                ^___________________________|          |
//	                                          human_approval -> (end | solve)
//
// The search and files tools are injected so tests can substitute mocks for
// TavilySearch and FileReader.
func NewPlan(llm model.ChatModel, search, files tool.Tool) (*graph.Plan[IncidentState], error) {
	b := graph.NewBuilder[IncidentState]()

	if err := b.AddNode(NodeDiagnose, NewDiagnostician(llm)); err != nil {
		return nil, err
	}
	if err := b.AddNode(NodeResearch, NewResearcher(llm, search)); err != nil {
		return nil, err
	}
	if err := b.AddNode(NodeAudit, NewAuditor(llm, files)); err != nil {
		return nil, err
	}
	if err := b.AddNode(NodeSolve, NewSolver(llm)); err != nil {
		return nil, err
	}
	if err := b.AddNode(NodeApproval, NewApproval()); err != nil {
		return nil, err
	}

	if err := b.AddEdge(NodeDiagnose, NodeResearch); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(NodeResearch, ShouldContinueResearch, map[string]string{
		OutcomeResearch: NodeResearch,
		OutcomeAudit:    NodeAudit,
	}); err != nil {
		return nil, err
	}
	if err := b.AddEdge(NodeAudit, NodeSolve); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(NodeSolve, CheckSolutionConfidence, map[string]string{
		OutcomeRefine:  NodeResearch,
		OutcomeApprove: NodeApproval,
		OutcomeDone:    graph.End,
	}); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(NodeApproval, AfterApproval, map[string]string{
		OutcomeAccept: graph.End,
		OutcomeRevise: NodeSolve,
	}); err != nil {
		return nil, err
	}

	if err := b.SetStart(NodeDiagnose); err != nil {
		return nil, err
	}
	return b.Compile()
}

// Responder is the high-level interface to the incident workflow: it owns
// the compiled plan, the executor, and the checkpoint store, and exposes
// investigate/approve/revise operations keyed by run ID.
type Responder struct {
	plan     *graph.Plan[IncidentState]
	exec     *graph.Executor[IncidentState]
	store    store.Store[IncidentState]
	registry *graph.Registry[IncidentState]
}

// ResponderOption configures a Responder.
type ResponderOption func(*responderConfig)

type responderConfig struct {
	store    store.Store[IncidentState]
	emitter  emit.Emitter
	execOpts []graph.Option
}

// WithStore selects the checkpoint store. Defaults to in-memory; use a
// SQLite or MySQL store when approvals must survive a restart.
func WithStore(st store.Store[IncidentState]) ResponderOption {
	return func(cfg *responderConfig) {
		cfg.store = st
	}
}

// WithEmitter selects the observability emitter. Defaults to discarding
// events.
func WithEmitter(emitter emit.Emitter) ResponderOption {
	return func(cfg *responderConfig) {
		cfg.emitter = emitter
	}
}

// WithExecutorOptions passes options through to the underlying executor,
// e.g. graph.WithMaxVisits or graph.WithMetrics.
func WithExecutorOptions(opts ...graph.Option) ResponderOption {
	return func(cfg *responderConfig) {
		cfg.execOpts = append(cfg.execOpts, opts...)
	}
}

// NewResponder assembles the workflow around the given model and tools.
func NewResponder(llm model.ChatModel, search, files tool.Tool, opts ...ResponderOption) (*Responder, error) {
	plan, err := NewPlan(llm, search, files)
	if err != nil {
		return nil, fmt.Errorf("build incident workflow: %w", err)
	}

	cfg := responderConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = store.NewMemStore[IncidentState]()
	}

	exec := graph.NewExecutor(ReduceIncidentState, cfg.store, cfg.emitter, cfg.execOpts...)
	registry := graph.NewRegistry[IncidentState]()
	exec.AttachRegistry(registry)

	return &Responder{
		plan:     plan,
		exec:     exec,
		store:    cfg.store,
		registry: registry,
	}, nil
}

// Investigate runs a fresh investigation of an error log. The result is
// completed (solution in State), suspended (approval pending, see
// PendingApprovals), or failed.
func (r *Responder) Investigate(ctx context.Context, runID, errorLog string, maxIterations int) graph.RunResult[IncidentState] {
	return r.exec.Run(ctx, r.plan, runID, NewInitialState(errorLog, maxIterations))
}

// Approve resumes a suspended run with an acceptance verdict.
func (r *Responder) Approve(ctx context.Context, runID string) (graph.RunResult[IncidentState], error) {
	return r.resume(ctx, runID, IncidentState{ApprovalDecision: DecisionAccept})
}

// Revise resumes a suspended run with a rejection verdict; the solver will
// produce a new proposal incorporating the notes.
func (r *Responder) Revise(ctx context.Context, runID, notes string) (graph.RunResult[IncidentState], error) {
	return r.resume(ctx, runID, IncidentState{
		ApprovalDecision: DecisionRevise,
		ReviewerNotes:    notes,
	})
}

func (r *Responder) resume(ctx context.Context, runID string, decision IncidentState) (graph.RunResult[IncidentState], error) {
	cp, err := r.store.Load(ctx, runID)
	if err != nil {
		return graph.RunResult[IncidentState]{}, fmt.Errorf("load checkpoint for %s: %w", runID, err)
	}
	return r.exec.Resume(ctx, r.plan, cp, decision), nil
}

// PendingApprovals lists the run IDs currently suspended awaiting a
// decision, from the durable store.
func (r *Responder) PendingApprovals(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// Pending returns the checkpoint for a suspended run so a caller can render
// the action awaiting sign-off.
func (r *Responder) Pending(ctx context.Context, runID string) (store.Checkpoint[IncidentState], error) {
	return r.store.Load(ctx, runID)
}
