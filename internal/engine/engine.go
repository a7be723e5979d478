// Package engine wires every stage of the pipeline — Stage 1 decomposition,
// per-path Stage 2 enrichment, the Coder's execution-plan build, the
// dependency-aware executor, and the Runner's consolidation — behind one
// entry point, the shape base spec §6 calls for.
//
// Grounded on original_source's polymarket_agent/run.py session-id
// generation (reused here for run ids) and orchestrator_agent's overall
// decompose -> map -> execute -> consolidate pipeline; the wiring style
// (one struct holding every collaborator, built once at startup) follows
// teacher's internal/api/server.go init().
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aj002fr/depgraph/internal/artifacts"
	"github.com/aj002fr/depgraph/internal/coder"
	"github.com/aj002fr/depgraph/internal/executor"
	"github.com/aj002fr/depgraph/internal/metrics"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/orchestrator"
	"github.com/aj002fr/depgraph/internal/planner1"
	"github.com/aj002fr/depgraph/internal/planner2"
	"github.com/aj002fr/depgraph/internal/runner"
	"github.com/aj002fr/depgraph/internal/sessionctx"
	"github.com/aj002fr/depgraph/internal/taskstore"
	"github.com/aj002fr/depgraph/internal/toolloader"
	"github.com/aj002fr/depgraph/internal/tools"
)

// Engine holds every collaborator needed to run one query end to end.
type Engine struct {
	Store    *taskstore.Store
	Bus      *artifacts.Bus
	Tools    *tools.Registry
	Loader   *toolloader.Loader
	Stage1   *planner1.Stage1
	Stage2   *planner2.Stage2
	Runner   *runner.Runner
	Hub      *orchestrator.Hub // optional: progress events for the websocket surface
	ExecOpts executor.Options
}

// New builds an Engine over its collaborators. hub may be nil when no
// progress stream is needed (e.g. the CLI entrypoint).
func New(store *taskstore.Store, bus *artifacts.Bus, registry *tools.Registry, loader *toolloader.Loader,
	stage1 *planner1.Stage1, stage2 *planner2.Stage2, r *runner.Runner, hub *orchestrator.Hub, execOpts executor.Options) *Engine {
	return &Engine{
		Store: store, Bus: bus, Tools: registry, Loader: loader,
		Stage1: stage1, Stage2: stage2, Runner: r, Hub: hub, ExecOpts: execOpts,
	}
}

// Run decomposes query, enriches and executes every dependency path, then
// consolidates task outputs into a RunResult.
func (e *Engine) Run(ctx context.Context, query string, opts models.RunOptions) (*models.RunResult, error) {
	runID := newRunID()
	startedAt := time.Now()
	ctx = sessionctx.With(ctx, sessionctx.New(startedAt))
	e.notify(runID, "run_started", map[string]any{"query": query})

	metrics.Default().IncActiveRuns()
	defer metrics.Default().DecActiveRuns()

	plan, err := e.Stage1.Plan(ctx, query, opts.MaxSubtasks)
	if err != nil {
		return nil, err
	}
	var unmappable []string
	for _, id := range plan.SubtaskOrder {
		if !plan.Subtasks[id].Mappable {
			unmappable = append(unmappable, id)
		}
	}

	execPlans := make([]*models.ExecutionPlan, 0, len(plan.DependencyPaths))
	enriched := make(map[string]*models.Subtask, len(plan.Subtasks))
	for id, t := range plan.Subtasks {
		enriched[id] = t
	}
	for _, path := range plan.DependencyPaths {
		pathPlan := e.Stage2.Plan(path, plan.Subtasks)
		for id, t := range pathPlan.EnrichedSubtasks {
			enriched[id] = t
		}
		execPlans = append(execPlans, coder.Build(pathPlan.Path, pathPlan.EnrichedSubtasks))
		e.notify(runID, "path_planned", map[string]any{"path": path})
	}
	storedPlan := *plan
	storedPlan.Subtasks = enriched
	if err := e.Store.StorePlan(ctx, runID, &storedPlan); err != nil {
		return nil, err
	}

	exec := executor.New(e.Store, e.Bus, e.Tools, e.Loader, withOverrides(e.ExecOpts, opts))
	if err := exec.Run(ctx, runID, execPlans); err != nil {
		return nil, err
	}
	e.notify(runID, "execution_complete", nil)

	consolidated, err := e.Runner.Consolidate(ctx, runID, query, opts.SkipValidation)
	if err != nil {
		return nil, err
	}

	summary, err := e.Store.GetRunSummary(ctx, runID)
	if err != nil {
		return nil, err
	}

	result := &models.RunResult{
		RunID:        runID,
		Query:        query,
		AnswerText:   consolidated.AnswerText,
		DataByAgent:  consolidated.DataByAgent,
		SummaryStats: consolidated.SummaryStats,
		Validation:   consolidated.Validation,
		Metadata: models.RunResultMetadata{
			StartedAt:       startedAt,
			DurationMS:      time.Since(startedAt).Milliseconds(),
			TotalTasks:      summary.Total,
			SuccessfulTasks: summary.Success,
			FailedTasks:     summary.Failed,
			AgentsUsed:      summary.AgentsUsed,
			UnmappableTasks: unmappable,
		},
	}
	e.notify(runID, "run_complete", map[string]any{"total_tasks": summary.Total, "successful_tasks": summary.Success})
	return result, nil
}

func withOverrides(base executor.Options, opts models.RunOptions) executor.Options {
	if opts.MaxParallel > 0 {
		base.MaxParallel = opts.MaxParallel
	}
	if opts.TaskTimeoutMS > 0 {
		base.TaskTimeout = time.Duration(opts.TaskTimeoutMS) * time.Millisecond
	}
	return base
}

// SessionIDFromContext returns the session id this run's Engine.Run
// threaded into ctx at Stage 1 entry, in the YYYYMMDDhhmmss_<6-hex-chars>
// format any agent requiring session correlation (not just
// prediction-market search) can read.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return sessionctx.FromContext(ctx)
}

func (e *Engine) notify(runID, event string, payload any) {
	if e.Hub == nil {
		return
	}
	e.Hub.Publish(runID, orchestrator.Event{Event: event, TaskID: runID, Payload: payload})
}

// newRunID mirrors polymarket_agent/run.py's session id shape: a
// timestamp prefix plus a short random suffix for readability in logs.
func newRunID() string {
	ts := time.Now().UTC().Format("20060102_150405")
	return ts + "_" + uuid.NewString()[:8]
}
