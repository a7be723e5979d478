// Package executor drives execution plans to completion with
// dependency-aware parallelism: a bounded pool of workers pulls ready
// tasks, invokes their tool, and persists the result, propagating
// failure to every task whose transitive dependencies include the
// failed one.
//
// Grounded on worker_executor.py's dependency-wait-then-run loop
// (are_dependencies_complete polling, get_dependency_outputs) redesigned
// per the richer ready_queue/in_flight/completed dispatcher this engine
// calls for; the bounded-concurrency shape follows the teacher's
// tools/summarize_chunked.go semaphore-channel pattern, and per-task
// tracing follows go.opentelemetry.io/otel/trace spans as used for
// request handling elsewhere in the retrieved pack.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aj002fr/depgraph/internal/artifacts"
	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/metrics"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/taskstore"
	"github.com/aj002fr/depgraph/internal/toolloader"
	"github.com/aj002fr/depgraph/internal/tools"
)

var tracer = otel.Tracer("github.com/aj002fr/depgraph/internal/executor")

// Options tunes the dispatcher's scheduling behavior.
type Options struct {
	MaxParallel             int
	DependencyPollInterval  time.Duration
	DependencyWaitTimeout   time.Duration
	TaskTimeout             time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxParallel <= 0 {
		o.MaxParallel = 2
	}
	if o.DependencyPollInterval <= 0 {
		o.DependencyPollInterval = 200 * time.Millisecond
	}
	if o.DependencyWaitTimeout <= 0 {
		o.DependencyWaitTimeout = 5 * time.Minute
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 2 * time.Minute
	}
	return o
}

// Executor runs one or more ExecutionPlans (from different dependency
// paths) against a shared run id.
type Executor struct {
	Store   *taskstore.Store
	Bus     *artifacts.Bus
	Tools   *tools.Registry
	Loader  *toolloader.Loader
	Opts    Options
	Metrics *metrics.Metrics
}

// New builds an Executor over its collaborators. Metrics defaults to the
// package-level Prometheus registry when nil.
func New(store *taskstore.Store, bus *artifacts.Bus, registry *tools.Registry, loader *toolloader.Loader, opts Options) *Executor {
	return &Executor{Store: store, Bus: bus, Tools: registry, Loader: loader, Opts: opts.withDefaults(), Metrics: metrics.Default()}
}

// step is one task across all submitted plans, flattened for scheduling.
type step struct {
	models.ExecutionStep
	state string // "pending" | "skipped" | "done"
}

// Run drives every step across plans to completion. A dependency that is
// outside plans entirely counts as satisfied only once the Task Store
// records it as successfully completed for runID (the cross-path case:
// the dependency ran under a different plan before Run was called).
func (e *Executor) Run(ctx context.Context, runID string, plans []*models.ExecutionPlan) error {
	steps := flatten(plans)
	if len(steps) == 0 {
		return nil
	}

	var mu sync.Mutex
	pending := make(map[string]*step, len(steps))
	for _, s := range steps {
		pending[s.TaskID] = s
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.Opts.MaxParallel)
	launched := map[string]bool{}

	launch := func(s *step) {
		defer wg.Done()
		defer func() { <-sem }()
		e.runStep(ctx, runID, s, pending, &mu)
	}

	for {
		mu.Lock()
		var ready []*step
		done := true
		for id, s := range pending {
			if s.state != "pending" {
				continue
			}
			done = false
			if launched[id] {
				continue
			}
			if e.depsSatisfied(ctx, runID, s.WaitFor, pending) {
				ready = append(ready, s)
			}
		}
		for _, s := range ready {
			launched[s.TaskID] = true
		}
		mu.Unlock()

		if done {
			break
		}
		for _, s := range ready {
			sem <- struct{}{}
			wg.Add(1)
			go launch(s)
		}
		if len(ready) == 0 {
			select {
			case <-ctx.Done():
				e.cancelRemaining(runID, pending, &mu)
				wg.Wait()
				return &engineerr.Cancelled{TaskID: runID}
			case <-time.After(e.Opts.DependencyPollInterval):
			}
		}
	}
	wg.Wait()
	return nil
}

// depsSatisfied is true when every dependency in waitFor that is in this
// executor's own step set has state "done" in pending, and every one that
// is not is recorded as complete in the Task Store for runID.
func (e *Executor) depsSatisfied(ctx context.Context, runID string, waitFor []string, pending map[string]*step) bool {
	var outside []string
	for _, dep := range waitFor {
		s, ok := pending[dep]
		if !ok {
			outside = append(outside, dep)
			continue
		}
		if s.state != "done" {
			return false
		}
	}
	if len(outside) == 0 {
		return true
	}
	ok, err := e.Store.AreDependenciesComplete(ctx, runID, outside)
	return err == nil && ok
}

func (e *Executor) runStep(ctx context.Context, runID string, s *step, pending map[string]*step, mu *sync.Mutex) {
	ctx, span := tracer.Start(ctx, "executor.run_task",
		trace.WithAttributes(attribute.String("task_id", s.TaskID), attribute.String("agent_id", s.AgentID)))
	defer span.End()

	// an upstream failure marks this task skipped rather than run.
	mu.Lock()
	for _, dep := range s.WaitFor {
		if d, ok := pending[dep]; ok && d.state == "skipped" {
			s.state = "skipped"
			mu.Unlock()
			_ = e.Store.StartTask(ctx, runID, s.TaskID, s.AgentID, time.Now())
			_ = e.Store.FailTask(ctx, runID, s.TaskID, 0, fmt.Sprintf("upstream failure: %s", dep))
			e.propagateSkip(runID, s.TaskID, pending, mu)
			return
		}
	}
	mu.Unlock()

	start := time.Now()
	if err := e.Store.StartTask(ctx, runID, s.TaskID, s.AgentID, start); err != nil {
		mu.Lock()
		s.state = "skipped"
		mu.Unlock()
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, e.Opts.TaskTimeout)
	defer cancel()

	result, err := e.invoke(taskCtx, s)
	durationMS := time.Since(start).Milliseconds()

	if taskCtx.Err() != nil && err == nil {
		err = &engineerr.Timeout{TaskID: s.TaskID, Kind: "task"}
	}

	if err != nil {
		_ = e.Store.FailTask(ctx, runID, s.TaskID, durationMS, err.Error())
		e.Metrics.ObserveTaskDuration(s.AgentID, "failed", time.Duration(durationMS)*time.Millisecond)
		e.Metrics.IncTaskFailure(s.AgentID, "tool_error")
		e.Metrics.IncTaskCompleted(s.AgentID, "failed")
		mu.Lock()
		s.state = "skipped"
		mu.Unlock()
		e.propagateSkip(runID, s.TaskID, pending, mu)
		return
	}

	artifact, pubErr := e.Bus.Publish(runID, s.AgentID, toDataSlice(result), fmt.Sprintf("%v", s.Params))
	if pubErr != nil {
		_ = e.Store.FailTask(ctx, runID, s.TaskID, durationMS, pubErr.Error())
		e.Metrics.ObserveTaskDuration(s.AgentID, "failed", time.Duration(durationMS)*time.Millisecond)
		e.Metrics.IncTaskFailure(s.AgentID, "publish_error")
		e.Metrics.IncTaskCompleted(s.AgentID, "failed")
		mu.Lock()
		s.state = "skipped"
		mu.Unlock()
		e.propagateSkip(runID, s.TaskID, pending, mu)
		return
	}
	_ = e.Store.CompleteTask(ctx, runID, s.TaskID, durationMS, artifact.Path)

	outputBytes, err := json.Marshal(result)
	if err != nil {
		outputBytes = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", result)))
	}
	metadataBytes, _ := json.Marshal(s.Params)
	_ = e.Store.StoreOutput(ctx, runID, s.TaskID, s.AgentID, string(outputBytes), string(metadataBytes))

	e.Metrics.ObserveTaskDuration(s.AgentID, "success", time.Duration(durationMS)*time.Millisecond)
	e.Metrics.IncTaskCompleted(s.AgentID, "success")

	mu.Lock()
	s.state = "done"
	mu.Unlock()
}

func (e *Executor) invoke(ctx context.Context, s *step) (any, error) {
	if err := e.Loader.Authorize(s.AgentID, s.ToolID); err != nil {
		return nil, err
	}
	tool, ok := e.Tools.Get(s.ToolID)
	if !ok {
		return nil, &engineerr.UnknownTool{ToolID: s.ToolID}
	}
	out, _, err := tool.Execute(ctx, s.Params)
	if err != nil {
		return nil, &engineerr.ToolError{ToolID: s.ToolID, Cause: err}
	}
	return out, nil
}

// propagateSkip marks every pending step whose WaitFor includes taskID as
// skipped too, transitively.
func (e *Executor) propagateSkip(runID string, taskID string, pending map[string]*step, mu *sync.Mutex) {
	mu.Lock()
	var newlySkipped []string
	for _, s := range pending {
		if s.state != "pending" {
			continue
		}
		for _, dep := range s.WaitFor {
			if dep == taskID {
				s.state = "skipped"
				newlySkipped = append(newlySkipped, s.TaskID)
				break
			}
		}
	}
	mu.Unlock()
	for _, id := range newlySkipped {
		// a skipped task never started, so it gets its worker_runs row first
		_ = e.Store.StartTask(context.Background(), runID, id, pending[id].AgentID, time.Now())
		_ = e.Store.FailTask(context.Background(), runID, id, 0, fmt.Sprintf("upstream failure: %s", taskID))
		e.propagateSkip(runID, id, pending, mu)
	}
}

func (e *Executor) cancelRemaining(runID string, pending map[string]*step, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range pending {
		if s.state == "pending" {
			s.state = "skipped"
			_ = e.Store.FailTask(context.Background(), runID, s.TaskID, 0, "cancelled")
		}
	}
}

func flatten(plans []*models.ExecutionPlan) []*step {
	var out []*step
	seen := map[string]*step{}
	for _, p := range plans {
		for _, st := range p.Steps {
			if prev, ok := seen[st.TaskID]; ok {
				// a fan-in task appears in several paths: it waits on the
				// union of its in-path predecessors from every path.
				for _, dep := range st.WaitFor {
					dup := false
					for _, have := range prev.WaitFor {
						dup = dup || have == dep
					}
					if !dup {
						prev.WaitFor = append(prev.WaitFor, dep)
					}
				}
				continue
			}
			s := &step{ExecutionStep: st, state: "pending"}
			s.WaitFor = append([]string(nil), st.WaitFor...)
			seen[st.TaskID] = s
			out = append(out, s)
		}
	}
	return out
}

// toDataSlice unwraps a tool's {data, metadata} agent-invocation contract
// down to the row list the artifact bus publishes; a tool returning a
// bare list or scalar is published as-is.
func toDataSlice(result any) []any {
	if obj, ok := result.(map[string]any); ok {
		if data, ok := obj["data"]; ok {
			result = data
		}
	}
	if list, ok := result.([]any); ok {
		return list
	}
	return []any{result}
}
