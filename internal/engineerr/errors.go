// Package engineerr defines the typed error kinds the engine surfaces to
// callers, so code at any layer can do errors.As instead of string matching.
package engineerr

import "fmt"

// InvalidPlan is fatal to a run before execution begins: a cycle or a
// dangling dependency reference was found while validating a Plan.
type InvalidPlan struct {
	Cycle             []string
	DanglingDependency string
}

func (e *InvalidPlan) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("invalid plan: cycle %v", e.Cycle)
	}
	return fmt.Sprintf("invalid plan: dangling dependency %q", e.DanglingDependency)
}

// UnauthorizedTool is returned when a tool is invoked outside its owning
// agent's allow-list.
type UnauthorizedTool struct {
	AgentID string
	ToolID  string
}

func (e *UnauthorizedTool) Error() string {
	return fmt.Sprintf("tool %q is not authorized for agent %q", e.ToolID, e.AgentID)
}

// UnknownTool is returned when a tool id has no registered implementation.
type UnknownTool struct {
	ToolID string
}

func (e *UnknownTool) Error() string {
	return fmt.Sprintf("unknown tool %q", e.ToolID)
}

// SchemaViolation is returned when extracted parameters don't conform to a
// tool's declared input schema. It is not fatal: Stage 2 attaches
// NeedsReview instead of dropping the subtask.
type SchemaViolation struct {
	ToolID string
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation for tool %q field %q: %s", e.ToolID, e.Field, e.Reason)
}

// ToolError wraps a failure from a tool/agent implementation.
type ToolError struct {
	ToolID string
	Cause  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.ToolID, e.Cause)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// Timeout covers both a per-task wall-clock budget and a dependency-wait
// timeout.
type Timeout struct {
	TaskID string
	Kind   string // "task" | "dependency_wait"
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("task %q timed out (%s)", e.TaskID, e.Kind)
}

// Cancelled is returned for tasks that never ran because the caller
// cancelled the run.
type Cancelled struct {
	TaskID string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("task %q cancelled", e.TaskID)
}

// PlannerUnavailable is returned by a Planner collaborator that cannot
// reach its backing LLM provider; callers fall back to a deterministic plan
// or templated answer.
type PlannerUnavailable struct {
	Cause error
}

func (e *PlannerUnavailable) Error() string {
	return fmt.Sprintf("planner unavailable: %v", e.Cause)
}

func (e *PlannerUnavailable) Unwrap() error { return e.Cause }

// ArtifactPublishError is a filesystem-level failure publishing an artifact.
type ArtifactPublishError struct {
	AgentID string
	Cause   error
}

func (e *ArtifactPublishError) Error() string {
	return fmt.Sprintf("artifact publish failed for agent %q: %v", e.AgentID, e.Cause)
}

func (e *ArtifactPublishError) Unwrap() error { return e.Cause }

// TaskStoreError is an unexpected storage failure; it aborts the whole run.
type TaskStoreError struct {
	Op    string
	Cause error
}

func (e *TaskStoreError) Error() string {
	return fmt.Sprintf("task store error during %s: %v", e.Op, e.Cause)
}

func (e *TaskStoreError) Unwrap() error { return e.Cause }

// AlreadyStarted is returned by Task Store's start_task when the
// (run_id, task_id) pair already has a row.
type AlreadyStarted struct {
	RunID  string
	TaskID string
}

func (e *AlreadyStarted) Error() string {
	return fmt.Sprintf("task %q already started in run %q", e.TaskID, e.RunID)
}
