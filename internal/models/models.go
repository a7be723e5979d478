// Package models holds the data types shared by every stage of the engine:
// the agent/tool registries, the subtask and plan shapes the planner
// produces, the persisted run/output records, artifacts, and the final
// consolidated result.
package models

import "time"

// Query is the immutable natural-language request that drives one run.
type Query string

// SideEffect classifies what a tool does to the outside world.
type SideEffect string

const (
	SideEffectPure  SideEffect = "pure"
	SideEffectReads SideEffect = "reads_external"
	SideEffectWrite SideEffect = "writes_external"
)

// FieldType enumerates the scalar/composite types a tool's input schema may use.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldList    FieldType = "list"
	FieldMap     FieldType = "map"
)

// InputField describes one named field of a tool's input schema.
type InputField struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	ElemType FieldType `json:"elem_type,omitempty"` // only meaningful for FieldList
	Required bool      `json:"required"`
}

// AgentDescriptor is a registered worker capability. The registry holding
// these is populated once at process start and never mutated afterward.
type AgentDescriptor struct {
	AgentID          string   `json:"agent_id"`
	KeywordHints     []string `json:"keyword_hints"`
	RequiredInputs   []string `json:"required_input_fields"`
	SupportedTools   []string `json:"supported_tools"`
	HumanDescription string   `json:"human_description"`
}

// ToolDescriptor is a callable belonging to exactly one agent.
type ToolDescriptor struct {
	ToolID      string       `json:"tool_id"`
	OwningAgent string       `json:"owning_agent_id"`
	InputSchema []InputField `json:"input_schema"`
	SideEffect  SideEffect   `json:"side_effect"`
}

// Subtask is one node of the dependency DAG, progressively enriched by
// Stage 1 (structure, agent binding) and Stage 2 (tool, params).
type Subtask struct {
	TaskID       string         `json:"task_id"`
	Description  string         `json:"description"`
	AgentID      string         `json:"agent_id,omitempty"`
	Dependencies []string       `json:"dependencies"`
	ToolID       string         `json:"tool_id,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	Mappable     bool           `json:"mappable"`
	NeedsReview  bool           `json:"needs_review,omitempty"`
}

// Plan is Stage 1's output: a validated, agent-mapped DAG plus the
// structural information the Dependency Analyzer derived from it.
type Plan struct {
	RunID           string              `json:"run_id"`
	Query           Query               `json:"query"`
	Subtasks        map[string]*Subtask `json:"subtasks"`
	SubtaskOrder    []string            `json:"subtask_order"`
	ParallelGroups  [][]string          `json:"parallel_groups"`
	DependencyPaths [][]string          `json:"dependency_paths"`
	MaxDepth        int                 `json:"max_depth"`
}

// PathPlan is Stage 2's output, one per dependency path, produced under
// context isolation from every other path.
type PathPlan struct {
	Path             []string            `json:"path"`
	EnrichedSubtasks map[string]*Subtask `json:"enriched_subtasks"`
}

// RunStatus is the lifecycle state of a worker_runs row.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// WorkerRun mirrors one row of the worker_runs table.
type WorkerRun struct {
	RunID        string     `json:"run_id"`
	TaskID       string     `json:"task_id"`
	AgentID      string     `json:"agent_id"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMS   int64      `json:"duration_ms"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ArtifactRef  string     `json:"artifact_ref,omitempty"`
}

// TaskOutput mirrors one row of the task_outputs table.
type TaskOutput struct {
	RunID        string    `json:"run_id"`
	TaskID       string    `json:"task_id"`
	AgentID      string    `json:"agent_id"`
	OutputJSON   string    `json:"output_json"`
	MetadataJSON string    `json:"metadata_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// ArtifactMetadata is the canonical per-artifact metadata envelope.
type ArtifactMetadata struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	RowCount  int    `json:"row_count"`
	Agent     string `json:"agent"`
	Version   string `json:"version"`
	RunID     string `json:"run_id"`
}

// ArtifactPayload is the canonical shape every published artifact carries.
type ArtifactPayload struct {
	Data     []any            `json:"data"`
	Metadata ArtifactMetadata `json:"metadata"`
}

// Artifact is one immutable, sequence-numbered published document.
type Artifact struct {
	AgentID        string `json:"agent_id"`
	SequenceNumber int    `json:"sequence_number"`
	Path           string `json:"path"`
}

// RunSummary is the Task Store's aggregate view of one run.
type RunSummary struct {
	Total      int              `json:"total"`
	Success    int              `json:"success"`
	Failed     int              `json:"failed"`
	Running    int              `json:"running"`
	AgentsUsed []string         `json:"agents_used"`
	Durations  map[string]int64 `json:"durations"` // task_id -> duration_ms
}

// Validation is the verdict a validator collaborator returns.
type Validation struct {
	Valid             bool     `json:"valid"`
	CompletenessScore float64  `json:"completeness_score"`
	Issues            []string `json:"issues,omitempty"`
	Suggestions       []string `json:"suggestions,omitempty"`
}

// ConsolidatedResult is the Runner's output.
type ConsolidatedResult struct {
	Query        string           `json:"query"`
	AnswerText   string           `json:"answer_text"`
	DataByAgent  map[string][]any `json:"data_by_agent"`
	SummaryStats map[string]any   `json:"summary_stats"`
	Validation   *Validation      `json:"validation,omitempty"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

// RunOptions configures one call to the engine's Run entry point.
type RunOptions struct {
	MaxSubtasks       int
	SkipValidation    bool
	MaxParallel       int
	TaskTimeoutMS     int64
	CancellationToken <-chan struct{}
}

// RunResultMetadata is the metadata block of RunResult.
type RunResultMetadata struct {
	StartedAt       time.Time `json:"started_at"`
	DurationMS      int64     `json:"duration_ms"`
	TotalTasks      int       `json:"total_tasks"`
	SuccessfulTasks int       `json:"successful_tasks"`
	FailedTasks     int       `json:"failed_tasks"`
	AgentsUsed      []string  `json:"agents_used"`
	UnmappableTasks []string  `json:"unmappable_tasks"`
	ScriptRefs      []string  `json:"script_refs"`
}

// RunResult is the top-level value returned by the engine's run entry point.
type RunResult struct {
	RunID        string            `json:"run_id"`
	Query        string            `json:"query"`
	AnswerText   string            `json:"answer_text"`
	DataByAgent  map[string][]any  `json:"data_by_agent"`
	SummaryStats map[string]any    `json:"summary_stats"`
	Validation   *Validation       `json:"validation,omitempty"`
	Metadata     RunResultMetadata `json:"metadata"`
}

// ExecutionStep is one entry of a Coder-produced ExecutionPlan: it pairs an
// agent invocation with the bracketing Task-Store/Artifact-Bus calls the
// executor must issue, in the order the Coder decided. It carries no
// source-language code, only data.
type ExecutionStep struct {
	TaskID      string         `json:"task_id"`
	AgentID     string         `json:"agent_id"`
	ToolID      string         `json:"tool_id"`
	Params      map[string]any `json:"params"`
	WaitFor     []string       `json:"wait_for"` // predecessors earlier in this same path; others are omitted
	NeedsReview bool           `json:"needs_review"`
}

// ExecutionPlan is one per dependency path: the Coder's pure-data output.
type ExecutionPlan struct {
	Path  []string        `json:"path"`
	Steps []ExecutionStep `json:"steps"`
}
