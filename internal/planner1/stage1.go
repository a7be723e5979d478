// Package planner1 is Stage 1 of the planning pipeline: decompose a query
// into subtasks, normalize their ids and dependencies, map each to an
// agent by keyword score, and run the dependency analyzer over the
// mappable subset.
//
// Grounded on planner_stage1.py (decompose -> normalize -> map -> analyze)
// and task_mapper.py (suggested-agent-first, then keyword-score fallback);
// the LLM-call shape and JSON-array extraction follow the teacher's
// llm_planner.go (normalizeJSONText/extractJSONArray, fallback-on-error).
package planner1

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aj002fr/depgraph/internal/depgraph"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/providers/llm"
)

// Stage1 decomposes a query into a dependency-analyzed Plan.
type Stage1 struct {
	Client    llm.Client
	Agents    []models.AgentDescriptor
	Analyzer  *depgraph.Analyzer
}

// New builds a Stage1 planner over a fixed agent registry. It leaves the
// Analyzer field nil, in which case a fresh depgraph.Analyzer is used per
// Plan call.
func New(client llm.Client, agents []models.AgentDescriptor) *Stage1 {
	return &Stage1{Client: client, Agents: agents}
}

type rawSubtask struct {
	ID           any    `json:"id"`
	Description  string `json:"description"`
	Dependencies any    `json:"dependencies"`
	Agent        string `json:"agent"`
	Priority     int    `json:"priority"`
}

// Plan decomposes query into at most maxSubtasks subtasks (0 means the LLM
// decides), maps each to an agent, and runs dependency analysis over the
// mappable subset. Unmappable subtasks are kept in the plan (NeedsReview
// is not yet relevant here — they simply have an empty AgentID) but never
// enter the dependency graph.
func (s *Stage1) Plan(ctx context.Context, query string, maxSubtasks int) (*models.Plan, error) {
	raw, err := s.decompose(ctx, query, maxSubtasks)
	if err != nil {
		return s.fallbackPlan(query), nil
	}

	normalized := normalize(raw)
	subtasks := make(map[string]*models.Subtask, len(normalized))
	order := make([]string, 0, len(normalized))
	for _, t := range normalized {
		agentID, params := s.mapTask(t)
		t.AgentID = agentID
		t.Params = params
		t.Mappable = agentID != ""
		subtasks[t.TaskID] = t
		order = append(order, t.TaskID)
	}

	mappableOrder := make([]string, 0, len(order))
	mappable := make(map[string]*models.Subtask, len(order))
	for _, id := range order {
		if subtasks[id].Mappable {
			mappableOrder = append(mappableOrder, id)
			mappable[id] = subtasks[id]
		}
	}

	plan := &models.Plan{
		Query:        models.Query(query),
		Subtasks:     subtasks,
		SubtaskOrder: order,
	}

	if len(mappableOrder) == 0 {
		return plan, nil
	}

	analyzer := s.Analyzer
	if analyzer == nil {
		analyzer = depgraph.New()
	}
	result, err := analyzer.Analyze(mappableOrder, mappable)
	if err != nil {
		return nil, err
	}
	plan.ParallelGroups = result.ParallelGroups
	plan.DependencyPaths = result.DependencyPaths
	plan.MaxDepth = result.MaxDepth
	return plan, nil
}

func (s *Stage1) decompose(ctx context.Context, query string, maxSubtasks int) ([]rawSubtask, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}
	prompt := buildDecomposePrompt(query, s.Agents, maxSubtasks)
	text, err := s.Client.GeneratePlan(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	clean := normalizeJSONText(text)
	var subtasks []rawSubtask
	if err := json.Unmarshal([]byte(clean), &subtasks); err == nil && len(subtasks) > 0 {
		return subtasks, nil
	}
	if arr := extractJSONArray(clean); arr != "" {
		if err := json.Unmarshal([]byte(arr), &subtasks); err == nil && len(subtasks) > 0 {
			return subtasks, nil
		}
	}
	var wrapper struct {
		Subtasks []rawSubtask `json:"subtasks"`
	}
	if err := json.Unmarshal([]byte(clean), &wrapper); err == nil && len(wrapper.Subtasks) > 0 {
		return wrapper.Subtasks, nil
	}
	return nil, fmt.Errorf("decompose: no parseable subtasks in model output")
}

func buildDecomposePrompt(query string, agentsAvail []models.AgentDescriptor, maxSubtasks int) string {
	var names []string
	for _, a := range agentsAvail {
		names = append(names, a.AgentID)
	}
	limit := "the AI decides how many are needed"
	if maxSubtasks > 0 {
		limit = fmt.Sprintf("at most %d", maxSubtasks)
	}
	return fmt.Sprintf(`Decompose the following query into subtasks for a DAG-based execution engine.
Output ONLY a JSON array of subtask objects, no prose, no code fences.

Available agents: %v
Number of subtasks: %s.

Schema for each subtask: {"id": "task_N", "description": "...", "dependencies": ["task_M", ...], "agent": "<suggested agent id, may be empty>", "priority": 1}

Query: %s`, names, limit, query)
}

func normalize(raw []rawSubtask) []*models.Subtask {
	out := make([]*models.Subtask, 0, len(raw))
	for i, t := range raw {
		id := normalizeID(t.ID, i+1)
		deps := normalizeDeps(t.Dependencies)
		out = append(out, &models.Subtask{
			TaskID:       id,
			Description:  t.Description,
			Dependencies: deps,
			AgentID:      strings.ToLower(strings.ReplaceAll(t.Agent, "-", "_")),
		})
	}
	return out
}

func normalizeID(raw any, ordinal int) string {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("task_%d", int(v))
	case int:
		return fmt.Sprintf("task_%d", v)
	}
	return fmt.Sprintf("task_%d", ordinal)
}

func normalizeDeps(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, d := range v {
			out = append(out, depToString(d))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func depToString(d any) string {
	switch v := d.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("task_%d", int(v))
	default:
		return strconv.Itoa(0)
	}
}

// mapTask assigns an agent: the suggested agent if it names a known
// agent, otherwise the agent with the highest keyword-hit count against
// the task description. A tie goes to the earliest-registered of the top
// scorers; a zero score leaves the task unmapped.
func (s *Stage1) mapTask(t *models.Subtask) (string, map[string]any) {
	desc := strings.ToLower(t.Description)

	if t.AgentID != "" {
		for _, a := range s.Agents {
			if a.AgentID == t.AgentID {
				return a.AgentID, extractParams(desc, a.AgentID)
			}
		}
	}

	var best string
	bestScore := 0
	for _, a := range s.Agents {
		score := 0
		for _, kw := range a.KeywordHints {
			if strings.Contains(desc, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = a.AgentID
		}
	}
	if bestScore == 0 {
		return "", nil
	}
	return best, extractParams(desc, best)
}

// fallbackPlan builds the deterministic single-task plan used when the
// Planner collaborator is unavailable: one task whose description is the
// full query, mapped by keyword to the best-matching agent, run through
// the same dependency analysis as a normal decomposition.
func (s *Stage1) fallbackPlan(query string) *models.Plan {
	t := &models.Subtask{TaskID: "t1", Description: query}
	agentID, params := s.mapTask(t)
	t.AgentID = agentID
	t.Params = params
	t.Mappable = agentID != ""

	subtasks := map[string]*models.Subtask{t.TaskID: t}
	order := []string{t.TaskID}

	plan := &models.Plan{
		Query:        models.Query(query),
		Subtasks:     subtasks,
		SubtaskOrder: order,
	}

	if !t.Mappable {
		return plan
	}

	analyzer := s.Analyzer
	if analyzer == nil {
		analyzer = depgraph.New()
	}
	mappable := map[string]*models.Subtask{t.TaskID: t}
	result, err := analyzer.Analyze(order, mappable)
	if err != nil {
		return plan
	}
	plan.ParallelGroups = result.ParallelGroups
	plan.DependencyPaths = result.DependencyPaths
	plan.MaxDepth = result.MaxDepth
	return plan
}

func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func normalizeJSONText(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:]
		}
		if j := strings.LastIndex(t, "```"); j != -1 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	if !strings.HasPrefix(t, "[") {
		if arr := extractJSONArray(t); arr != "" {
			return arr
		}
	}
	return t
}
