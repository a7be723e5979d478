// Package planner2 is Stage 2 of the planning pipeline: for one
// dependency path at a time, load only the tools its tasks' agents
// expose, extract per-tool parameters from each task's Stage 1 params,
// validate them against the tool's declared input schema, and emit a
// PathPlan.
//
// Grounded on planner_stage2.py's per-path tool loading and
// _extract_params_for_tool dispatch; schema validation is new (the
// original trusts agent_params as-is) and is grounded on the
// santhosh-tekuri/jsonschema/v6 library used elsewhere in the retrieved
// pack for tool input validation.
package planner2

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/toolloader"
)

// Stage2 discovers tools and extracts parameters for one dependency path.
type Stage2 struct {
	Loader *toolloader.Loader
}

// New builds a Stage2 planner over a shared tool loader.
func New(loader *toolloader.Loader) *Stage2 {
	return &Stage2{Loader: loader}
}

// Plan builds a PathPlan for path, a sequence of task ids from one
// dependency path of a Stage 1 Plan. Subtasks not present or unmappable
// are skipped; NeedsReview is set on any subtask whose extracted params
// fail schema validation, rather than dropping it from the plan.
func (s *Stage2) Plan(path []string, subtasks map[string]*models.Subtask) *models.PathPlan {
	enriched := make(map[string]*models.Subtask, len(path))

	var agentIDs []string
	seen := map[string]bool{}
	for _, taskID := range path {
		t, ok := subtasks[taskID]
		if !ok || !t.Mappable {
			continue
		}
		if !seen[t.AgentID] {
			seen[t.AgentID] = true
			agentIDs = append(agentIDs, t.AgentID)
		}
	}

	descriptors := s.Loader.ForAgents(agentIDs)
	byID := make(map[string]models.ToolDescriptor, len(descriptors))
	for _, d := range descriptors {
		byID[d.ToolID] = d
	}

	for _, taskID := range path {
		t, ok := subtasks[taskID]
		if !ok || !t.Mappable {
			continue
		}
		clone := *t
		toolIDs := s.Loader.ToolsForAgent(t.AgentID)
		chosenTool := pickTool(toolIDs, byID)
		if chosenTool == "" {
			clone.NeedsReview = true
			enriched[taskID] = &clone
			continue
		}
		clone.ToolID = chosenTool
		clone.Params = extractToolParams(t.AgentID, chosenTool, t.Description, t.Params)

		if desc, ok := byID[chosenTool]; ok {
			if err := validateAgainstSchema(desc, clone.Params); err != nil {
				clone.NeedsReview = true
			}
		}
		enriched[taskID] = &clone
	}

	return &models.PathPlan{Path: path, EnrichedSubtasks: enriched}
}

// pickTool returns the first authorized tool id for this agent, per the
// original's one-tool-per-task simplification (an agent's AGENT_TOOL_MAP
// entry is almost always a singleton; polymarket_agent's unified search
// tool is the canonical example).
func pickTool(toolIDs []string, available map[string]models.ToolDescriptor) string {
	for _, id := range toolIDs {
		if _, ok := available[id]; ok {
			return id
		}
	}
	return ""
}

// extractToolParams maps an agent's task description (and Stage 1 param
// seed, for agents without a dedicated extractor) onto the concrete input
// shape a tool expects. Agents without a bespoke mapping pass their Stage
// 1 params through unchanged.
func extractToolParams(agentID, toolID, description string, agentParams map[string]any) map[string]any {
	switch {
	case agentID == "market_data_agent" && toolID == "run_query":
		return extractMarketDataParams(description)
	case agentID == "polymarket_agent" && toolID == "search_polymarket_with_history":
		return map[string]any{
			"query":      get(agentParams, "query", ""),
			"session_id": agentParams["session_id"],
			"limit":      get(agentParams, "limit", 10),
		}
	default:
		return agentParams
	}
}

func get(m map[string]any, key string, def any) any {
	if m == nil {
		return def
	}
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}

// validateAgainstSchema compiles desc's InputSchema into a JSON Schema and
// validates params against it, returning a *engineerr.SchemaViolation for
// the first mismatch found.
func validateAgainstSchema(desc models.ToolDescriptor, params map[string]any) error {
	if len(desc.InputSchema) == 0 {
		return nil
	}
	schemaDoc := buildJSONSchema(desc.InputSchema)
	schemaBytes, err := json.Marshal(schemaDoc)
	if err != nil {
		return err
	}
	unmarshalled, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return err
	}
	url := "mem://" + desc.ToolID + "/schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, unmarshalled); err != nil {
		return err
	}
	sch, err := c.Compile(url)
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(mustMarshal(params)))
	if err != nil {
		return err
	}
	if err := sch.Validate(instance); err != nil {
		return &engineerr.SchemaViolation{ToolID: desc.ToolID, Field: "", Reason: err.Error()}
	}
	return nil
}

func buildJSONSchema(fields []models.InputField) map[string]any {
	properties := map[string]any{}
	var required []string
	for _, f := range fields {
		properties[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func fieldSchema(f models.InputField) map[string]any {
	switch f.Type {
	case models.FieldString:
		return map[string]any{"type": "string"}
	case models.FieldInteger:
		return map[string]any{"type": "integer"}
	case models.FieldNumber:
		return map[string]any{"type": "number"}
	case models.FieldBoolean:
		return map[string]any{"type": "boolean"}
	case models.FieldList:
		return map[string]any{"type": "array"}
	case models.FieldMap:
		return map[string]any{"type": "object"}
	default:
		return map[string]any{}
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal params: %v", err))
	}
	return b
}
