package planner2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/toolloader"
)

func newLoader(t *testing.T) *toolloader.Loader {
	t.Helper()
	tools := []models.ToolDescriptor{
		{
			ToolID:      "run_query",
			OwningAgent: "market_data_agent",
			SideEffect:  models.SideEffectReads,
			InputSchema: []models.InputField{
				{Name: "template", Type: models.FieldString, Required: true},
				{Name: "params", Type: models.FieldMap, Required: false},
				{Name: "limit", Type: models.FieldInteger, Required: false},
			},
		},
		{
			ToolID:      "search_polymarket_with_history",
			OwningAgent: "polymarket_agent",
			SideEffect:  models.SideEffectReads,
			InputSchema: []models.InputField{
				{Name: "query", Type: models.FieldString, Required: true},
			},
		},
	}
	allow := map[string][]string{
		"market_data_agent": {"run_query"},
		"polymarket_agent":  {"search_polymarket_with_history"},
	}
	l, err := toolloader.New(tools, allow, 10)
	require.NoError(t, err)
	return l
}

func TestPlan_AssignsToolAndParams(t *testing.T) {
	s2 := New(newLoader(t))
	subtasks := map[string]*models.Subtask{
		"task_1": {
			TaskID: "task_1", AgentID: "market_data_agent", Mappable: true,
			Description: "look up btc price",
		},
	}
	plan := s2.Plan([]string{"task_1"}, subtasks)

	require.Contains(t, plan.EnrichedSubtasks, "task_1")
	t1 := plan.EnrichedSubtasks["task_1"]
	assert.Equal(t, "run_query", t1.ToolID)
	assert.Equal(t, "%BTC%", t1.Params["params"].(map[string]any)["symbol_pattern"])
	assert.False(t, t1.NeedsReview)
}

func TestPlan_EmptyDescriptionStillSatisfiesRequiredTemplate(t *testing.T) {
	s2 := New(newLoader(t))
	subtasks := map[string]*models.Subtask{
		"task_1": {
			TaskID: "task_1", AgentID: "market_data_agent", Mappable: true,
			Description: "", // no symbol, no date, no range — extractMarketDataParams still fills in a template
		},
	}
	plan := s2.Plan([]string{"task_1"}, subtasks)
	t1 := plan.EnrichedSubtasks["task_1"]
	assert.False(t, t1.NeedsReview) // "template" is always present, satisfying the required-string check
}

func TestPlan_UnmappableTaskSkipped(t *testing.T) {
	s2 := New(newLoader(t))
	subtasks := map[string]*models.Subtask{
		"task_1": {TaskID: "task_1", Mappable: false},
	}
	plan := s2.Plan([]string{"task_1"}, subtasks)
	assert.Empty(t, plan.EnrichedSubtasks)
}

func TestPlan_NoAuthorizedToolMarksNeedsReview(t *testing.T) {
	s2 := New(newLoader(t))
	subtasks := map[string]*models.Subtask{
		"task_1": {TaskID: "task_1", AgentID: "unknown_agent", Mappable: true},
	}
	plan := s2.Plan([]string{"task_1"}, subtasks)
	assert.True(t, plan.EnrichedSubtasks["task_1"].NeedsReview)
}
