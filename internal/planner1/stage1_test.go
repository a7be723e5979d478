package planner1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/models"
)

type stubClient struct {
	plan string
	err  error
}

func (s *stubClient) GeneratePlan(ctx context.Context, prompt string) (string, error) {
	return s.plan, s.err
}
func (s *stubClient) Verify(ctx context.Context, prompt, output string) (bool, string, error) {
	return true, "", nil
}
func (s *stubClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", nil
}
func (s *stubClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	return nil
}

var fixtureAgents = []models.AgentDescriptor{
	{AgentID: "market_data_agent", KeywordHints: []string{"price", "symbol", "market data"}},
	{AgentID: "polymarket_agent", KeywordHints: []string{"prediction", "polymarket", "odds"}},
}

func TestPlan_DecomposesAndMapsAgents(t *testing.T) {
	raw := `[
		{"id": "task_1", "description": "fetch the latest BTC price", "dependencies": []},
		{"id": "task_2", "description": "compare against polymarket prediction odds", "dependencies": ["task_1"]}
	]`
	client := &stubClient{plan: raw}
	s1 := New(client, fixtureAgents)

	plan, err := s1.Plan(context.Background(), "compare BTC price to prediction markets", 0)
	require.NoError(t, err)

	require.Contains(t, plan.Subtasks, "task_1")
	require.Contains(t, plan.Subtasks, "task_2")
	assert.Equal(t, "market_data_agent", plan.Subtasks["task_1"].AgentID)
	assert.Equal(t, "polymarket_agent", plan.Subtasks["task_2"].AgentID)
	assert.True(t, plan.Subtasks["task_1"].Mappable)

	assert.Equal(t, [][]string{{"task_1"}, {"task_2"}}, plan.ParallelGroups)
}

func TestPlan_UnmappableTaskExcludedFromGraph(t *testing.T) {
	raw := `[{"id": "task_1", "description": "write a poem about the weather"}]`
	client := &stubClient{plan: raw}
	s1 := New(client, fixtureAgents)

	plan, err := s1.Plan(context.Background(), "write a poem", 0)
	require.NoError(t, err)
	assert.False(t, plan.Subtasks["task_1"].Mappable)
	assert.Nil(t, plan.ParallelGroups)
}

func TestPlan_CodeFencedResponse(t *testing.T) {
	raw := "```json\n[{\"id\": \"task_1\", \"description\": \"get BTC price\"}]\n```"
	client := &stubClient{plan: raw}
	s1 := New(client, fixtureAgents)

	plan, err := s1.Plan(context.Background(), "get BTC price", 0)
	require.NoError(t, err)
	assert.Equal(t, "market_data_agent", plan.Subtasks["task_1"].AgentID)
}

func TestPlan_SuggestedAgentHonored(t *testing.T) {
	raw := `[{"id": "task_1", "description": "look something up", "agent": "polymarket_agent"}]`
	client := &stubClient{plan: raw}
	s1 := New(client, fixtureAgents)

	plan, err := s1.Plan(context.Background(), "look something up", 0)
	require.NoError(t, err)
	assert.Equal(t, "polymarket_agent", plan.Subtasks["task_1"].AgentID)
}

func TestPlan_LLMFailureFallsBack(t *testing.T) {
	client := &stubClient{err: assertErr{}}
	s1 := New(client, fixtureAgents)

	plan, err := s1.Plan(context.Background(), "fetch the latest BTC price", 0)
	require.NoError(t, err)
	require.Contains(t, plan.Subtasks, "t1")
	task := plan.Subtasks["t1"]
	assert.Equal(t, "fetch the latest BTC price", task.Description)
	assert.Equal(t, "market_data_agent", task.AgentID)
	assert.True(t, task.Mappable)
	assert.Equal(t, [][]string{{"t1"}}, plan.ParallelGroups)
}

func TestPlan_LLMFailureFallsBackUnmappable(t *testing.T) {
	client := &stubClient{err: assertErr{}}
	s1 := New(client, fixtureAgents)

	plan, err := s1.Plan(context.Background(), "write a poem about the weather", 0)
	require.NoError(t, err)
	require.Contains(t, plan.Subtasks, "t1")
	assert.False(t, plan.Subtasks["t1"].Mappable)
	assert.Nil(t, plan.ParallelGroups)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
