package coder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aj002fr/depgraph/internal/models"
)

func TestBuild_LinearPath(t *testing.T) {
	enriched := map[string]*models.Subtask{
		"A": {TaskID: "A", AgentID: "agent_a", ToolID: "tool_a"},
		"B": {TaskID: "B", AgentID: "agent_b", ToolID: "tool_b", Dependencies: []string{"A"}},
	}
	plan := Build([]string{"A", "B"}, enriched)

	assert.Len(t, plan.Steps, 2)
	assert.Equal(t, "A", plan.Steps[0].TaskID)
	assert.Empty(t, plan.Steps[0].WaitFor)
	assert.Equal(t, "B", plan.Steps[1].TaskID)
	assert.Equal(t, []string{"A"}, plan.Steps[1].WaitFor)
}

func TestBuild_SkipsUnenrichedTasks(t *testing.T) {
	enriched := map[string]*models.Subtask{
		"A": {TaskID: "A", AgentID: "agent_a"},
	}
	plan := Build([]string{"A", "B"}, enriched)
	assert.Len(t, plan.Steps, 1)
}

func TestBuild_DependencyOutsidePathOmittedFromWaitFor(t *testing.T) {
	enriched := map[string]*models.Subtask{
		"B": {TaskID: "B", AgentID: "agent_b", Dependencies: []string{"A"}},
	}
	plan := Build([]string{"B"}, enriched)
	assert.Len(t, plan.Steps, 1)
	assert.Empty(t, plan.Steps[0].WaitFor)
}

func TestBuild_PreservesNeedsReview(t *testing.T) {
	enriched := map[string]*models.Subtask{
		"A": {TaskID: "A", AgentID: "agent_a", NeedsReview: true},
	}
	plan := Build([]string{"A"}, enriched)
	assert.True(t, plan.Steps[0].NeedsReview)
}
