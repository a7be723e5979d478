package taskstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStartTask_RejectsDuplicate(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.StartTask(ctx, "run1", "t1", "agent_a", time.Now()))

	err := s.StartTask(ctx, "run1", "t1", "agent_a", time.Now())
	require.Error(t, err)
	var already *engineerr.AlreadyStarted
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "run1", already.RunID)
	assert.Equal(t, "t1", already.TaskID)
}

func TestCompleteTask_ThenOutputVisible(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.StartTask(ctx, "run1", "t1", "agent_a", time.Now()))
	require.NoError(t, s.CompleteTask(ctx, "run1", "t1", 42, "artifacts/run1/agent_a/1.json"))
	require.NoError(t, s.StoreOutput(ctx, "run1", "t1", "agent_a", `{"x":1}`, `{"row_count":1}`))

	status, ok, err := s.GetStatus(ctx, "run1", "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunSuccess, status)

	out, ok, err := s.GetOutput(ctx, "run1", "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, out)
}

func TestFailTask(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.StartTask(ctx, "run1", "t1", "agent_a", time.Now()))
	require.NoError(t, s.FailTask(ctx, "run1", "t1", 10, "tool timed out"))

	status, ok, err := s.GetStatus(ctx, "run1", "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunFailed, status)
}

func TestAreDependenciesComplete(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.StartTask(ctx, "run1", "A", "agent_a", time.Now()))
	require.NoError(t, s.StartTask(ctx, "run1", "B", "agent_b", time.Now()))

	// neither complete yet
	ok, err := s.AreDependenciesComplete(ctx, "run1", []string{"A", "B"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CompleteTask(ctx, "run1", "A", 5, "a.json"))
	ok, err = s.AreDependenciesComplete(ctx, "run1", []string{"A"})
	require.NoError(t, err)
	assert.True(t, ok)

	// B still running
	ok, err = s.AreDependenciesComplete(ctx, "run1", []string{"A", "B"})
	require.NoError(t, err)
	assert.False(t, ok)

	// a failed dependency never reports complete
	require.NoError(t, s.FailTask(ctx, "run1", "B", 5, "boom"))
	ok, err = s.AreDependenciesComplete(ctx, "run1", []string{"A", "B"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetRunSummary(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.StartTask(ctx, "run1", "A", "agent_a", time.Now()))
	require.NoError(t, s.CompleteTask(ctx, "run1", "A", 100, "a.json"))
	require.NoError(t, s.StartTask(ctx, "run1", "B", "agent_b", time.Now()))
	require.NoError(t, s.FailTask(ctx, "run1", "B", 50, "boom"))
	require.NoError(t, s.StartTask(ctx, "run1", "C", "agent_a", time.Now()))

	summary, err := s.GetRunSummary(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Running)
	assert.ElementsMatch(t, []string{"agent_a", "agent_b"}, summary.AgentsUsed)
	assert.Equal(t, int64(100), summary.Durations["A"])
}

func TestGetAllOutputs_OrderedByCreation(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.StartTask(ctx, "run1", "A", "agent_a", time.Now()))
	require.NoError(t, s.CompleteTask(ctx, "run1", "A", 1, "a.json"))
	require.NoError(t, s.StoreOutput(ctx, "run1", "A", "agent_a", `{"n":1}`, `{}`))

	require.NoError(t, s.StartTask(ctx, "run1", "B", "agent_b", time.Now()))
	require.NoError(t, s.CompleteTask(ctx, "run1", "B", 1, "b.json"))
	require.NoError(t, s.StoreOutput(ctx, "run1", "B", "agent_b", `{"n":2}`, `{}`))

	outputs, err := s.GetAllOutputs(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "A", outputs[0].TaskID)
	assert.Equal(t, "B", outputs[1].TaskID)
}

func TestStoreAndGetPlan(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	plan := &models.Plan{
		RunID: "run1",
		Query: "what are the top markets",
		Subtasks: map[string]*models.Subtask{
			"t1": {TaskID: "t1", Description: "fetch markets", Mappable: true},
		},
		SubtaskOrder: []string{"t1"},
	}
	require.NoError(t, s.StorePlan(ctx, "run1", plan))

	loaded, ok, err := s.GetPlan(ctx, "run1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, plan.Query, loaded.Query)
	assert.Equal(t, plan.SubtaskOrder, loaded.SubtaskOrder)

	// re-storing overwrites rather than duplicating
	plan.SubtaskOrder = append(plan.SubtaskOrder, "t2")
	require.NoError(t, s.StorePlan(ctx, "run1", plan))
	loaded, ok, err = s.GetPlan(ctx, "run1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"t1", "t2"}, loaded.SubtaskOrder)
}
