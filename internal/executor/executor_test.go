package executor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/artifacts"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/taskstore"
	"github.com/aj002fr/depgraph/internal/toolloader"
	"github.com/aj002fr/depgraph/internal/tools"
)

type fakeTool struct {
	name string
	fn   func(ctx context.Context, inputs map[string]any) (any, string, error)
}

func (f *fakeTool) Name() string { return f.name }
func (f *fakeTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	return f.fn(ctx, inputs)
}

func newExecutor(t *testing.T, registry *tools.Registry) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := taskstore.Open(filepath.Join(dir, "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	bus := artifacts.New(dir)

	descs := []models.ToolDescriptor{
		{ToolID: "tool_a", OwningAgent: "agent_a"},
		{ToolID: "tool_b", OwningAgent: "agent_b"},
	}
	allow := map[string][]string{"agent_a": {"tool_a"}, "agent_b": {"tool_b"}}
	loader, err := toolloader.New(descs, allow, 10)
	require.NoError(t, err)

	return New(store, bus, registry, loader, Options{MaxParallel: 2, DependencyPollInterval: 10 * time.Millisecond, TaskTimeout: time.Second}), "run1"
}

func TestRun_LinearDependency(t *testing.T) {
	registry := tools.NewRegistry()
	var order []string
	registry.Register(&fakeTool{name: "tool_a", fn: func(ctx context.Context, inputs map[string]any) (any, string, error) {
		order = append(order, "A")
		return []any{map[string]any{"x": 1}}, "", nil
	}})
	registry.Register(&fakeTool{name: "tool_b", fn: func(ctx context.Context, inputs map[string]any) (any, string, error) {
		order = append(order, "B")
		return []any{map[string]any{"x": 2}}, "", nil
	}})

	ex, runID := newExecutor(t, registry)
	plan := &models.ExecutionPlan{
		Path: []string{"A", "B"},
		Steps: []models.ExecutionStep{
			{TaskID: "A", AgentID: "agent_a", ToolID: "tool_a"},
			{TaskID: "B", AgentID: "agent_b", ToolID: "tool_b", WaitFor: []string{"A"}},
		},
	}
	err := ex.Run(context.Background(), runID, []*models.ExecutionPlan{plan})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)

	status, ok, err := ex.Store.GetStatus(context.Background(), runID, "B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunSuccess, status)
}

func TestRun_FailurePropagatesToDependents(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&fakeTool{name: "tool_a", fn: func(ctx context.Context, inputs map[string]any) (any, string, error) {
		return nil, "", assertErr{}
	}})
	registry.Register(&fakeTool{name: "tool_b", fn: func(ctx context.Context, inputs map[string]any) (any, string, error) {
		t.Fatal("tool_b should never run: its dependency failed")
		return nil, "", nil
	}})

	ex, runID := newExecutor(t, registry)
	plan := &models.ExecutionPlan{
		Path: []string{"A", "B"},
		Steps: []models.ExecutionStep{
			{TaskID: "A", AgentID: "agent_a", ToolID: "tool_a"},
			{TaskID: "B", AgentID: "agent_b", ToolID: "tool_b", WaitFor: []string{"A"}},
		},
	}
	err := ex.Run(context.Background(), runID, []*models.ExecutionPlan{plan})
	require.NoError(t, err)

	statusA, _, _ := ex.Store.GetStatus(context.Background(), runID, "A")
	statusB, _, _ := ex.Store.GetStatus(context.Background(), runID, "B")
	assert.Equal(t, models.RunFailed, statusA)
	assert.Equal(t, models.RunFailed, statusB)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
