package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/artifacts"
	"github.com/aj002fr/depgraph/internal/executor"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/planner1"
	"github.com/aj002fr/depgraph/internal/planner2"
	"github.com/aj002fr/depgraph/internal/runner"
	"github.com/aj002fr/depgraph/internal/taskstore"
	"github.com/aj002fr/depgraph/internal/toolloader"
	"github.com/aj002fr/depgraph/internal/tools"
)

type stubLLMClient struct{ plan string }

func (s *stubLLMClient) GeneratePlan(ctx context.Context, prompt string) (string, error) {
	return s.plan, nil
}
func (s *stubLLMClient) Verify(ctx context.Context, prompt, output string) (bool, string, error) {
	return true, "", nil
}
func (s *stubLLMClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", nil
}
func (s *stubLLMClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	return nil
}

type fakeQuoteTool struct{}

func (f *fakeQuoteTool) Name() string { return "quote_tool" }
func (f *fakeQuoteTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	return []any{map[string]any{"symbol": "BTC", "price": 100.0}}, "", nil
}

func TestEngine_Run_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	store, err := taskstore.Open(filepath.Join(dir, "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	bus := artifacts.New(dir)

	registry := tools.NewRegistry()
	registry.Register(&fakeQuoteTool{})

	descs := []models.ToolDescriptor{{ToolID: "quote_tool", OwningAgent: "quote_agent"}}
	allow := map[string][]string{"quote_agent": {"quote_tool"}}
	loader, err := toolloader.New(descs, allow, 10)
	require.NoError(t, err)

	agentsAvail := []models.AgentDescriptor{{AgentID: "quote_agent", KeywordHints: []string{"price"}}}
	llmClient := &stubLLMClient{plan: `[{"id": "task_1", "description": "get the BTC price", "agent": "quote_agent"}]`}

	stage1 := planner1.New(llmClient, agentsAvail)
	stage2 := planner2.New(loader)
	r := runner.New(store, nil)

	eng := New(store, bus, registry, loader, stage1, stage2, r, nil, executor.Options{
		MaxParallel: 2, DependencyPollInterval: 10 * time.Millisecond, TaskTimeout: time.Second,
	})

	result, err := eng.Run(context.Background(), "what is the BTC price", models.RunOptions{SkipValidation: true})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.Metadata.TotalTasks)
	assert.Equal(t, 1, result.Metadata.SuccessfulTasks)
	assert.Contains(t, result.DataByAgent, "quote_agent")
}
