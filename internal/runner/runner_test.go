package runner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/taskstore"
)

func openStore(t *testing.T) *taskstore.Store {
	t.Helper()
	s, err := taskstore.Open(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConsolidate_NoClient_TemplatedAnswer(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.StartTask(ctx, "run1", "t1", "market_data_agent", time.Now()))
	require.NoError(t, store.CompleteTask(ctx, "run1", "t1", 10, "a.json"))
	require.NoError(t, store.StoreOutput(ctx, "run1", "t1", "market_data_agent", `[{"symbol":"BTC","price":100.0},{"symbol":"BTC","price":200.0}]`, "{}"))

	r := New(store, nil)
	result, err := r.Consolidate(ctx, "run1", "what is the BTC price", true)
	require.NoError(t, err)

	assert.Contains(t, result.AnswerText, "market_data_agent")
	stats := result.SummaryStats["market_data_agent"].(map[string]any)
	assert.Equal(t, 150.0, stats["avg_price"])
	assert.Nil(t, result.Validation)
}

func TestConsolidate_AveragesProbability(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.StartTask(ctx, "run1", "t1", "polymarket_agent", time.Now()))
	require.NoError(t, store.CompleteTask(ctx, "run1", "t1", 10, "a.json"))
	require.NoError(t, store.StoreOutput(ctx, "run1", "t1", "polymarket_agent",
		`[{"title":"a","probability":0.3},{"title":"b","probability":0.7}]`, "{}"))

	r := New(store, nil)
	result, err := r.Consolidate(ctx, "run1", "bitcoin predictions", true)
	require.NoError(t, err)

	stats := result.SummaryStats["polymarket_agent"].(map[string]any)
	assert.Equal(t, 0.5, stats["avg_probability"])
	assert.Contains(t, result.AnswerText, "avg probability")
}

func TestConsolidate_EmptyRun(t *testing.T) {
	store := openStore(t)
	r := New(store, nil)
	result, err := r.Consolidate(context.Background(), "run1", "anything", true)
	require.NoError(t, err)
	assert.Empty(t, result.DataByAgent)
}
