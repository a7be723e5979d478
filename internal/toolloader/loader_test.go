package toolloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
)

func fixture(t *testing.T) *Loader {
	t.Helper()
	tools := []models.ToolDescriptor{
		{ToolID: "run_query", OwningAgent: "market_data_agent", SideEffect: models.SideEffectReads},
		{ToolID: "search_predictions", OwningAgent: "polymarket_agent", SideEffect: models.SideEffectReads},
	}
	allow := map[string][]string{
		"market_data_agent": {"run_query"},
		"polymarket_agent":  {"search_predictions"},
	}
	l, err := New(tools, allow, 10)
	require.NoError(t, err)
	return l
}

func TestForAgents_UnionAndDedup(t *testing.T) {
	l := fixture(t)
	descs := l.ForAgents([]string{"market_data_agent", "market_data_agent", "polymarket_agent"})
	ids := make([]string, len(descs))
	for i, d := range descs {
		ids[i] = d.ToolID
	}
	assert.ElementsMatch(t, []string{"run_query", "search_predictions"}, ids)
}

func TestAuthorize(t *testing.T) {
	l := fixture(t)

	assert.NoError(t, l.Authorize("market_data_agent", "run_query"))

	err := l.Authorize("market_data_agent", "search_predictions")
	var unauthorized *engineerr.UnauthorizedTool
	require.ErrorAs(t, err, &unauthorized)

	err = l.Authorize("market_data_agent", "no_such_tool")
	var unknown *engineerr.UnknownTool
	require.ErrorAs(t, err, &unknown)
}

func TestLoad_CachesResolution(t *testing.T) {
	l := fixture(t)
	first, ok := l.Load("run_query")
	require.True(t, ok)
	second, ok := l.Load("run_query")
	require.True(t, ok)
	assert.Equal(t, first, second)

	_, ok = l.Load("missing")
	assert.False(t, ok)
}
