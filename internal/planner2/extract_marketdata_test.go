package planner2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarketDataParams_CallOptions(t *testing.T) {
	out := extractMarketDataParams("Show all call options")
	assert.Equal(t, "by_symbol", out["template"])
	params := out["params"].(map[string]any)
	assert.Equal(t, "%.C", params["symbol_pattern"])
}

func TestExtractMarketDataParams_PutOptions(t *testing.T) {
	out := extractMarketDataParams("list the put options")
	params := out["params"].(map[string]any)
	assert.Equal(t, "%.P", params["symbol_pattern"])
}

func TestExtractMarketDataParams_BetweenRange(t *testing.T) {
	out := extractMarketDataParams("Most recent date when ZN closing price was between 112.5 and 112.9")
	assert.Equal(t, "custom", out["template"])
	params := out["params"].(map[string]any)
	conditions := params["conditions"].(string)
	assert.Contains(t, conditions, "symbol LIKE ? AND price BETWEEN ? AND ?")
	values := params["values"].([]any)
	require.Len(t, values, 3)
	assert.Equal(t, "%ZN%", values[0])
	assert.Equal(t, 112.5, values[1])
	assert.Equal(t, 112.9, values[2])
	assert.Equal(t, "file_date", out["order_by_column"])
	assert.Equal(t, "DESC", out["order_by_direction"])
	assert.Equal(t, 1, out["limit"])
}

func TestExtractMarketDataParams_FromToRange(t *testing.T) {
	out := extractMarketDataParams("BTC prices from 50000 to 60000")
	assert.Equal(t, "custom", out["template"])
	params := out["params"].(map[string]any)
	values := params["values"].([]any)
	require.Len(t, values, 3)
	assert.Equal(t, "%BTC%", values[0])
	assert.Equal(t, 50000.0, values[1])
	assert.Equal(t, 60000.0, values[2])
}

func TestExtractMarketDataParams_Comparison(t *testing.T) {
	out := extractMarketDataParams("ETH price > 3000")
	assert.Equal(t, "custom", out["template"])
	params := out["params"].(map[string]any)
	conditions := params["conditions"].(string)
	assert.Contains(t, conditions, "price > ?")
	values := params["values"].([]any)
	require.Len(t, values, 2)
	assert.Equal(t, "%ETH%", values[0])
	assert.Equal(t, 3000.0, values[1])
}

func TestExtractMarketDataParams_DateOnly(t *testing.T) {
	out := extractMarketDataParams("market data for 2024-01-15")
	assert.Equal(t, "by_date", out["template"])
	params := out["params"].(map[string]any)
	assert.Equal(t, "2024-01-15", params["file_date"])
}

func TestExtractMarketDataParams_SymbolAndDate(t *testing.T) {
	out := extractMarketDataParams("BTC market data for 2024-01-15")
	assert.Equal(t, "by_symbol_and_date", out["template"])
	params := out["params"].(map[string]any)
	assert.Equal(t, "%BTC%", params["symbol_pattern"])
	assert.Equal(t, "2024-01-15", params["file_date"])
}

func TestExtractMarketDataParams_HighestPriceOrdersDescending(t *testing.T) {
	out := extractMarketDataParams("BTC with the highest price")
	assert.Equal(t, "price", out["order_by_column"])
	assert.Equal(t, "DESC", out["order_by_direction"])
}
