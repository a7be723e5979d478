package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPolymarketMarket_ParsesOutcomePrices(t *testing.T) {
	raw := map[string]any{
		"question":      "Will it rain tomorrow?",
		"conditionId":    "abc123",
		"outcomes":       []any{"Yes", "No"},
		"outcomePrices":  []any{"0.65", "0.35"},
		"clobTokenIds":   []any{"tok-yes", "tok-no"},
		"volume":         "1234.5",
		"liquidity":      "500",
		"slug":           "will-it-rain",
	}
	out := formatPolymarketMarket(raw)
	assert.Equal(t, "abc123", out["market_id"])
	assert.Equal(t, "Will it rain tomorrow?", out["title"])
	assert.Equal(t, "active", out["status"])
	prices := out["prices"].(map[string]any)
	assert.InDelta(t, 0.65, prices["Yes"], 0.0001)
	assert.InDelta(t, 0.35, prices["No"], 0.0001)
	assert.InDelta(t, 0.65, out["probability"].(float64), 0.0001)
	assert.Equal(t, "https://polymarket.com/market/will-it-rain", out["url"])
	assert.Equal(t, []string{"tok-yes", "tok-no"}, out["clob_token_ids"])
}

func TestFormatPolymarketMarket_DefaultsWhenPricesMissing(t *testing.T) {
	raw := map[string]any{"title": "Untitled market", "id": "x"}
	out := formatPolymarketMarket(raw)
	prices := out["prices"].(map[string]any)
	assert.Equal(t, 0.5, prices["Yes"])
	assert.Equal(t, 0.5, prices["No"])
}

func TestValidPolymarketMarket(t *testing.T) {
	assert.True(t, validPolymarketMarket(map[string]any{"title": "x", "prices": map[string]any{"Yes": 0.5}}))
	assert.False(t, validPolymarketMarket(map[string]any{"title": "", "prices": map[string]any{"Yes": 0.5}}))
	assert.False(t, validPolymarketMarket(map[string]any{"title": "x", "prices": map[string]any{}}))
}

func TestPriceAtTargetTime_WeightedAverage(t *testing.T) {
	history := []pricePoint{
		{T: 1000, P: 0.4},
		{T: 2000, P: 0.6},
		{T: 3000, P: 0.8},
	}
	price, ok := priceAtTargetTime(history, 2000)
	assert.True(t, ok)
	assert.InDelta(t, 0.6, price, 0.2)
}

func TestPriceAtTargetTime_SinglePointAtTarget(t *testing.T) {
	price, ok := priceAtTargetTime([]pricePoint{{T: 5000, P: 0.9}}, 5000)
	assert.True(t, ok)
	assert.Equal(t, 0.9, price)
}

func TestPriceAtTargetTime_EmptyHistory(t *testing.T) {
	_, ok := priceAtTargetTime(nil, 1000)
	assert.False(t, ok)
}

func TestSessionIDFor_IsDeterministicGivenSameInputs(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2026-08-06T12:00:00Z")
	assert.NoError(t, err)
	a := sessionIDFor(now, "bitcoin")
	b := sessionIDFor(now, "bitcoin")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, sessionIDFor(now, "ethereum"))
}

func TestSessionIDFor_MatchesDocumentedFormat(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2026-08-06T14:30:22Z")
	assert.NoError(t, err)
	id := sessionIDFor(now, "bitcoin")
	assert.Regexp(t, `^\d{14}_[0-9a-f]{6}$`, id)
	assert.Equal(t, "20260806143022", id[:14])
}
