package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aj002fr/depgraph/internal/sessionctx"
)

const (
	polymarketGammaBaseURL = "https://gamma-api.polymarket.com"
	polymarketCLOBBaseURL  = "https://clob.polymarket.com"
	polymarketMaxResults   = 50
	polymarketDefaultLimit = 10
)

// SearchPolymarketTool searches Polymarket prediction markets by free-text
// query and enriches each hit with a historical price pulled from the CLOB
// price-history endpoint, so a caller sees both the current quote and how
// it moved since a reference date.
// Inputs:
// - query: string (required)
// - limit: number (optional; default 10, capped at 50)
// - historical_date: string (optional; ISO date; default now - days_back)
// - days_back: number (optional; default 7, used when historical_date is absent)
type SearchPolymarketTool struct {
	HTTPClient *http.Client
}

func (t *SearchPolymarketTool) Name() string { return "search_polymarket_with_history" }

func (t *SearchPolymarketTool) client() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (t *SearchPolymarketTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	query, _ := inputs["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, "", fmt.Errorf("query cannot be empty")
	}

	limit := polymarketDefaultLimit
	if raw, ok := inputs["limit"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid limit: %w", err)
		}
		limit = n
	}
	if limit <= 0 || limit > polymarketMaxResults {
		return nil, "", fmt.Errorf("limit must be between 1 and %d", polymarketMaxResults)
	}

	daysBack := 7
	if raw, ok := inputs["days_back"]; ok {
		n, err := toInt(raw)
		if err == nil && n > 0 {
			daysBack = n
		}
	}

	now := time.Now().UTC()
	histDate := now.AddDate(0, 0, -daysBack)
	if raw, _ := inputs["historical_date"].(string); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid historical_date: %s", raw)
		}
		histDate = parsed
	}

	sessionID, ok := sessionctx.FromContext(ctx)
	if !ok {
		sessionID = sessionIDFor(now, query)
	}

	markets, err := t.searchMarkets(ctx, query, limit)
	if err != nil {
		return nil, "", err
	}

	histTimestamp := histDate.Unix()
	enriched := make([]map[string]any, 0, len(markets))
	for _, market := range markets {
		enriched = append(enriched, t.enrichWithHistory(ctx, market, histTimestamp, now, histDate))
	}

	logs := fmt.Sprintf("markets=%d session=%s", len(enriched), sessionID)
	return map[string]any{
		"data": enriched,
		"metadata": map[string]any{
			"query":           query,
			"session_id":      sessionID,
			"result_count":    len(enriched),
			"current_date":    now.Format("2006-01-02"),
			"historical_date": histDate.Format("2006-01-02"),
			"days_back":       int(now.Sub(histDate).Hours() / 24),
			"platform":        "polymarket",
		},
	}, logs, nil
}

func sessionIDFor(now time.Time, query string) string {
	runID := now.Format("20060102150405")
	sum := sha256.Sum256([]byte(runID + "_" + query))
	return fmt.Sprintf("%s_%s", runID, hex.EncodeToString(sum[:])[:6])
}

func (t *SearchPolymarketTool) searchMarkets(ctx context.Context, query string, limit int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("events_status", "active")
	params.Set("keep_closed_markets", "0")
	params.Set("limit_per_type", strconv.Itoa(limit))
	params.Set("search_profiles", "false")
	params.Set("search_tags", "false")

	reqURL := polymarketGammaBaseURL + "/public-search?" + params.Encode()
	body, err := t.getJSON(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("polymarket search: %w", err)
	}

	var raw struct {
		Events []struct {
			Markets []map[string]any `json:"markets"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode polymarket search response: %w", err)
	}

	markets := make([]map[string]any, 0, limit)
	for _, event := range raw.Events {
		for _, m := range event.Markets {
			formatted := formatPolymarketMarket(m)
			status, _ := formatted["status"].(string)
			if status == "closed" || status == "resolved" {
				continue
			}
			if !validPolymarketMarket(formatted) {
				continue
			}
			markets = append(markets, formatted)
			if len(markets) >= limit {
				return markets, nil
			}
		}
	}
	return markets, nil
}

func formatPolymarketMarket(m map[string]any) map[string]any {
	marketID := stringField(m, "conditionId", "id")
	title := stringField(m, "question", "title")
	slug, _ := m["slug"].(string)

	tokenIDs := stringListField(m["clobTokenIds"])

	outcomes := stringListField(m["outcomes"])
	if len(outcomes) == 0 {
		outcomes = []string{"Yes", "No"}
	}

	prices := map[string]any{}
	outcomePrices := stringListField(m["outcomePrices"])
	if len(outcomePrices) >= 2 {
		for i, outcome := range outcomes {
			if i >= len(outcomePrices) {
				break
			}
			v, err := strconv.ParseFloat(outcomePrices[i], 64)
			if err != nil {
				v = 0.5
			}
			prices[outcome] = v
		}
	} else {
		for _, outcome := range outcomes {
			prices[outcome] = 0.5
		}
	}

	volume := numericField(m, "volume")
	liquidity := numericField(m, "liquidity")
	probability := firstNumeric(prices, "Yes", "yes")

	status := "active"
	if closed, _ := m["closed"].(bool); closed {
		status = "closed"
	} else if active, ok := m["active"].(bool); ok && !active {
		status = "resolved"
	}

	marketURL := ""
	if raw, _ := m["url"].(string); strings.HasPrefix(raw, "http") {
		marketURL = raw
	} else if slug != "" {
		marketURL = "https://polymarket.com/market/" + slug
	}

	return map[string]any{
		"market_id":      marketID,
		"clob_token_ids": tokenIDs,
		"title":          title,
		"outcomes":       outcomes,
		"prices":         prices,
		"probability":    probability,
		"volume":         volume,
		"liquidity":      liquidity,
		"status":         status,
		"url":            marketURL,
		"slug":           slug,
	}
}

func validPolymarketMarket(m map[string]any) bool {
	title, _ := m["title"].(string)
	if title == "" {
		return false
	}
	prices, ok := m["prices"].(map[string]any)
	return ok && len(prices) > 0
}

func (t *SearchPolymarketTool) enrichWithHistory(ctx context.Context, market map[string]any, histTimestamp int64, now, histDate time.Time) map[string]any {
	out := map[string]any{}
	for k, v := range market {
		out[k] = v
	}
	out["current_price"] = market["prices"]
	out["current_date"] = now.Format("2006-01-02")
	out["historical_date"] = histDate.Format("2006-01-02")

	tokenIDs, _ := market["clob_token_ids"].([]string)
	if len(tokenIDs) == 0 {
		out["historical_price"] = nil
		out["price_change"] = nil
		out["note"] = "no token id available for historical price lookup"
		return out
	}

	history, err := t.fetchPriceHistory(ctx, tokenIDs[0], histTimestamp-86400, histTimestamp+86400)
	if err != nil || len(history) == 0 {
		out["historical_price"] = nil
		out["price_change"] = nil
		out["note"] = "no historical price data available from API"
		return out
	}

	histYes, ok := priceAtTargetTime(history, histTimestamp)
	if !ok {
		out["historical_price"] = nil
		out["price_change"] = nil
		out["note"] = "could not interpolate historical price from data points"
		return out
	}
	histNo := 1.0 - histYes
	out["historical_price"] = map[string]any{"yes": histYes, "no": histNo}

	prices, _ := market["prices"].(map[string]any)
	currentYes := firstNumeric(prices, "Yes", "yes")
	currentNo := firstNumeric(prices, "No", "no")
	yesChange := currentYes - histYes
	noChange := currentNo - histNo

	direction := "stable"
	if yesChange > 0.01 {
		direction = "up"
	} else if yesChange < -0.01 {
		direction = "down"
	}
	out["price_change"] = map[string]any{
		"yes":         round4(yesChange),
		"no":          round4(noChange),
		"yes_percent": round2(pctChange(yesChange, histYes)),
		"no_percent":  round2(pctChange(noChange, histNo)),
		"direction":   direction,
	}
	out["data_points"] = len(history)
	return out
}

type pricePoint struct {
	T int64
	P float64
}

func (t *SearchPolymarketTool) fetchPriceHistory(ctx context.Context, tokenID string, startTS, endTS int64) ([]pricePoint, error) {
	params := url.Values{}
	params.Set("market", tokenID)
	params.Set("startTs", strconv.FormatInt(startTS, 10))
	params.Set("endTs", strconv.FormatInt(endTS, 10))
	params.Set("interval", "1h")
	params.Set("fidelity", "60")

	reqURL := polymarketCLOBBaseURL + "/prices-history?" + params.Encode()
	body, err := t.getJSON(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var raw struct {
		History []struct {
			T int64   `json:"t"`
			P float64 `json:"p"`
		} `json:"history"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode price history: %w", err)
	}
	out := make([]pricePoint, 0, len(raw.History))
	for _, p := range raw.History {
		out = append(out, pricePoint{T: p.T, P: p.P})
	}
	return out, nil
}

// priceAtTargetTime mirrors get_price_history.py's weighted average of
// nearby points, half-life 1 hour.
func priceAtTargetTime(history []pricePoint, target int64) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	sorted := append([]pricePoint{}, history...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	var before, after []pricePoint
	for _, p := range sorted {
		if p.T <= target {
			before = append(before, p)
		} else {
			after = append(after, p)
		}
	}
	if len(before) > 5 {
		before = before[len(before)-5:]
	}
	if len(after) > 5 {
		after = after[:5]
	}
	relevant := append(before, after...)
	if len(relevant) == 0 {
		closest := sorted[0]
		bestDiff := abs64(closest.T - target)
		for _, p := range sorted {
			if d := abs64(p.T - target); d < bestDiff {
				closest, bestDiff = p, d
			}
		}
		return closest.P, true
	}

	var weightedSum, totalWeight float64
	for _, p := range relevant {
		diff := math.Abs(float64(p.T - target))
		weight := math.Pow(2, -diff/3600.0)
		weightedSum += p.P * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0, false
	}
	return weightedSum / totalWeight, true
}

func (t *SearchPolymarketTool) getJSON(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible)")

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	lr := io.LimitedReader{R: resp.Body, N: 4 << 20}
	body, err := io.ReadAll(&lr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func numericField(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func stringListField(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case string:
		var parsed []string
		if err := json.Unmarshal([]byte(vv), &parsed); err == nil {
			return parsed
		}
		return nil
	default:
		return nil
	}
}

func firstNumeric(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
	}
	return 0.5
}

func pctChange(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return delta / base * 100
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round4(f float64) float64 { return math.Round(f*10000) / 10000 }
func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
