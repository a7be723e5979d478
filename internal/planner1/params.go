package planner1

import (
	"regexp"
	"strconv"
	"strings"
)

// extractParams pulls a coarse parameter seed from a task description for
// the agents with well-known query shapes. Stage 2 refines (or entirely
// replaces) these against the agent's declared tool schema; this is only
// the hint Stage 1 can produce without any tool knowledge.
//
// Grounded on task_mapper.py's _extract_market_data_params and
// _extract_polymarket_params, trimmed to the keyword/regex rules that
// carry information forward to Stage 2 rather than reproducing its SQL
// template selection (that logic now lives in planner2's extractors,
// which already have the tool schema in hand).
func extractParams(desc, agentID string) map[string]any {
	switch agentID {
	case "market_data_agent":
		return extractMarketDataParams(desc)
	case "polymarket_agent":
		return extractPolymarketParams(desc)
	default:
		return nil
	}
}

var symbolPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
var limitPattern = regexp.MustCompile(`(?:most recent|latest|first|top)\s+(\d+)`)

func extractMarketDataParams(desc string) map[string]any {
	params := map[string]any{"symbol_pattern": "%"}

	switch {
	case containsAny(desc, "btc", "bitcoin"):
		params["symbol_pattern"] = "%BTC%"
	case containsAny(desc, "eth", "ethereum"):
		params["symbol_pattern"] = "%ETH%"
	default:
		if m := symbolPattern.FindString(strings.ToUpper(desc)); m != "" {
			params["symbol_pattern"] = "%" + m + "%"
		}
	}

	if d := datePattern.FindString(desc); d != "" {
		params["file_date"] = d
	}

	switch {
	case containsAny(desc, "descending", "desc", "latest", "most recent", "newest"):
		params["order_by_direction"] = "DESC"
	case containsAny(desc, "ascending", "asc", "oldest", "earliest"):
		params["order_by_direction"] = "ASC"
	}

	switch {
	case containsAny(desc, "date", "when", "recent", "latest", "earliest"):
		params["order_by_column"] = "file_date"
	case containsAny(desc, "price", "highest", "lowest", "expensive", "cheap"):
		params["order_by_column"] = "price"
		if containsAny(desc, "highest", "expensive") {
			params["order_by_direction"] = "DESC"
		} else if containsAny(desc, "lowest", "cheap") {
			params["order_by_direction"] = "ASC"
		}
	}

	if m := limitPattern.FindStringSubmatch(desc); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			params["limit"] = n
		}
	} else if containsAny(desc, "most recent", "latest", "first") {
		params["limit"] = 1
	}

	return params
}

var topNPattern = regexp.MustCompile(`top (\d+)|first (\d+)|(\d+) market`)

func extractPolymarketParams(desc string) map[string]any {
	params := map[string]any{"query": desc, "limit": 10}

	if m := topNPattern.FindStringSubmatch(desc); m != nil {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			if n, err := strconv.Atoi(g); err == nil {
				if n > 50 {
					n = 50
				}
				params["limit"] = n
				break
			}
		}
	}
	return params
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
