package planner2

import (
	"regexp"
	"strconv"
	"strings"
)

// marketDataAllowedColumns mirrors run_query.go's own whitelist (grounded
// on schema.py's ALLOWED_COLUMNS). Carrying a second copy here, checked
// before a column name ever reaches the tool, is defense in depth: the
// extractor rejects an unknown order_by column instead of relying solely
// on the worker to reject it at invocation time.
var marketDataAllowedColumns = map[string]bool{
	"id": true, "symbol": true, "bid": true, "ask": true, "price": true,
	"bid_quantity": true, "offer_quantity": true, "timestamp": true,
	"file_date": true, "data_source": true, "is_valid": true, "created_at": true,
}

var (
	mdSymbolPattern     = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	mdDatePattern       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	mdBetweenPattern    = regexp.MustCompile(`between\s+(\d+\.?\d*)\s+and\s+(\d+\.?\d*)`)
	mdFromToPattern     = regexp.MustCompile(`from\s+(\d+\.?\d*)\s+to\s+(\d+\.?\d*)`)
	mdComparisonPattern = regexp.MustCompile(`price\s*([><=]+)\s*(\d+\.?\d*)`)
	mdLimitPattern      = regexp.MustCompile(`(?:most recent|latest|first|top)\s+(\d+)`)
)

// extractMarketDataParams builds run_query's {template, params, limit,
// order_by_column, order_by_direction} contract from a task description,
// recognizing symbols (including call/put option suffixes), dates,
// numeric ranges ("between X and Y", "from X to Y"), and comparisons
// ("price > X"). Grounded on task_mapper.py's _extract_market_data_params;
// call/put detection has no original_source counterpart and is grounded
// instead on run_query.py's documented "%.C"/"%.P" symbol suffix
// convention for option contracts.
func extractMarketDataParams(description string) map[string]any {
	desc := strings.ToLower(description)
	symbolPattern := marketDataSymbol(desc, description)

	if conditions, values, ok := marketDataRangeCondition(desc, symbolPattern); ok {
		return marketDataResult("custom", map[string]any{
			"conditions": conditions,
			"values":     values,
		}, desc)
	}

	template := "by_symbol"
	params := map[string]any{"symbol_pattern": symbolPattern}
	if d := mdDatePattern.FindString(description); d != "" {
		params["file_date"] = d
		if symbolPattern != "%" {
			template = "by_symbol_and_date"
		} else {
			template = "by_date"
		}
	}
	return marketDataResult(template, params, desc)
}

// marketDataSymbol recognizes the symbols task_mapper.py's
// _extract_market_data_params knows about (btc/eth/zn), call/put option
// suffixes, or falls back to any bare 2-5 letter uppercase token.
func marketDataSymbol(desc, original string) string {
	switch {
	case strings.Contains(desc, "call option"):
		return "%.C"
	case strings.Contains(desc, "put option"):
		return "%.P"
	case containsAnyMD(desc, "btc", "bitcoin"):
		return "%BTC%"
	case containsAnyMD(desc, "eth", "ethereum"):
		return "%ETH%"
	case containsAnyMD(desc, "zn"):
		return "%ZN%"
	}
	if m := mdSymbolPattern.FindString(original); m != "" {
		return "%" + m + "%"
	}
	return "%"
}

// marketDataRangeCondition builds a custom template's conditions/values
// for a "between X and Y", "from X to Y", or "price > X" style query.
func marketDataRangeCondition(desc, symbolPattern string) (string, []any, bool) {
	var low, high string
	switch {
	case mdBetweenPattern.MatchString(desc):
		m := mdBetweenPattern.FindStringSubmatch(desc)
		low, high = m[1], m[2]
	case mdFromToPattern.MatchString(desc):
		m := mdFromToPattern.FindStringSubmatch(desc)
		low, high = m[1], m[2]
	case mdComparisonPattern.MatchString(desc):
		m := mdComparisonPattern.FindStringSubmatch(desc)
		operator, value := m[1], m[2]
		conditions, values := marketDataBaseConditions(symbolPattern)
		conditions = append(conditions, "price "+operator+" ?")
		values = append(values, mustParseFloat(value))
		conditions = append(conditions, "is_valid = 1")
		return strings.Join(conditions, " AND "), values, true
	default:
		return "", nil, false
	}

	conditions, values := marketDataBaseConditions(symbolPattern)
	conditions = append(conditions, "price BETWEEN ? AND ?")
	values = append(values, mustParseFloat(low), mustParseFloat(high))
	conditions = append(conditions, "is_valid = 1")
	return strings.Join(conditions, " AND "), values, true
}

func marketDataBaseConditions(symbolPattern string) ([]string, []any) {
	if symbolPattern == "%" {
		return nil, nil
	}
	return []string{"symbol LIKE ?"}, []any{symbolPattern}
}

// marketDataResult fills in order_by_column/order_by_direction/limit,
// the part of the extraction that is independent of which template or
// symbol match was chosen.
func marketDataResult(template string, params map[string]any, desc string) map[string]any {
	out := map[string]any{
		"template":           template,
		"params":             params,
		"limit":              1000,
		"order_by_direction": "ASC",
	}

	switch {
	case containsAnyMD(desc, "descending", "desc", "latest", "most recent", "newest"):
		out["order_by_direction"] = "DESC"
	case containsAnyMD(desc, "ascending", "asc", "oldest", "earliest"):
		out["order_by_direction"] = "ASC"
	}

	switch {
	case containsAnyMD(desc, "date", "when", "recent", "latest", "earliest"):
		out["order_by_column"] = "file_date"
	case containsAnyMD(desc, "price", "highest", "lowest", "expensive", "cheap"):
		out["order_by_column"] = "price"
		if containsAnyMD(desc, "highest", "expensive") {
			out["order_by_direction"] = "DESC"
		} else if containsAnyMD(desc, "lowest", "cheap") {
			out["order_by_direction"] = "ASC"
		}
	}
	if col, ok := out["order_by_column"].(string); ok && !marketDataAllowedColumns[col] {
		delete(out, "order_by_column")
	}

	if m := mdLimitPattern.FindStringSubmatch(desc); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out["limit"] = n
		}
	} else if containsAnyMD(desc, "most recent", "latest", "first") {
		out["limit"] = 1
	}

	return out
}

func containsAnyMD(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func mustParseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
