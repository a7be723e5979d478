package tools

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// market data column whitelist, grounded on schema.py's ALLOWED_COLUMNS.
var marketDataAllowedColumns = map[string]bool{
	"id": true, "symbol": true, "bid": true, "ask": true, "price": true,
	"bid_quantity": true, "offer_quantity": true, "timestamp": true,
	"file_date": true, "data_source": true, "is_valid": true, "created_at": true,
}

// subset of marketDataAllowedColumns that make sense for ORDER BY.
var marketDataSortableColumns = map[string]bool{
	"symbol": true, "bid": true, "ask": true, "price": true,
	"timestamp": true, "file_date": true, "created_at": true,
}

var marketDataQueryTemplates = map[string]string{
	"by_symbol":          "SELECT %s FROM market_data WHERE symbol LIKE ? AND is_valid = 1",
	"by_date":            "SELECT %s FROM market_data WHERE file_date = ? AND is_valid = 1",
	"by_symbol_and_date":  "SELECT %s FROM market_data WHERE symbol LIKE ? AND file_date = ? AND is_valid = 1",
	"all_valid":          "SELECT %s FROM market_data WHERE is_valid = 1",
	"custom":             "SELECT %s FROM market_data WHERE %s",
}

// marketDataMaxRows caps limit to defend against an unbounded scan of the
// database regardless of what a caller asks for.
const marketDataMaxRows = 10000

// RunQueryTool executes a parameterized, column-whitelisted query against
// the market data database with progressive disclosure (full dataset in
// "data", a five-row sample alongside it in "metadata").
// Inputs:
// - db_path: string (required)
// - template: string (optional; default "all_valid"; one of
//   by_symbol, by_date, by_symbol_and_date, all_valid, custom)
// - columns: []string (optional; default all columns)
// - params: map (optional; template-specific; custom requires "conditions")
// - limit: number (optional; capped at marketDataMaxRows)
// - order_by_column: string (optional; must be a sortable column)
// - order_by_direction: string (optional; "ASC" or "DESC", default "ASC")
type RunQueryTool struct{}

func (t *RunQueryTool) Name() string { return "run_query" }

func (t *RunQueryTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	dbPath, _ := inputs["db_path"].(string)
	if dbPath == "" {
		dbPath = os.Getenv("MARKET_DATA_DB_PATH")
	}
	if dbPath == "" {
		return nil, "", fmt.Errorf("missing db_path (set db_path input or MARKET_DATA_DB_PATH)")
	}

	template, _ := inputs["template"].(string)
	if template == "" {
		template = "all_valid"
	}
	templateSQL, ok := marketDataQueryTemplates[template]
	if !ok {
		return nil, "", fmt.Errorf("invalid template: %s", template)
	}

	columns := stringListInput(inputs["columns"])
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	if err := validateMarketDataColumns(columns); err != nil {
		return nil, "", err
	}
	columnList := buildMarketDataColumnList(columns)

	params, _ := inputs["params"].(map[string]any)

	var sqlText string
	var args []any
	if template == "custom" {
		conditions, _ := params["conditions"].(string)
		if conditions == "" {
			return nil, "", fmt.Errorf("custom template requires 'conditions' parameter")
		}
		sqlText = fmt.Sprintf(templateSQL, columnList, conditions)
		args = toAnySlice(params["values"])
	} else {
		sqlText = fmt.Sprintf(templateSQL, columnList)
		switch template {
		case "by_symbol":
			args = []any{stringOrDefault(params, "symbol_pattern", "%")}
		case "by_date":
			args = []any{stringOrDefault(params, "file_date", "")}
		case "by_symbol_and_date":
			args = []any{
				stringOrDefault(params, "symbol_pattern", "%"),
				stringOrDefault(params, "file_date", ""),
			}
		}
	}

	if orderCol, _ := inputs["order_by_column"].(string); orderCol != "" {
		direction, _ := inputs["order_by_direction"].(string)
		clause, err := buildMarketDataOrderBy(orderCol, direction)
		if err != nil {
			return nil, "", err
		}
		sqlText += clause
	}

	limit := marketDataMaxRows
	if raw, ok := inputs["limit"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid limit: %w", err)
		}
		if n <= 0 {
			return nil, "", fmt.Errorf("limit must be positive")
		}
		if n < limit {
			limit = n
		}
	}
	sqlText += fmt.Sprintf(" LIMIT %d", limit)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, "", fmt.Errorf("run_query: %w", err)
	}
	defer rows.Close()

	data, err := scanMarketDataRows(rows)
	if err != nil {
		return nil, "", err
	}

	sample := data
	if len(data) > 5 {
		sample = data[:5]
	}
	logs := fmt.Sprintf("rows=%d sql=%q", len(data), sqlText)
	return map[string]any{
		"data": data,
		"metadata": map[string]any{
			"query":     sqlText,
			"row_count": len(data),
			"sample":    sample,
			"columns":   columnList,
		},
	}, logs, nil
}

func validateMarketDataColumns(columns []string) error {
	for _, c := range columns {
		if c == "*" {
			continue
		}
		if !marketDataAllowedColumns[c] {
			return fmt.Errorf("invalid column: %s", c)
		}
	}
	return nil
}

func buildMarketDataColumnList(columns []string) string {
	for _, c := range columns {
		if c == "*" {
			return "*"
		}
	}
	return strings.Join(columns, ", ")
}

func buildMarketDataOrderBy(column, direction string) (string, error) {
	if !marketDataSortableColumns[column] {
		return "", fmt.Errorf("invalid order_by column: %s", column)
	}
	dir := strings.ToUpper(direction)
	if dir == "" {
		dir = "ASC"
	}
	if dir != "ASC" && dir != "DESC" {
		return "", fmt.Errorf("invalid sort direction: %s", direction)
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, dir), nil
}

func scanMarketDataRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, 64)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func stringListInput(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringOrDefault(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

func toAnySlice(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	return list
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
