package tools

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMarketDataDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market_data.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE market_data (
		id INTEGER PRIMARY KEY,
		symbol TEXT,
		bid REAL,
		ask REAL,
		price REAL,
		bid_quantity INTEGER,
		offer_quantity INTEGER,
		timestamp TEXT,
		file_date TEXT,
		data_source TEXT,
		is_valid INTEGER,
		created_at TEXT
	)`)
	require.NoError(t, err)

	rows := []struct {
		symbol   string
		price    float64
		fileDate string
	}{
		{"XCME.OZN.AUG25.113.C", 1.5, "2026-08-01"},
		{"XCME.OZN.AUG25.113.C", 2.5, "2026-08-02"},
		{"XCME.OZN.SEP25.113.P", 3.5, "2026-08-01"},
	}
	for _, r := range rows {
		_, err = db.Exec(`INSERT INTO market_data (symbol, price, file_date, is_valid) VALUES (?, ?, ?, 1)`,
			r.symbol, r.price, r.fileDate)
		require.NoError(t, err)
	}
	return path
}

func TestRunQueryTool_AllValid(t *testing.T) {
	dbPath := seedMarketDataDB(t)
	tool := &RunQueryTool{}
	out, _, err := tool.Execute(context.Background(), map[string]any{"db_path": dbPath})
	require.NoError(t, err)

	result := out.(map[string]any)
	data := result["data"].([]map[string]any)
	assert.Len(t, data, 3)
	meta := result["metadata"].(map[string]any)
	assert.Equal(t, 3, meta["row_count"])
}

func TestRunQueryTool_BySymbol(t *testing.T) {
	dbPath := seedMarketDataDB(t)
	tool := &RunQueryTool{}
	out, _, err := tool.Execute(context.Background(), map[string]any{
		"db_path":  dbPath,
		"template": "by_symbol",
		"columns":  []any{"symbol", "price"},
		"params":   map[string]any{"symbol_pattern": "%.C"},
	})
	require.NoError(t, err)
	data := out.(map[string]any)["data"].([]map[string]any)
	assert.Len(t, data, 2)
}

func TestRunQueryTool_RejectsUnknownColumn(t *testing.T) {
	dbPath := seedMarketDataDB(t)
	tool := &RunQueryTool{}
	_, _, err := tool.Execute(context.Background(), map[string]any{
		"db_path": dbPath,
		"columns": []any{"secret_column"},
	})
	assert.Error(t, err)
}

func TestRunQueryTool_RejectsUnknownOrderByColumn(t *testing.T) {
	dbPath := seedMarketDataDB(t)
	tool := &RunQueryTool{}
	_, _, err := tool.Execute(context.Background(), map[string]any{
		"db_path":         dbPath,
		"order_by_column": "data_source",
		"order_by_direction": "not-a-direction",
	})
	assert.Error(t, err)
}

func TestRunQueryTool_LimitCappedAtMaxRows(t *testing.T) {
	dbPath := seedMarketDataDB(t)
	tool := &RunQueryTool{}
	out, _, err := tool.Execute(context.Background(), map[string]any{
		"db_path": dbPath,
		"limit":   float64(999999),
	})
	require.NoError(t, err)
	meta := out.(map[string]any)["metadata"].(map[string]any)
	assert.Equal(t, 3, meta["row_count"])
}

func TestRunQueryTool_CustomRequiresConditions(t *testing.T) {
	dbPath := seedMarketDataDB(t)
	tool := &RunQueryTool{}
	_, _, err := tool.Execute(context.Background(), map[string]any{
		"db_path":  dbPath,
		"template": "custom",
	})
	assert.Error(t, err)
}
