// Package agents holds the static registry of worker agents the planner
// maps subtasks onto, plus each agent's tool descriptors for the tool
// loader's allow-list.
//
// Grounded on original_source's orchestrator_agent/config.py
// AGENT_CAPABILITIES dict (keywords, description, input_params per agent);
// web_agent and analytics_agent have no original_source counterpart and
// are teacher-domain additions wiring the teacher's existing
// http_get/html_to_text/extract_links/summarize and pdf_extract/
// file_extract tool pairs behind the same agent/tool contract.
package agents

import "github.com/aj002fr/depgraph/internal/models"

// Descriptors is the process-wide, immutable set of registered agents.
var Descriptors = []models.AgentDescriptor{
	{
		AgentID: "market_data_agent",
		KeywordHints: []string{
			"sql", "market data", "database", "query", "price",
			"bid", "ask", "symbol", "futures", "options",
		},
		RequiredInputs:   []string{"template"},
		SupportedTools:   []string{"run_query"},
		HumanDescription: "Queries the market_data table for treasury futures and options: historical or live prices, volumes, bid/ask.",
	},
	{
		AgentID: "polymarket_agent",
		KeywordHints: []string{
			"polymarket", "prediction market", "prediction", "forecast",
			"probability", "odds", "betting", "historical", "opinion",
			"comparison", "trend", "analysis", "sentiment", "change", "evolution",
		},
		RequiredInputs:   []string{"query"},
		SupportedTools:   []string{"search_polymarket_with_history"},
		HumanDescription: "Searches Polymarket prediction markets and compares current quotes against a historical reference date.",
	},
	{
		AgentID: "web_agent",
		KeywordHints: []string{
			"website", "webpage", "url", "link", "article", "page",
			"fetch", "scrape", "web",
		},
		RequiredInputs:   []string{"url"},
		SupportedTools:   []string{"fetch_and_extract"},
		HumanDescription: "Fetches a web page and extracts a readable summary from its content.",
	},
	{
		AgentID: "analytics_agent",
		KeywordHints: []string{
			"document", "pdf", "file", "upload", "report", "attachment",
			"ingest", "extract text",
		},
		RequiredInputs:   []string{"data_base64"},
		SupportedTools:   []string{"ingest_document"},
		HumanDescription: "Extracts and summarizes text from an uploaded document (PDF, HTML, or plain text), optionally answering a question grounded on it.",
	},
}

// ToolDescriptors is the process-wide set of tool descriptors, one per
// SupportedTools entry across Descriptors, used to seed the tool loader.
var ToolDescriptors = []models.ToolDescriptor{
	{
		ToolID:      "run_query",
		OwningAgent: "market_data_agent",
		SideEffect:  models.SideEffectReads,
		InputSchema: []models.InputField{
			{Name: "db_path", Type: models.FieldString, Required: false},
			{Name: "template", Type: models.FieldString, Required: false},
			{Name: "columns", Type: models.FieldList, ElemType: models.FieldString, Required: false},
			{Name: "params", Type: models.FieldMap, Required: false},
			{Name: "limit", Type: models.FieldInteger, Required: false},
			{Name: "order_by_column", Type: models.FieldString, Required: false},
			{Name: "order_by_direction", Type: models.FieldString, Required: false},
		},
	},
	{
		ToolID:      "search_polymarket_with_history",
		OwningAgent: "polymarket_agent",
		SideEffect:  models.SideEffectReads,
		InputSchema: []models.InputField{
			{Name: "query", Type: models.FieldString, Required: true},
			{Name: "limit", Type: models.FieldInteger, Required: false},
			{Name: "historical_date", Type: models.FieldString, Required: false},
			{Name: "days_back", Type: models.FieldInteger, Required: false},
		},
	},
	{
		ToolID:      "fetch_and_extract",
		OwningAgent: "web_agent",
		SideEffect:  models.SideEffectReads,
		InputSchema: []models.InputField{
			{Name: "url", Type: models.FieldString, Required: true},
			{Name: "max_summary_chars", Type: models.FieldInteger, Required: false},
			{Name: "max_links", Type: models.FieldInteger, Required: false},
		},
	},
	{
		ToolID:      "ingest_document",
		OwningAgent: "analytics_agent",
		SideEffect:  models.SideEffectReads,
		InputSchema: []models.InputField{
			{Name: "data_base64", Type: models.FieldString, Required: true},
			{Name: "filename", Type: models.FieldString, Required: false},
			{Name: "content_type", Type: models.FieldString, Required: false},
			{Name: "question", Type: models.FieldString, Required: false},
		},
	},
}

// AllowList maps each agent to the tools it may invoke, the shape the
// tool loader's Authorize needs.
func AllowList() map[string][]string {
	out := make(map[string][]string, len(Descriptors))
	for _, d := range Descriptors {
		out[d.AgentID] = append([]string{}, d.SupportedTools...)
	}
	return out
}
