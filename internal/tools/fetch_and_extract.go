package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aj002fr/depgraph/internal/providers/llm"
)

// FetchAndExtractTool composes http_get, html_to_text, extract_links, and
// summarize into one web_agent call: fetch a page, strip markup, pull out
// its links, then summarize the remaining text. Grounded on
// eventdata_puller_agent/consumer_agent pulling external HTML/event feeds
// and following their outbound links. Inputs:
// - url: string (required)
// - max_summary_chars: number (optional; truncates the summary)
// - max_links: number (optional; default 50, passed through to extract_links)
type FetchAndExtractTool struct {
	Getter     *HTTPGetTool
	Converter  *HTMLToTextTool
	Linker     *ExtractLinksTool
	Summarizer *SummarizeTool
}

func NewFetchAndExtractTool(client llm.Client) *FetchAndExtractTool {
	return &FetchAndExtractTool{
		Getter:     &HTTPGetTool{},
		Converter:  &HTMLToTextTool{},
		Linker:     &ExtractLinksTool{},
		Summarizer: &SummarizeTool{Client: client},
	}
}

func (t *FetchAndExtractTool) Name() string { return "fetch_and_extract" }

func (t *FetchAndExtractTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	url, _ := inputs["url"].(string)
	if url == "" {
		return nil, "", fmt.Errorf("missing url")
	}

	rawOut, getLogs, err := t.Getter.Execute(ctx, map[string]any{"url": url})
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	html, _ := rawOut.(string)

	text, _, err := t.Converter.Execute(ctx, map[string]any{"html": html})
	if err != nil {
		return nil, "", fmt.Errorf("extract: %w", err)
	}
	plainText, _ := text.(string)

	linksOut, _, err := t.Linker.Execute(ctx, map[string]any{"html": html, "base_url": url, "max": inputs["max_links"]})
	if err != nil {
		return nil, "", fmt.Errorf("links: %w", err)
	}
	links, _ := linksOut.([]map[string]string)

	if strings.TrimSpace(plainText) == "" {
		return map[string]any{"url": url, "summary": "", "extracted_chars": 0, "links": links}, getLogs, nil
	}

	summaryOut, _, err := t.Summarizer.Execute(ctx, map[string]any{"text": plainText})
	if err != nil {
		return nil, "", fmt.Errorf("summarize: %w", err)
	}
	summary, _ := summaryOut.(string)

	if maxChars, ok := inputs["max_summary_chars"]; ok {
		if n, err := toInt(maxChars); err == nil && n > 0 && len(summary) > n {
			summary = summary[:n]
		}
	}

	logs := fmt.Sprintf("%s extracted_chars=%d links=%d", getLogs, len(plainText), len(links))
	return map[string]any{
		"url":             url,
		"summary":         summary,
		"extracted_chars": len(plainText),
		"links":           links,
	}, logs, nil
}
