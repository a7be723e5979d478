package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aj002fr/depgraph/internal/providers/llm"
)

// IngestDocumentTool composes file_extract, summarize_chunked, and
// llm_answer into one analytics_agent call: turn an uploaded file (PDF,
// HTML, or plain text) into extracted text, a chunked summary, and,
// when a question is supplied, an answer grounded on that text.
// Grounded on the document-ingestion needs implied by the pack's
// PDF/HTML tool pair; the original has no direct counterpart, so this
// agent's shape follows web_agent's composition pattern instead.
// Inputs:
// - data_base64: string (required) — may be a data: URL
// - filename: string (optional)
// - content_type: string (optional)
// - question: string (optional) — if set, the answer is grounded on the extracted text
type IngestDocumentTool struct {
	Extractor  *FileExtractTool
	Summarizer *SummarizeChunkedTool
	Answerer   *LLMAnswerTool
}

func NewIngestDocumentTool(client llm.Client) *IngestDocumentTool {
	return &IngestDocumentTool{
		Extractor:  &FileExtractTool{},
		Summarizer: &SummarizeChunkedTool{Client: client},
		Answerer:   &LLMAnswerTool{Client: client},
	}
}

func (t *IngestDocumentTool) Name() string { return "ingest_document" }

func (t *IngestDocumentTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	textOut, extractLogs, err := t.Extractor.Execute(ctx, map[string]any{
		"data_base64":  inputs["data_base64"],
		"filename":     inputs["filename"],
		"content_type": inputs["content_type"],
	})
	if err != nil {
		return nil, "", fmt.Errorf("extract: %w", err)
	}
	text, _ := textOut.(string)
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("extract: no text content in document")
	}

	summaryOut, _, err := t.Summarizer.Execute(ctx, map[string]any{"text": text})
	if err != nil {
		return nil, "", fmt.Errorf("summarize: %w", err)
	}
	summary, _ := summaryOut.(string)

	data := map[string]any{
		"text_excerpt": truncate(text, 2000),
		"summary":      summary,
	}

	if question, _ := inputs["question"].(string); strings.TrimSpace(question) != "" {
		answerOut, _, err := t.Answerer.Execute(ctx, map[string]any{
			"text":         question,
			"instructions": "Answer the question using only the following document text:\n\n" + text,
		})
		if err != nil {
			return nil, "", fmt.Errorf("answer: %w", err)
		}
		answer, _ := answerOut.(string)
		data["answer"] = answer
	}

	metadata := map[string]any{
		"source_chars": len(text),
		"extract_logs": extractLogs,
	}
	logs := fmt.Sprintf("%s chars=%d", extractLogs, len(text))
	return map[string]any{"data": data, "metadata": metadata}, logs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
