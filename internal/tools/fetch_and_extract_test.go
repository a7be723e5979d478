package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLMClient struct {
	text string
}

func (f *fakeLLMClient) GeneratePlan(ctx context.Context, prompt string) (string, error) { return "", nil }
func (f *fakeLLMClient) Verify(ctx context.Context, prompt, output string) (bool, string, error) {
	return true, "", nil
}
func (f *fakeLLMClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.text, nil
}
func (f *fakeLLMClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	return onDelta(f.text)
}

func TestFetchAndExtractTool_FetchesConvertsAndSummarizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Hello world</p></body></html>"))
	}))
	defer srv.Close()

	tool := NewFetchAndExtractTool(&fakeLLMClient{text: "a short summary"})
	out, _, err := tool.Execute(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "a short summary", result["summary"])
	assert.Greater(t, result["extracted_chars"], 0)
}

func TestFetchAndExtractTool_TruncatesSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>content</p>"))
	}))
	defer srv.Close()

	tool := NewFetchAndExtractTool(&fakeLLMClient{text: "0123456789"})
	out, _, err := tool.Execute(context.Background(), map[string]any{
		"url":               srv.URL,
		"max_summary_chars": float64(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "0123", out.(map[string]any)["summary"])
}

func TestFetchAndExtractTool_MissingURL(t *testing.T) {
	tool := NewFetchAndExtractTool(&fakeLLMClient{})
	_, _, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}
