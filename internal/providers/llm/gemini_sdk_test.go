package llm

import (
	"context"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockContentGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (m *mockContentGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return m.resp, m.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func TestGeminiSDKClient_GeneratePlan(t *testing.T) {
	mock := &mockContentGenerator{resp: textResponse(`[{"id":"t1"}]`)}
	c := &GeminiSDKClient{model: mock}

	plan, err := c.GeneratePlan(context.Background(), "decompose this query")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"t1"}]`, plan)
}

func TestGeminiSDKClient_Verify(t *testing.T) {
	mock := &mockContentGenerator{resp: textResponse("looks consistent")}
	c := &GeminiSDKClient{model: mock}

	ok, detail, err := c.Verify(context.Background(), "query", "answer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "looks consistent", detail)
}

func TestGeminiSDKClient_NoTextContentIsError(t *testing.T) {
	mock := &mockContentGenerator{resp: &genai.GenerateContentResponse{}}
	c := &GeminiSDKClient{model: mock}

	_, err := c.GenerateText(context.Background(), "hello")
	assert.Error(t, err)
}
