package llm

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChatCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
}

func (m *mockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return m.resp, m.err
}

func TestOpenAISDKClient_GeneratePlan(t *testing.T) {
	mock := &mockChatCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: `[{"id":"t1"}]`}}},
	}}
	c := &OpenAISDKClient{chat: mock, model: "gpt-4o-mini"}

	plan, err := c.GeneratePlan(context.Background(), "decompose this query")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"t1"}]`, plan)
}

func TestOpenAISDKClient_Verify(t *testing.T) {
	mock := &mockChatCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "looks consistent"}}},
	}}
	c := &OpenAISDKClient{chat: mock, model: "gpt-4o-mini"}

	ok, detail, err := c.Verify(context.Background(), "query", "answer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "looks consistent", detail)
}

func TestOpenAISDKClient_NoChoicesIsError(t *testing.T) {
	mock := &mockChatCompleter{resp: openai.ChatCompletionResponse{}}
	c := &OpenAISDKClient{chat: mock, model: "gpt-4o-mini"}

	_, err := c.GenerateText(context.Background(), "hello")
	assert.Error(t, err)
}
