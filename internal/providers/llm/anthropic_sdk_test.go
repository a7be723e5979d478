package llm

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMessageCreator struct {
	msg *sdk.Message
	err error
}

func (m *mockMessageCreator) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	return m.msg, m.err
}

func TestAnthropicSDKClient_GeneratePlan(t *testing.T) {
	mock := &mockMessageCreator{msg: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: `[{"id":"t1"}]`}},
	}}
	c := &AnthropicSDKClient{msg: mock, model: "claude-3-5-sonnet-latest", maxTokens: 1024}

	plan, err := c.GeneratePlan(context.Background(), "decompose this query")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"t1"}]`, plan)
}

func TestAnthropicSDKClient_Verify(t *testing.T) {
	mock := &mockMessageCreator{msg: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "looks consistent"}},
	}}
	c := &AnthropicSDKClient{msg: mock, model: "claude-3-5-sonnet-latest", maxTokens: 1024}

	ok, detail, err := c.Verify(context.Background(), "query", "answer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "looks consistent", detail)
}

func TestAnthropicSDKClient_NoTextContentIsError(t *testing.T) {
	mock := &mockMessageCreator{msg: &sdk.Message{}}
	c := &AnthropicSDKClient{msg: mock, model: "claude-3-5-sonnet-latest", maxTokens: 1024}

	_, err := c.GenerateText(context.Background(), "hello")
	assert.Error(t, err)
}
