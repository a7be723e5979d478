package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messageCreator captures the subset of *sdk.MessageService used here, so
// tests can substitute a mock instead of reaching the network.
type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicSDKClient implements Client over github.com/anthropics/anthropic-sdk-go's
// Messages API, the typed alternative to AnthropicClient's hand-rolled HTTP calls.
// Select it by setting LLM_PROVIDER=anthropic_sdk.
type AnthropicSDKClient struct {
	msg       messageCreator
	model     string
	maxTokens int64
}

// NewAnthropicSDKClient builds a client from an API key and model identifier.
func NewAnthropicSDKClient(apiKey, model string) *AnthropicSDKClient {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicSDKClient{msg: &c.Messages, model: model, maxTokens: 1024}
}

func (c *AnthropicSDKClient) complete(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", err
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic_sdk: no text content in response")
}

func (c *AnthropicSDKClient) GeneratePlan(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *AnthropicSDKClient) Verify(ctx context.Context, prompt, output string) (bool, string, error) {
	text, err := c.complete(ctx, prompt+"\nOutput to judge:\n"+output)
	if err != nil {
		return false, "", err
	}
	return text != "", text, nil
}

func (c *AnthropicSDKClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *AnthropicSDKClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	txt, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	return onDelta(txt)
}
