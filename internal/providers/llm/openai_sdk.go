package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter captures the subset of *openai.Client used here, so tests
// can substitute a mock instead of reaching the network.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAISDKClient implements Client over github.com/sashabaranov/go-openai,
// the typed alternative to OpenAIClient's hand-rolled HTTP calls. Select it
// by setting LLM_PROVIDER=openai_sdk.
type OpenAISDKClient struct {
	chat  chatCompleter
	model string
}

// NewOpenAISDKClient builds a client from an API key and model identifier.
func NewOpenAISDKClient(apiKey, model string) *OpenAISDKClient {
	return &OpenAISDKClient{chat: openai.NewClient(apiKey), model: model}
}

func (c *OpenAISDKClient) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai_sdk: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAISDKClient) GeneratePlan(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *OpenAISDKClient) Verify(ctx context.Context, prompt, output string) (bool, string, error) {
	text, err := c.complete(ctx, prompt+"\nOutput to judge:\n"+output)
	if err != nil {
		return false, "", err
	}
	return text != "", text, nil
}

func (c *OpenAISDKClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *OpenAISDKClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	txt, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	return onDelta(txt)
}
