package llm

import (
	"context"
	"errors"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// contentGenerator captures the subset of *genai.GenerativeModel used here,
// so tests can substitute a mock instead of reaching the network.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiSDKClient implements Client over google/generative-ai-go's typed
// GenerativeModel, the alternative to GeminiHTTPClient's hand-rolled REST
// calls. Select it by setting LLM_PROVIDER=gemini_sdk.
type GeminiSDKClient struct {
	model contentGenerator
}

// NewGeminiSDKClient builds a client from an API key and model identifier.
// Returns an error if the underlying genai client fails to construct.
func NewGeminiSDKClient(ctx context.Context, apiKey, model string) (*GeminiSDKClient, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiSDKClient{model: c.GenerativeModel(model)}, nil
}

func (c *GeminiSDKClient) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	text := firstCandidateText(resp)
	if text == "" {
		return "", errors.New("gemini_sdk: no text content in response")
	}
	return text, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok && t != "" {
				return string(t)
			}
		}
	}
	return ""
}

func (c *GeminiSDKClient) GeneratePlan(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *GeminiSDKClient) Verify(ctx context.Context, prompt, output string) (bool, string, error) {
	text, err := c.complete(ctx, prompt+"\nOutput to judge:\n"+output)
	if err != nil {
		return false, "", err
	}
	return text != "", text, nil
}

func (c *GeminiSDKClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *GeminiSDKClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	txt, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	return onDelta(txt)
}
