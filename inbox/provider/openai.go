package provider

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompleter calls the OpenAI Chat Completions API.
type OpenAICompleter struct {
	client *openai.Client
}

// NewOpenAICompleter builds a completer with SDK retries disabled. baseURL may be empty.
func NewOpenAICompleter(apiKey, baseURL string) *OpenAICompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompleter{client: &client}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (Completion, error) {
	if c.client == nil {
		return Completion{}, errors.New("OpenAICompleter: client is nil")
	}
	if req.Model == "" {
		return Completion{}, errors.New("OpenAICompleter: model is empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Completion{}, newCallError(OpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, newCallError(OpenAI, ErrEmptyResponse)
	}

	return Completion{
		Text:     resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: OpenAI,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
