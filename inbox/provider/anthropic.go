package provider

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// Anthropic requires an explicit cap on every request.
const anthropicDefaultMaxTokens = 1024

// AnthropicCompleter calls the Anthropic Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
}

func NewAnthropicCompleter(apiKey, baseURL string) *AnthropicCompleter {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicCompleter{client: anthropic.NewClient(apiKey, opts...)}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (Completion, error) {
	if c.client == nil {
		return Completion{}, errors.New("AnthropicCompleter: client is nil")
	}
	if req.Model == "" {
		return Completion{}, errors.New("AnthropicCompleter: model is empty")
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(req.Model),
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(req.Prompt)},
		}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return Completion{}, newCallError(Anthropic, err)
	}

	var text strings.Builder
	found := false
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
			found = true
		}
	}
	if !found {
		return Completion{}, newCallError(Anthropic, ErrEmptyResponse)
	}

	return Completion{
		Text:     text.String(),
		Model:    string(resp.Model),
		Provider: Anthropic,
		Usage: Usage{
			InputTokens:  int64(resp.Usage.InputTokens),
			OutputTokens: int64(resp.Usage.OutputTokens),
		},
	}, nil
}
