package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// Request is a single-turn completion: one user message and an output cap.
type Request struct {
	Model           string
	Prompt          string
	MaxOutputTokens int
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Completion struct {
	Text     string
	Model    string
	Provider string
	Usage    Usage
}

// Completer performs one completion call. Implementations do not retry.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	return f(ctx, req)
}

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case Anthropic:
		return "claude-3-5-haiku-latest"
	default:
		return "gpt-4-turbo"
	}
}

// APIKeyEnv names the environment variable holding the key for provider.
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case Anthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// New builds the Completer named by s.Provider ("" means openai).
func New(s Settings) (Completer, error) {
	if s.APIKey == "" {
		return nil, errors.New("provider: api key is empty")
	}
	switch strings.ToLower(s.Provider) {
	case "", OpenAI:
		return NewOpenAICompleter(s.APIKey, s.BaseURL), nil
	case Anthropic:
		return NewAnthropicCompleter(s.APIKey, s.BaseURL), nil
	default:
		return nil, fmt.Errorf("provider: unknown provider %q (valid: openai, anthropic)", s.Provider)
	}
}
