package mockgen

import (
	"context"
	"strings"
)

// CompletionRequest is one system+user exchange with a generative text service.
type CompletionRequest struct {
	System      string
	Prompt      string
	JSON        bool // Ask the provider for a bare JSON object
	Temperature float32
	MaxTokens   int
}

// TextService sends a prompt to a generative text provider and returns the raw reply.
type TextService interface {
	// Name identifies the provider and model in logs.
	Name() string

	// Complete returns the provider's text answer for req.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Provider names, inferred from the model identifier.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ProviderForModel infers the provider from a model name.
// "gemini-*" selects Gemini, "claude-*" selects Anthropic, everything else OpenAI.
func ProviderForModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic
	default:
		return ProviderOpenAI
	}
}

// NewTextService creates the provider client for model. apiKey must already be
// resolved; an unusable key yields ErrMissingCredential without building a client.
func NewTextService(ctx context.Context, model, apiKey string) (TextService, error) {
	const op = "NewTextService"

	if IsPlaceholderCredential(apiKey) {
		return nil, NewGenerationError(op, ErrMissingCredential, model)
	}

	switch ProviderForModel(model) {
	case ProviderGemini:
		return NewGeminiService(ctx, model, apiKey)
	case ProviderAnthropic:
		return NewAnthropicService(model, apiKey), nil
	default:
		return NewOpenAIService(model, apiKey), nil
	}
}
