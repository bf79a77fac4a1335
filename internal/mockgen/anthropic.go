package mockgen

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicService talks to the Anthropic Messages API.
type AnthropicService struct {
	client anthropic.Client
	model  string
}

// NewAnthropicService creates a service for model using apiKey.
func NewAnthropicService(model, apiKey string, opts ...option.RequestOption) *AnthropicService {
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicService{
		client: anthropic.NewClient(options...),
		model:  model,
	}
}

// Name implements TextService.
func (s *AnthropicService) Name() string {
	return ProviderAnthropic + ":" + s.model
}

// Complete implements TextService. The Messages API has no JSON mode; the
// system prompt alone asks for JSON and the parser tolerates wrappers.
func (s *AnthropicService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	const op = "AnthropicService.Complete"

	maxTokens := int64(defaultAnthropicMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	msg, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", NewGenerationError(op, err, s.model)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", NewGenerationError(op, ErrEmptyResponse, s.model)
	}
	return sb.String(), nil
}
