package mockgen

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService talks to the OpenAI chat completions API.
type OpenAIService struct {
	client *openai.Client
	model  string
}

// NewOpenAIService creates a service for model using apiKey.
func NewOpenAIService(model, apiKey string) *OpenAIService {
	return NewOpenAIServiceWithClient(openai.NewClient(apiKey), model)
}

// NewOpenAIServiceWithClient creates a service with an explicit client (for testing).
func NewOpenAIServiceWithClient(client *openai.Client, model string) *OpenAIService {
	return &OpenAIService{client: client, model: model}
}

// Name implements TextService.
func (s *OpenAIService) Name() string {
	return ProviderOpenAI + ":" + s.model
}

// Complete implements TextService.
func (s *OpenAIService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	const op = "OpenAIService.Complete"

	chatReq := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens: req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", NewGenerationError(op, err, s.model)
	}
	if len(resp.Choices) == 0 {
		return "", NewGenerationError(op, ErrEmptyResponse, fmt.Sprintf("%s returned no choices", s.model))
	}
	return resp.Choices[0].Message.Content, nil
}
