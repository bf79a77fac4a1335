package mockgen

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiService talks to the Gemini API.
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService creates a Gemini client for model using apiKey.
func NewGeminiService(ctx context.Context, model, apiKey string) (*GeminiService, error) {
	const op = "NewGeminiService"

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, NewGenerationError(op, err, "failed to create Gemini client")
	}
	return &GeminiService{client: client, model: model}, nil
}

// Name implements TextService.
func (s *GeminiService) Name() string {
	return ProviderGemini + ":" + s.model
}

// Complete implements TextService.
func (s *GeminiService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	const op = "GeminiService.Complete"

	model := s.client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", NewGenerationError(op, err, s.model)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", NewGenerationError(op, ErrEmptyResponse, s.model)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", NewGenerationError(op, ErrEmptyResponse, s.model)
	}
	return sb.String(), nil
}

// Close releases the underlying client.
func (s *GeminiService) Close() error {
	return s.client.Close()
}
