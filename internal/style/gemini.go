package style

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Generator sends an image and an instruction to a vision model and returns
// the raw reply text.
type Generator interface {
	Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// GeminiGenerator is the Gemini API Generator.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiGenerator creates a Gemini client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiGenerator{client: client, model: model, logger: logger}, nil
}

// Generate implements Generator. Sampling is near-greedy so repeated
// analyses of one thumbnail agree.
func (g *GeminiGenerator) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	temperature := float32(0.1)
	topK := float32(1)
	topP := float32(1)

	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		TopK:             &topK,
		TopP:             &topP,
		MaxOutputTokens:  500,
		ResponseMIMEType: "application/json",
	}

	g.logger.Debug("Generating style analysis",
		zap.String("model", g.model),
		zap.String("mime_type", mimeType),
		zap.Int("image_bytes", len(image)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
				{Text: prompt},
			},
		},
	}, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
