package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const visionMaxTokens = 3000

// NewChatModel builds a chat client against an OpenAI-compatible endpoint.
func NewChatModel(apiKey, baseURL, model string) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
}

// Generate runs a single-prompt completion with deterministic sampling.
func Generate(ctx context.Context, model llms.Model, prompt string) (string, error) {
	reply, err := llms.GenerateFromSinglePrompt(ctx, model, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// AnalyzeImage sends a multimodal prompt with the page image attached as a
// data URL and returns the textual analysis.
func AnalyzeImage(ctx context.Context, model llms.Model, prompt, imageDataURL string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.ImageURLPart(imageDataURL),
			},
		},
	}
	resp, err := model.GenerateContent(ctx, content, llms.WithMaxTokens(visionMaxTokens))
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("model returned an empty analysis")
	}
	return resp.Choices[0].Content, nil
}
