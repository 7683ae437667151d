// Package llm implements the model invocation contract on top of the OpenAI
// chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pillguide/pillguide-api/interfaces"
	"github.com/pillguide/pillguide-api/metrics"
)

// Compile-time check to ensure OpenAIClient implements ModelClient
var _ interfaces.ModelClient = (*OpenAIClient)(nil)

// Generation settings tuned for medical accuracy: low temperature, bounded
// output length.
const (
	temperature     = 0.3
	topP            = 0.95
	maxOutputTokens = 2048
)

// OpenAIClient calls the OpenAI API for prescription analysis, explanation
// generation, and interaction checks.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed model client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Generate sends the prompt to the chat completion API and returns the raw
// assistant reply. When imageBase64 is non-empty the image is attached as a
// multimodal data-URI part so the model can read the photographed
// prescription.
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userPrompt, imageBase64 string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	userMessage := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	}

	if imageBase64 != "" {
		userMessage = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: userPrompt,
				},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:image/png;base64," + imageBase64,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMessage,
		},
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxOutputTokens,
	})
	metrics.ObserveModelCall(time.Since(start), err == nil)

	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
