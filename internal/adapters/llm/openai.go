// Package llm - openai.go implements ports.LLMService over the OpenAI
// chat completions API.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements ports.LLMService using the OpenAI API.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter creates an OpenAI chat adapter.
func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Generate produces a completion for the prompt.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
