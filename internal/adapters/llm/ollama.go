// Package llm provides language-model adapters.
// Clean Architecture: Adapters implementing ports.LLMService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SystemPrompt restricts answers to the supplied context. Shared by both
// provider adapters so switching providers doesn't change behavior.
const SystemPrompt = "You are a helpful assistant. Use ONLY the provided context to answer. " +
	"If the context is missing the information, say what's missing and ask one targeted question. " +
	"Keep answers short and do not repeat the question."

// OllamaLLMAdapter implements ports.LLMService using the Ollama chat API.
type OllamaLLMAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaLLMAdapter creates a new Ollama LLM adapter.
func NewOllamaLLMAdapter(baseURL, model string) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaLLMAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ollamaChatMessage is one turn in the Ollama chat API.
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatRequest is the Ollama chat API request.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaChatOptions   `json:"options"`
}

// ollamaChatOptions carries generation knobs.
type ollamaChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// ollamaChatResponse is the Ollama chat API response.
type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// Generate produces a completion for the prompt.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := ollamaChatRequest{
		Model: a.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: false,
		Options: ollamaChatOptions{
			Temperature: temperature,
			NumPredict:  maxTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return chatResp.Message.Content, nil
}
