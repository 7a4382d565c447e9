// Package embedding - openai.go implements ports.Embedder over the
// OpenAI embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements ports.Embedder using the OpenAI API.
// Batches go up in a single API call.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter creates an OpenAI embedding adapter. The API key is
// supplied by the caller (assembled in config, not read from the
// environment here).
func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Embed generates a normalized embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts in one API call, aligned by position.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(a.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		l2normalize(v)
		embeddings[d.Index] = v
	}
	return embeddings, nil
}
