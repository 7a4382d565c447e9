// Package reranker provides the cross-encoder reranking adapter.
// Clean Architecture: Adapter implementing ports.Reranker.
//
// It talks to a reranker service exposing the text-embeddings-inference
// style POST /rerank endpoint, which hosts a cross-encoder model
// (e.g. BAAI/bge-reranker-base) and scores query-passage pairs directly.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPReranker implements ports.Reranker over a rerank HTTP service.
type HTTPReranker struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPReranker creates a reranker client for the service at baseURL.
func NewHTTPReranker(baseURL string, log *slog.Logger) *HTTPReranker {
	if baseURL == "" {
		baseURL = "http://localhost:8082"
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPReranker{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

// rerankRequest is the service request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one scored passage; Index refers back into Texts.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// ScoreBatch scores every passage against the query in one call and
// returns scores aligned by position with passages.
func (r *HTTPReranker) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(rerankRequest{Query: query, Texts: passages})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/rerank", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling reranker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reranker returned status %d", resp.StatusCode)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) != len(passages) {
		return nil, fmt.Errorf("reranker returned %d scores for %d passages", len(results), len(passages))
	}

	// The service may answer in score order; realign by index.
	scores := make([]float64, len(passages))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("reranker returned out-of-range index %d", res.Index)
		}
		scores[res.Index] = res.Score
	}

	r.log.Debug("reranked passages", "count", len(passages))
	return scores, nil
}
