// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
)

// DefaultRetrieveK is the candidate pool size when the caller passes k <= 0.
const DefaultRetrieveK = 8

// RetrieveUseCase runs the two-stage retrieval pipeline: dense candidate
// search against the vector index, then one batched cross-encoder pass
// that decides the final ordering.
type RetrieveUseCase struct {
	index    ports.VectorIndex
	reranker ports.Reranker
	log      *slog.Logger
}

// NewRetrieveUseCase creates a RetrieveUseCase with injected dependencies.
func NewRetrieveUseCase(index ports.VectorIndex, reranker ports.Reranker, log *slog.Logger) *RetrieveUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &RetrieveUseCase{
		index:    index,
		reranker: reranker,
		log:      log,
	}
}

// Retrieve returns up to k results ordered by rerank score descending.
// An empty result with a nil error means no candidates matched; a non-nil
// error means a pipeline stage failed and the caller can tell the two
// apart. Truncating to a smaller prompt-sized top-N is the caller's job.
func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]entities.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultRetrieveK
	}

	matches, err := uc.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(matches) == 0 {
		uc.log.Warn("no documents found for query", "query", query)
		return nil, nil
	}

	// One batched call, candidate order preserved so scores align by position.
	passages := make([]string, len(matches))
	for i, m := range matches {
		passages[i] = m.Chunk.Text
	}
	scores, err := uc.reranker.ScoreBatch(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("reranking candidates: %w", err)
	}
	if len(scores) != len(matches) {
		return nil, fmt.Errorf("reranking candidates: got %d scores for %d passages", len(scores), len(matches))
	}

	results := make([]entities.RetrievalResult, len(matches))
	for i, m := range matches {
		results[i] = entities.RetrievalResult{
			Text:        m.Chunk.Text,
			Metadata:    m.Chunk.Metadata,
			Similarity:  m.Similarity,
			RerankScore: scores[i],
		}
	}

	// Stable: candidates arrive similarity-descending, so rerank ties
	// keep their similarity rank.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})

	uc.log.Info("retrieved documents", "query", query, "candidates", len(results))
	return results, nil
}
