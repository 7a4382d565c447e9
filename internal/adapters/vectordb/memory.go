// Package vectordb - memory.go holds the ephemeral in-memory index used
// for tests and throwaway runs. Same contract as SQLiteIndex, nothing
// survives a restart.
package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
)

// MemoryIndex implements ports.VectorIndex in memory.
type MemoryIndex struct {
	mu       sync.RWMutex
	embedder ports.Embedder
	records  []memoryRecord
}

type memoryRecord struct {
	chunk     entities.Chunk
	embedding []float32
}

// NewMemoryIndex creates an empty in-memory index over the embedder.
func NewMemoryIndex(embedder ports.Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder}
}

// Add embeds the chunks in one batch and appends them to the index.
func (s *MemoryIndex) Add(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, chunk := range chunks {
		s.records = append(s.records, memoryRecord{chunk: chunk, embedding: embeddings[i]})
	}
	return nil
}

// Search returns up to k matches ordered by descending cosine similarity.
func (s *MemoryIndex) Search(ctx context.Context, query string, k int) ([]entities.Match, error) {
	queryEmb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []entities.Match
	for _, r := range s.records {
		matches = append(matches, entities.Match{
			Chunk:      r.chunk,
			Similarity: cosineSimilarity(queryEmb, r.embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of stored records.
func (s *MemoryIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Clear removes all records.
func (s *MemoryIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
