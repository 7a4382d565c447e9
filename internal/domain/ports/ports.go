// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
)

// Embedder maps text to a fixed-length normalized float vector. The same
// instance serves document chunks at ingest and queries at retrieval so
// both sides share one embedding space.
type Embedder interface {
	// Embed generates a normalized vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, aligned by position.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores (query, passage) pairs with a cross-encoder. More
// expensive and more accurate than embedding similarity; applied to a
// small candidate set only.
type Reranker interface {
	// ScoreBatch scores every passage against the query in one call.
	// The returned scores are aligned by position with passages.
	ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error)
}

// VectorIndex stores chunk embeddings with metadata, durable per Add.
// Implementations must be safe for concurrent reads and for a read to
// proceed concurrently with an unrelated write; a search never observes
// a partially written record.
type VectorIndex interface {
	// Add embeds each chunk and persists it with its metadata.
	// Durable on return; no separate flush step.
	Add(ctx context.Context, chunks []entities.Chunk) error

	// Search embeds the query and returns up to k matches ordered by
	// descending similarity. An empty index yields an empty slice, not
	// an error.
	Search(ctx context.Context, query string, k int) ([]entities.Match, error)

	// Count reports the total number of stored records.
	Count(ctx context.Context) (int, error)

	// Clear deletes all records. Idempotent.
	Clear(ctx context.Context) error
}

// LLMService generates a grounded answer from a language model.
type LLMService interface {
	// Generate produces a completion for the prompt. Temperature and
	// maxTokens come from runtime settings, not adapter construction.
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// DocumentLoader reads one supported file format into loadable units:
// one Document per page for paginated formats, one per file otherwise.
type DocumentLoader interface {
	// Load reads the file at path. Loader-provided metadata (source,
	// page numbers) travels with each unit.
	Load(ctx context.Context, path string) ([]entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
