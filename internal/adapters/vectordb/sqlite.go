// Package vectordb provides vector index adapters.
// Clean Architecture: Adapters implementing ports.VectorIndex.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
)

// SQLiteIndex implements ports.VectorIndex with SQLite-backed
// persistence, keyed by collection name so several collections can share
// one database file. The index owns the embedder: chunks are embedded on
// Add and queries on Search, so both sides share one embedding space.
// Similarity is brute-force cosine over the collection.
type SQLiteIndex struct {
	mu         sync.RWMutex
	db         *sql.DB
	embedder   ports.Embedder
	collection string
	log        *slog.Logger
}

// NewSQLiteIndex opens (or creates) the persistent index at dataPath.
// Any failure here is fatal to the caller: the index never degrades to a
// silent no-op.
func NewSQLiteIndex(dataPath, collection string, embedder ports.Embedder, log *slog.Logger) (*SQLiteIndex, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if collection == "" {
		collection = "docs"
	}
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "vectors.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &SQLiteIndex{
		db:         db,
		embedder:   embedder,
		collection: collection,
		log:        log,
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	log.Info("vector index ready", "path", dbPath, "collection", collection)
	return idx, nil
}

func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_collection ON records(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add embeds the chunks in one batch and persists them inside a single
// transaction. Records are durable when Add returns.
func (s *SQLiteIndex) Add(ctx context.Context, chunks []entities.Chunk) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (id, collection, text, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		metaJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		embJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		_, err = stmt.ExecContext(ctx, uuid.NewString(), s.collection, chunk.Text, metaJSON, embJSON)
		if err != nil {
			return fmt.Errorf("inserting record: %w", err)
		}
	}

	return tx.Commit()
}

// Search embeds the query and returns up to k records ordered by
// descending cosine similarity. An empty collection yields an empty
// slice, not an error.
func (s *SQLiteIndex) Search(ctx context.Context, query string, k int) ([]entities.Match, error) {
	queryEmb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT text, metadata, embedding FROM records WHERE collection = ?
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var matches []entities.Match
	for rows.Next() {
		var text string
		var metaJSON, embJSON []byte
		if err := rows.Scan(&text, &metaJSON, &embJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		var meta entities.Metadata
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			s.log.Error("corrupt metadata record", "error", err)
			continue
		}
		var emb []float32
		if err := json.Unmarshal(embJSON, &emb); err != nil {
			s.log.Error("corrupt embedding record", "error", err)
			continue
		}

		matches = append(matches, entities.Match{
			Chunk:      entities.Chunk{Text: text, Metadata: meta},
			Similarity: cosineSimilarity(queryEmb, emb),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of records in the collection.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection = ?", s.collection,
	).Scan(&count)
	return count, err
}

// Clear deletes every record in the collection. Clearing an empty
// collection succeeds.
func (s *SQLiteIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE collection = ?", s.collection)
	return err
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
