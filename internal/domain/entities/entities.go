// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Metadata keys attached to chunks during ingestion.
const (
	MetaSource       = "source"
	MetaOriginalFile = "original_file"
	MetaPageNumber   = "page_number"
	MetaTotalPages   = "total_pages"
	MetaChunkSize    = "chunk_size"
	MetaOverlap      = "overlap"
	MetaIngestedAt   = "ingested_at"
)

// Metadata carries per-chunk provenance (source path, page number, chunk
// parameters, ingestion timestamp). Values are JSON-compatible scalars.
type Metadata map[string]any

// Source returns the originating file reference, or "" if absent.
func (m Metadata) Source() string {
	if m == nil {
		return ""
	}
	s, _ := m[MetaSource].(string)
	return s
}

// PageNumber returns the 1-based page number for paginated sources.
// ok is false for unpaginated sources. JSON round-trips store numbers
// as float64, so both int and float64 are accepted.
func (m Metadata) PageNumber() (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[MetaPageNumber].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Clone returns a shallow copy so ingestion can extend loader metadata
// without mutating the loader's map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+6)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document represents one loadable unit of a source file: a page for
// paginated formats, the whole file otherwise.
type Document struct {
	Content  string
	Metadata Metadata
}

// Chunk is a bounded span of document text stored as one retrievable unit.
// Every stored chunk has non-blank text and a resolvable metadata source.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// Match pairs a chunk with its similarity score from the vector index.
// Similarity is the candidate-selection score, not the final ordering key.
type Match struct {
	Chunk      Chunk
	Similarity float64
}

// RetrievalResult is a reranked candidate. Ephemeral - constructed per
// query, never persisted. RerankScore determines final ordering.
type RetrievalResult struct {
	Text        string
	Metadata    Metadata
	Similarity  float64
	RerankScore float64
}

// Citation points a chat answer back at a retrieved chunk.
type Citation struct {
	Index       int     `json:"index"`
	Source      string  `json:"source"`
	Page        int     `json:"page,omitempty"`
	Score       float64 `json:"score"`
	TextPreview string  `json:"text_preview"`
}

// ChatRequest is a user question for the RAG chat flow.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the generated answer with its supporting citations.
type ChatResponse struct {
	Answer       string     `json:"answer"`
	Citations    []Citation `json:"citations"`
	ContextUsed  int        `json:"context_used"`
	ResponseTime float64    `json:"response_time"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Files      int
	Skipped    int
	Chunks     int
	StartedAt  time.Time
	FinishedAt time.Time
}
