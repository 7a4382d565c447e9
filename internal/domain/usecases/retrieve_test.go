package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
)

// mockIndex implements ports.VectorIndex for testing
type mockIndex struct {
	matches  []entities.Match
	added    []entities.Chunk
	searchFn func(query string, k int) ([]entities.Match, error)
	addFn    func(chunks []entities.Chunk) error
}

func (m *mockIndex) Add(ctx context.Context, chunks []entities.Chunk) error {
	if m.addFn != nil {
		return m.addFn(chunks)
	}
	m.added = append(m.added, chunks...)
	return nil
}

func (m *mockIndex) Search(ctx context.Context, query string, k int) ([]entities.Match, error) {
	if m.searchFn != nil {
		return m.searchFn(query, k)
	}
	if len(m.matches) > k {
		return m.matches[:k], nil
	}
	return m.matches, nil
}

func (m *mockIndex) Count(ctx context.Context) (int, error) {
	return len(m.added) + len(m.matches), nil
}

func (m *mockIndex) Clear(ctx context.Context) error {
	m.added = nil
	m.matches = nil
	return nil
}

// mockReranker implements ports.Reranker for testing
type mockReranker struct {
	scores  []float64
	scoreFn func(query string, passages []string) ([]float64, error)
	calls   int
}

func (m *mockReranker) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	m.calls++
	if m.scoreFn != nil {
		return m.scoreFn(query, passages)
	}
	if m.scores != nil {
		return m.scores, nil
	}
	scores := make([]float64, len(passages))
	for i := range scores {
		scores[i] = 0.5
	}
	return scores, nil
}

func match(text string, sim float64) entities.Match {
	return entities.Match{
		Chunk: entities.Chunk{
			Text:     text,
			Metadata: entities.Metadata{entities.MetaSource: "doc.txt"},
		},
		Similarity: sim,
	}
}

func TestRetrieve_EmptyIndexReturnsEmpty(t *testing.T) {
	index := &mockIndex{}
	reranker := &mockReranker{}
	uc := NewRetrieveUseCase(index, reranker, nil)

	results, err := uc.Retrieve(context.Background(), "anything", 8)
	if err != nil {
		t.Fatalf("retrieve on empty index must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if reranker.calls != 0 {
		t.Error("reranker must not be called with zero candidates")
	}
}

func TestRetrieve_OrderedByRerankScoreDescending(t *testing.T) {
	index := &mockIndex{matches: []entities.Match{
		match("alpha", 0.9),
		match("bravo", 0.8),
		match("charlie", 0.7),
	}}
	// Reranker disagrees with similarity order.
	reranker := &mockReranker{scores: []float64{0.2, 0.9, 0.5}}
	uc := NewRetrieveUseCase(index, reranker, nil)

	results, err := uc.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	for i := 0; i+1 < len(results); i++ {
		if results[i].RerankScore < results[i+1].RerankScore {
			t.Errorf("results not sorted: %f before %f", results[i].RerankScore, results[i+1].RerankScore)
		}
	}
	if results[0].Text != "bravo" {
		t.Errorf("expected bravo first after reranking, got %q", results[0].Text)
	}
	// Similarity is carried but must not drive the ordering.
	if results[0].Similarity != 0.8 {
		t.Errorf("similarity lost in merge: %f", results[0].Similarity)
	}
}

func TestRetrieve_RerankerCanPromoteLowSimilarityMatch(t *testing.T) {
	index := &mockIndex{matches: []entities.Match{
		match("shipping times", 0.95),
		match("payment methods", 0.94),
		match("store hours", 0.93),
		match("our refund policy is thirty days", 0.80),
		match("contact details", 0.75),
	}}
	reranker := &mockReranker{scoreFn: func(query string, passages []string) ([]float64, error) {
		scores := make([]float64, len(passages))
		for i, p := range passages {
			if p == "our refund policy is thirty days" {
				scores[i] = 0.99
			} else {
				scores[i] = 0.1
			}
		}
		return scores, nil
	}}
	uc := NewRetrieveUseCase(index, reranker, nil)

	results, err := uc.Retrieve(context.Background(), "refunds", 5)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if results[0].Text != "our refund policy is thirty days" {
		t.Errorf("reranker should promote the refund chunk, got %q first", results[0].Text)
	}
}

func TestRetrieve_TiesKeepSimilarityRank(t *testing.T) {
	index := &mockIndex{matches: []entities.Match{
		match("first by similarity", 0.9),
		match("second by similarity", 0.8),
	}}
	reranker := &mockReranker{scores: []float64{0.5, 0.5}}
	uc := NewRetrieveUseCase(index, reranker, nil)

	results, err := uc.Retrieve(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if results[0].Text != "first by similarity" {
		t.Error("stable sort should preserve similarity order on ties")
	}
}

func TestRetrieve_BatchedRerankSingleCall(t *testing.T) {
	index := &mockIndex{matches: []entities.Match{
		match("a", 0.9), match("b", 0.8), match("c", 0.7),
	}}
	reranker := &mockReranker{}
	uc := NewRetrieveUseCase(index, reranker, nil)

	if _, err := uc.Retrieve(context.Background(), "q", 3); err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if reranker.calls != 1 {
		t.Errorf("expected one batched rerank call, got %d", reranker.calls)
	}
}

func TestRetrieve_SearchErrorPropagates(t *testing.T) {
	index := &mockIndex{searchFn: func(string, int) ([]entities.Match, error) {
		return nil, errors.New("index unreachable")
	}}
	uc := NewRetrieveUseCase(index, &mockReranker{}, nil)

	if _, err := uc.Retrieve(context.Background(), "q", 3); err == nil {
		t.Error("search failure must surface, not become an empty result")
	}
}

func TestRetrieve_RerankErrorPropagates(t *testing.T) {
	index := &mockIndex{matches: []entities.Match{match("a", 0.9)}}
	reranker := &mockReranker{scoreFn: func(string, []string) ([]float64, error) {
		return nil, errors.New("model inference failed")
	}}
	uc := NewRetrieveUseCase(index, reranker, nil)

	if _, err := uc.Retrieve(context.Background(), "q", 3); err == nil {
		t.Error("rerank failure must surface, not become an empty result")
	}
}

func TestRetrieve_MisalignedScoresRejected(t *testing.T) {
	index := &mockIndex{matches: []entities.Match{match("a", 0.9), match("b", 0.8)}}
	reranker := &mockReranker{scores: []float64{0.5}}
	uc := NewRetrieveUseCase(index, reranker, nil)

	if _, err := uc.Retrieve(context.Background(), "q", 2); err == nil {
		t.Error("score/candidate count mismatch must be an error")
	}
}

func TestRetrieve_DefaultK(t *testing.T) {
	var gotK int
	index := &mockIndex{searchFn: func(q string, k int) ([]entities.Match, error) {
		gotK = k
		return nil, nil
	}}
	uc := NewRetrieveUseCase(index, &mockReranker{}, nil)

	if _, err := uc.Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if gotK != DefaultRetrieveK {
		t.Errorf("expected default k %d, got %d", DefaultRetrieveK, gotK)
	}
}
