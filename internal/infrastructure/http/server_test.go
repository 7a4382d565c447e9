package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
	"github.com/tahahaqqani/rag-agent/internal/domain/usecases"
	"github.com/tahahaqqani/rag-agent/internal/settings"
)

// stubIndex implements ports.VectorIndex without a real database.
type stubIndex struct {
	matches []entities.Match
	chunks  []entities.Chunk
	cleared bool
}

func (s *stubIndex) Add(ctx context.Context, chunks []entities.Chunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *stubIndex) Search(ctx context.Context, query string, k int) ([]entities.Match, error) {
	if len(s.matches) > k {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

func (s *stubIndex) Count(ctx context.Context) (int, error) {
	return len(s.chunks) + len(s.matches), nil
}

func (s *stubIndex) Clear(ctx context.Context) error {
	s.cleared = true
	s.chunks = nil
	s.matches = nil
	return nil
}

type stubReranker struct{}

func (stubReranker) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	scores := make([]float64, len(passages))
	for i := range scores {
		scores[i] = 0.5
	}
	return scores, nil
}

type stubLLM struct {
	answer string
}

func (s stubLLM) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return s.answer, nil
}

type stubLoader struct{}

func (stubLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []entities.Document{{
		Content:  string(data),
		Metadata: entities.Metadata{entities.MetaSource: path},
	}}, nil
}

func (stubLoader) SupportedExtensions() []string {
	return []string{".txt"}
}

func newServer(t *testing.T, index *stubIndex, answer string) *Server {
	t.Helper()
	retrieveUC := usecases.NewRetrieveUseCase(index, stubReranker{}, nil)
	chatUC := usecases.NewChatUseCase(retrieveUC, stubLLM{answer: answer}, 5, 3, nil)
	ingestUC := usecases.NewIngestUseCase(index, []ports.DocumentLoader{stubLoader{}}, nil)
	store := settings.NewStore(filepath.Join(t.TempDir(), "config.json"), nil)
	info := Info{
		Provider:       "ollama",
		LLMModel:       "llama3.2",
		EmbeddingModel: "nomic-embed-text",
		Collection:     "docs",
		ChunkSize:      600,
		Overlap:        80,
	}
	return NewServer(chatUC, ingestUC, index, store, info, ":0", nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("unexpected status: %v", body["status"])
	}
	if body["model_provider"] != "ollama" {
		t.Errorf("unexpected provider: %v", body["model_provider"])
	}
}

func TestChatEndpoint_ReturnsAnswer(t *testing.T) {
	index := &stubIndex{matches: []entities.Match{{
		Chunk: entities.Chunk{
			Text:     "refund policy is thirty days",
			Metadata: entities.Metadata{entities.MetaSource: "policy.txt"},
		},
		Similarity: 0.9,
	}}}
	srv := newServer(t, index, "Thirty days.")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", map[string]string{"message": "refunds?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["answer"] != "Thirty days." {
		t.Errorf("unexpected answer: %v", body["answer"])
	}
	citations, ok := body["citations"].([]any)
	if !ok || len(citations) != 1 {
		t.Errorf("expected 1 citation, got %v", body["citations"])
	}
}

func TestChatEndpoint_EmptyMessageRejected(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", map[string]string{"message": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChatEndpoint_NoContextStillSucceeds(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "should not be used")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", map[string]string{"message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	answer, _ := body["answer"].(string)
	if !strings.Contains(answer, "don't have enough information") {
		t.Errorf("expected insufficient-context answer, got %q", answer)
	}
}

func TestIngestEndpoint_HappyPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(strings.Repeat("text ", 200)), 0o644); err != nil {
		t.Fatal(err)
	}
	index := &stubIndex{}
	srv := newServer(t, index, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", map[string]any{"input_path": dir})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("expected success, got %v", body)
	}
	if n, _ := body["chunks_created"].(float64); n < 1 {
		t.Errorf("expected chunks, got %v", body["chunks_created"])
	}
	if len(index.chunks) == 0 {
		t.Error("chunks not stored in index")
	}
}

func TestIngestEndpoint_MissingPathRejected(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngestEndpoint_OmittedOverlapUsesConfiguredDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(strings.Repeat("text ", 200)), 0o644); err != nil {
		t.Fatal(err)
	}
	index := &stubIndex{}
	srv := newServer(t, index, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", map[string]any{"input_path": dir})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(index.chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	for _, chunk := range index.chunks {
		if got := chunk.Metadata[entities.MetaOverlap]; got != 80 {
			t.Fatalf("omitted overlap should use the configured default, chunk tagged overlap=%v", got)
		}
		if got := chunk.Metadata[entities.MetaChunkSize]; got != 600 {
			t.Fatalf("omitted chunk_size should use the configured default, chunk tagged chunk_size=%v", got)
		}
	}
}

func TestIngestEndpoint_ExplicitZeroOverlapKept(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(strings.Repeat("text ", 200)), 0o644); err != nil {
		t.Fatal(err)
	}
	index := &stubIndex{}
	srv := newServer(t, index, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", map[string]any{
		"input_path": dir,
		"overlap":    0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(index.chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	for _, chunk := range index.chunks {
		if got := chunk.Metadata[entities.MetaOverlap]; got != 0 {
			t.Fatalf("explicit zero overlap must be honored, chunk tagged overlap=%v", got)
		}
	}
}

func TestIngestEndpoint_NonexistentPathRejected(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", map[string]any{
		"input_path": filepath.Join(t.TempDir(), "missing"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestIngestEndpoint_InvalidChunkConfigRejected(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", map[string]any{
		"input_path": t.TempDir(),
		"chunk_size": 100,
		"overlap":    100,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCollectionInfoAndClear(t *testing.T) {
	index := &stubIndex{chunks: []entities.Chunk{{Text: "a"}, {Text: "b"}}}
	srv := newServer(t, index, "")
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/collection/info", nil)
	body := decodeBody(t, rec)
	if n, _ := body["document_count"].(float64); n != 2 {
		t.Errorf("expected count 2, got %v", body["document_count"])
	}
	if body["collection_name"] != "docs" {
		t.Errorf("unexpected collection name: %v", body["collection_name"])
	}

	rec = doJSON(t, handler, http.MethodPost, "/collection/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear failed: %d", rec.Code)
	}
	if !index.cleared {
		t.Error("index not cleared")
	}
}

func TestIngestStats(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/ingest/stats", nil)
	body := decodeBody(t, rec)
	if body["chunking_method"] != "character-based" {
		t.Errorf("unexpected method: %v", body["chunking_method"])
	}
	if n, _ := body["chunk_size"].(float64); n != 600 {
		t.Errorf("unexpected chunk size: %v", body["chunk_size"])
	}
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/settings", nil)
	body := decodeBody(t, rec)
	if body["title"] != "AI Assistant" {
		t.Errorf("unexpected default title: %v", body["title"])
	}

	rec = doJSON(t, handler, http.MethodPost, "/settings", map[string]any{"title": "Helpdesk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/settings", nil)
	body = decodeBody(t, rec)
	if body["title"] != "Helpdesk" {
		t.Errorf("title not updated: %v", body["title"])
	}

	rec = doJSON(t, handler, http.MethodPost, "/settings", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty update should be 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/settings/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset failed: %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/settings", nil)
	body = decodeBody(t, rec)
	if body["title"] != "AI Assistant" {
		t.Errorf("title not reset: %v", body["title"])
	}
}

func TestSuggestedEndpoint(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/suggested", nil)
	body := decodeBody(t, rec)
	suggested, ok := body["suggested"].([]any)
	if !ok || len(suggested) != 4 {
		t.Errorf("expected 4 suggested questions, got %v", body["suggested"])
	}
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	handler := srv.Handler()

	first := doJSON(t, handler, http.MethodGet, "/health", nil)
	second := doJSON(t, handler, http.MethodGet, "/health", nil)

	firstID := first.Header().Get("X-Request-ID")
	secondID := second.Header().Get("X-Request-ID")
	if firstID == "" || secondID == "" {
		t.Fatal("responses should carry an X-Request-ID header")
	}
	if firstID == secondID {
		t.Error("request ids should be unique per request")
	}
}

func TestAccessLogCarriesStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	index := &stubIndex{}
	retrieveUC := usecases.NewRetrieveUseCase(index, stubReranker{}, nil)
	chatUC := usecases.NewChatUseCase(retrieveUC, stubLLM{}, 5, 3, nil)
	ingestUC := usecases.NewIngestUseCase(index, []ports.DocumentLoader{stubLoader{}}, nil)
	store := settings.NewStore(filepath.Join(t.TempDir(), "config.json"), nil)
	srv := NewServer(chatUC, ingestUC, index, store, Info{}, ":0", log)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", map[string]string{"message": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	logged := buf.String()
	if !strings.Contains(logged, `"status":400`) {
		t.Errorf("access log should carry the response status: %s", logged)
	}
	if !strings.Contains(logged, rec.Header().Get("X-Request-ID")) {
		t.Errorf("access log should carry the request id: %s", logged)
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	srv := newServer(t, &stubIndex{}, "")
	rec := doJSON(t, srv.Handler(), http.MethodDelete, "/chat", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
