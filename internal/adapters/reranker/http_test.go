package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPReranker_ScoreBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Query != "refunds" {
			t.Errorf("unexpected query: %s", req.Query)
		}
		if len(req.Texts) != 3 {
			t.Errorf("expected 3 texts in one batched call, got %d", len(req.Texts))
		}

		// Score-ordered response exercises index realignment.
		json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 0.9},
			{Index: 0, Score: 0.5},
			{Index: 1, Score: 0.1},
		})
	}))
	defer server.Close()

	rr := NewHTTPReranker(server.URL, nil)
	scores, err := rr.ScoreBatch(context.Background(), "refunds", []string{"a", "b", "c"})

	if err != nil {
		t.Fatalf("score batch failed: %v", err)
	}
	want := []float64{0.5, 0.1, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("score %d: expected %f, got %f", i, want[i], scores[i])
		}
	}
}

func TestHTTPReranker_EmptyBatch(t *testing.T) {
	rr := NewHTTPReranker("http://localhost:1", nil) // never called
	scores, err := rr.ScoreBatch(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("empty batch should not error: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected no scores, got %v", scores)
	}
}

func TestHTTPReranker_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rr := NewHTTPReranker(server.URL, nil)
	if _, err := rr.ScoreBatch(context.Background(), "q", []string{"a"}); err == nil {
		t.Error("should error on 500")
	}
}

func TestHTTPReranker_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]rerankResult{{Index: 0, Score: 0.5}})
	}))
	defer server.Close()

	rr := NewHTTPReranker(server.URL, nil)
	if _, err := rr.ScoreBatch(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Error("should error when score count differs from passage count")
	}
}
