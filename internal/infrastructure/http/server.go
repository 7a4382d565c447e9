// Package http exposes the RAG pipeline as a JSON API. It is a thin
// adapter: handlers decode, delegate to use cases, and encode.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tahahaqqani/rag-agent/internal/domain/chunker"
	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
	"github.com/tahahaqqani/rag-agent/internal/domain/usecases"
	"github.com/tahahaqqani/rag-agent/internal/settings"
)

// Info describes the running deployment for the health and collection
// endpoints.
type Info struct {
	Provider       string
	LLMModel       string
	EmbeddingModel string
	Collection     string
	ChunkSize      int
	Overlap        int
}

// Server serves the chat, ingestion, and settings API.
type Server struct {
	chat     *usecases.ChatUseCase
	ingest   *usecases.IngestUseCase
	index    ports.VectorIndex
	settings *settings.Store
	info     Info
	addr     string
	log      *slog.Logger
}

// NewServer creates the API server with injected use cases.
func NewServer(
	chat *usecases.ChatUseCase,
	ingest *usecases.IngestUseCase,
	index ports.VectorIndex,
	store *settings.Store,
	info Info,
	addr string,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		chat:     chat,
		ingest:   ingest,
		index:    index,
		settings: store,
		info:     info,
		addr:     addr,
		log:      log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("GET /ingest/stats", s.handleIngestStats)

	mux.HandleFunc("GET /collection/info", s.handleCollectionInfo)
	mux.HandleFunc("POST /collection/clear", s.handleCollectionClear)

	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("POST /settings", s.handleUpdateSettings)
	mux.HandleFunc("POST /settings/reset", s.handleResetSettings)
	mux.HandleFunc("GET /suggested", s.handleSuggested)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second,
	}

	s.log.Info("server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "RAG Chatbot API",
		"version": "1.0.0",
		"status":  "running",
		"endpoints": map[string]string{
			"chat":      "/chat",
			"settings":  "/settings",
			"suggested": "/suggested",
			"ingest":    "/ingest",
			"health":    "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().Format(time.RFC3339),
		"model_provider": s.info.Provider,
		"llm_model":      s.info.LLMModel,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req entities.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	chatSettings := s.settings.Load().ChatSettings
	opts := usecases.ChatOptions{
		Temperature: chatSettings.Temperature,
		MaxTokens:   chatSettings.MaxTokens,
	}

	resp, err := s.chat.Chat(r.Context(), &req, opts)
	if err != nil {
		s.log.Error("chat request failed", "error", err)
		writeError(w, http.StatusBadGateway, "chat error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ingestRequest uses pointers for the chunk knobs so an omitted field
// falls back to the configured default while an explicit 0 is kept.
type ingestRequest struct {
	InputPath string `json:"input_path"`
	SourceTag string `json:"source_tag"`
	ChunkSize *int   `json:"chunk_size"`
	Overlap   *int   `json:"overlap"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InputPath == "" {
		writeError(w, http.StatusBadRequest, "input_path is required")
		return
	}

	chunkSize := s.info.ChunkSize
	if req.ChunkSize != nil {
		chunkSize = *req.ChunkSize
	}
	overlap := s.info.Overlap
	if req.Overlap != nil {
		overlap = *req.Overlap
	}

	report, err := s.ingest.IngestWithReport(r.Context(), req.InputPath, req.SourceTag, chunkSize, overlap)
	if err != nil {
		if errors.Is(err, chunker.ErrInvalidChunkConfig) || errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("ingest request failed", "path", req.InputPath, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"chunks_created": report.Chunks,
		"files":          report.Files,
		"skipped":        report.Skipped,
		"message":        "ingestion complete",
	})
}

func (s *Server) handleIngestStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.index.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_chunks":    count,
		"chunk_size":      s.info.ChunkSize,
		"overlap":         s.info.Overlap,
		"chunking_method": "character-based",
	})
}

func (s *Server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	count, err := s.index.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_count":  count,
		"collection_name": s.info.Collection,
		"embedding_model": s.info.EmbeddingModel,
	})
}

func (s *Server) handleCollectionClear(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Collection cleared",
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Load())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	updated, err := s.settings.Update(updates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": updated,
		"message":  "Settings updated successfully",
	})
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Settings reset to defaults",
	})
}

func (s *Server) handleSuggested(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"suggested": s.settings.Load().Suggested,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
