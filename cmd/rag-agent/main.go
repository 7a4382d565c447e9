package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tahahaqqani/rag-agent/internal/adapters/embedding"
	"github.com/tahahaqqani/rag-agent/internal/adapters/filewatcher"
	"github.com/tahahaqqani/rag-agent/internal/adapters/llm"
	"github.com/tahahaqqani/rag-agent/internal/adapters/loader"
	"github.com/tahahaqqani/rag-agent/internal/adapters/reranker"
	"github.com/tahahaqqani/rag-agent/internal/adapters/vectordb"
	"github.com/tahahaqqani/rag-agent/internal/config"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
	"github.com/tahahaqqani/rag-agent/internal/domain/usecases"
	httpserver "github.com/tahahaqqani/rag-agent/internal/infrastructure/http"
	"github.com/tahahaqqani/rag-agent/internal/settings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := newLogger(cfg.Log)
	slog.SetDefault(log)

	embedder, llmService, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	index, err := vectordb.NewSQLiteIndex(cfg.DataDir, cfg.Collection, embedder, log)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	defer index.Close()

	retrieveUC := usecases.NewRetrieveUseCase(index, reranker.NewHTTPReranker(cfg.Reranker.URL, log), log)
	ingestUC := usecases.NewIngestUseCase(index, loader.Defaults(), log)
	chatUC := usecases.NewChatUseCase(retrieveUC, llmService, cfg.Retrieval.RetrieveK, cfg.Retrieval.PromptTop, log)

	store := settings.NewStore(cfg.SettingsPath, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Ingest.WatchDir != "" {
		if err := startWatcher(ctx, cfg, ingestUC, log); err != nil {
			return fmt.Errorf("starting file watcher: %w", err)
		}
	}

	server := httpserver.NewServer(chatUC, ingestUC, index, store, httpserver.Info{
		Provider:       cfg.Provider.Type,
		LLMModel:       cfg.Provider.LLMModel,
		EmbeddingModel: cfg.Provider.EmbeddingModel,
		Collection:     cfg.Collection,
		ChunkSize:      cfg.Ingest.ChunkSize,
		Overlap:        cfg.Ingest.Overlap,
	}, cfg.Server.Addr, log)

	return server.Start(ctx)
}

// buildProvider wires the embedding and chat adapters for the
// configured backend. Both sides come from the same provider so
// ingest and query share one embedding space.
func buildProvider(cfg *config.Config) (ports.Embedder, ports.LLMService, error) {
	switch cfg.Provider.Type {
	case "ollama":
		emb := embedding.NewOllamaAdapter(cfg.Provider.OllamaBaseURL, cfg.Provider.EmbeddingModel, slog.Default())
		gen := llm.NewOllamaLLMAdapter(cfg.Provider.OllamaBaseURL, cfg.Provider.LLMModel)
		return emb, gen, nil
	case "openai":
		emb, err := embedding.NewOpenAIAdapter(cfg.APIKey(), cfg.Provider.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		gen, err := llm.NewOpenAIAdapter(cfg.APIKey(), cfg.Provider.LLMModel)
		if err != nil {
			return nil, nil, fmt.Errorf("creating openai chat client: %w", err)
		}
		return emb, gen, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
}

// startWatcher re-ingests files dropped into the watch directory.
func startWatcher(ctx context.Context, cfg *config.Config, ingestUC *usecases.IngestUseCase, log *slog.Logger) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(nil, log)
	if err != nil {
		return err
	}

	events, err := watcher.Watch(ctx, cfg.Ingest.WatchDir)
	if err != nil {
		watcher.Stop()
		return err
	}
	log.Info("watching for documents", "dir", cfg.Ingest.WatchDir)

	go func() {
		defer watcher.Stop()
		for event := range events {
			if event.Operation == ports.FileDeleted {
				continue
			}
			chunks, err := ingestUC.Ingest(ctx, event.Path, "", cfg.Ingest.ChunkSize, cfg.Ingest.Overlap)
			if err != nil {
				log.Error("ingesting watched file", "path", event.Path, "error", err)
				continue
			}
			log.Info("watched file ingested", "path", event.Path, "chunks", chunks)
		}
	}()
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
