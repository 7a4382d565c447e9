// Package usecases - chat.go turns a retrieval pass into a grounded
// LLM answer with citations.
package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
)

// InsufficientContextAnswer is returned when retrieval finds nothing.
// It is a valid answer, distinct from a retrieval failure.
const InsufficientContextAnswer = "I don't have enough information to answer your question. Please provide more context or ask about something else."

const previewLen = 100

// ChatOptions are the per-request generation knobs, sourced from the
// settings store by the caller.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// ChatUseCase retrieves context for a question and generates an answer
// restricted to that context. The retrieval pool (RetrieveK) and the
// prompt pool (PromptTop) are tuned independently: reranking wants
// breadth, the prompt wants precision.
type ChatUseCase struct {
	retriever *RetrieveUseCase
	llm       ports.LLMService
	retrieveK int
	promptTop int
	log       *slog.Logger
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
func NewChatUseCase(retriever *RetrieveUseCase, llm ports.LLMService, retrieveK, promptTop int, log *slog.Logger) *ChatUseCase {
	if retrieveK <= 0 {
		retrieveK = 5
	}
	if promptTop <= 0 || promptTop > retrieveK {
		promptTop = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChatUseCase{
		retriever: retriever,
		llm:       llm,
		retrieveK: retrieveK,
		promptTop: promptTop,
		log:       log,
	}
}

// Chat answers a question using only retrieved context. With zero
// candidates it short-circuits to the insufficient-context answer
// without calling the LLM.
func (uc *ChatUseCase) Chat(ctx context.Context, req *entities.ChatRequest, opts ChatOptions) (*entities.ChatResponse, error) {
	start := time.Now()

	results, err := uc.retriever.Retrieve(ctx, req.Message, uc.retrieveK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	if len(results) > uc.promptTop {
		results = results[:uc.promptTop]
	}

	if len(results) == 0 {
		return &entities.ChatResponse{
			Answer:       InsufficientContextAnswer,
			Citations:    []entities.Citation{},
			ResponseTime: time.Since(start).Seconds(),
		}, nil
	}

	prompt := buildPrompt(req.Message, results)
	answer, err := uc.llm.Generate(ctx, prompt, opts.Temperature, opts.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	citations := make([]entities.Citation, len(results))
	for i, r := range results {
		page, _ := r.Metadata.PageNumber()
		citations[i] = entities.Citation{
			Index:       i + 1,
			Source:      citationSource(r.Metadata),
			Page:        page,
			Score:       r.RerankScore,
			TextPreview: preview(r.Text),
		}
	}

	elapsed := time.Since(start)
	uc.log.Info("chat answered", "context_used", len(results), "elapsed", elapsed)

	return &entities.ChatResponse{
		Answer:       strings.TrimSpace(answer),
		Citations:    citations,
		ContextUsed:  len(results),
		ResponseTime: elapsed.Seconds(),
	}, nil
}

// buildPrompt formats retrieved chunks as titled context blocks ahead of
// the question.
func buildPrompt(question string, results []entities.RetrievalResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		source := citationSource(r.Metadata)
		blocks[i] = fmt.Sprintf("%s:\n%s", source, r.Text)
	}

	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func citationSource(m entities.Metadata) string {
	if s := m.Source(); s != "" {
		return s
	}
	return "document"
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
