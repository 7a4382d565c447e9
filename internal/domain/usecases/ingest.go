// Package usecases - ingest.go walks a source, chunks each loadable
// unit, and upserts the batch into the vector index.
package usecases

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tahahaqqani/rag-agent/internal/domain/chunker"
	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
)

// Default chunk parameters, applied when the caller passes chunkSize <= 0
// or overlap < 0. Zero is a valid explicit overlap; callers that cannot
// distinguish an omitted overlap from an explicit zero must resolve the
// default themselves before calling.
const (
	DefaultChunkSize = 600
	DefaultOverlap   = 80
)

// IngestUseCase handles document ingestion into the vector index.
type IngestUseCase struct {
	index   ports.VectorIndex
	loaders map[string]ports.DocumentLoader
	log     *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase. Each loader registers for
// the extensions it reports; together they form the ingestion allow-list.
func NewIngestUseCase(index ports.VectorIndex, loaders []ports.DocumentLoader, log *slog.Logger) *IngestUseCase {
	if log == nil {
		log = slog.Default()
	}
	byExt := make(map[string]ports.DocumentLoader)
	for _, l := range loaders {
		for _, ext := range l.SupportedExtensions() {
			byExt[strings.ToLower(ext)] = l
		}
	}
	return &IngestUseCase{
		index:   index,
		loaders: byExt,
		log:     log,
	}
}

// Ingest loads the file or directory at path, chunks every document
// unit, and adds all produced chunks to the index in one batch. It
// returns the total chunk count. An empty source is not an error: the
// run returns 0 with a warning logged. A fault in one file skips that
// file and the run continues.
func (uc *IngestUseCase) Ingest(ctx context.Context, path, sourceTag string, chunkSize, overlap int) (int, error) {
	report, err := uc.IngestWithReport(ctx, path, sourceTag, chunkSize, overlap)
	if err != nil {
		return 0, err
	}
	return report.Chunks, nil
}

// IngestWithReport is Ingest plus a per-run summary (files seen, files
// skipped, chunks stored).
func (uc *IngestUseCase) IngestWithReport(ctx context.Context, path, sourceTag string, chunkSize, overlap int) (*entities.IngestReport, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	// Reject bad parameters before touching any file.
	if _, err := chunker.Split("probe", chunkSize, overlap); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := uc.log.With("run_id", runID, "path", path)
	log.Info("starting ingestion", "chunk_size", chunkSize, "overlap", overlap)

	files, err := uc.enumerate(path)
	if err != nil {
		return nil, fmt.Errorf("enumerating source: %w", err)
	}

	report := &entities.IngestReport{StartedAt: time.Now()}
	var batch []entities.Chunk

	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		chunks, err := uc.processFile(ctx, file, sourceTag, chunkSize, overlap)
		if err != nil {
			// Partial-failure isolation: one corrupt file never aborts the run.
			log.Error("skipping file", "file", file, "error", err)
			report.Skipped++
			continue
		}
		report.Files++
		batch = append(batch, chunks...)
		log.Debug("processed file", "file", file, "chunks", len(chunks), "total", len(batch))
	}

	if len(batch) == 0 {
		log.Warn("no documents found", "skipped", report.Skipped)
		report.FinishedAt = time.Now()
		return report, nil
	}

	// One batched add per run amortizes embedding cost.
	log.Info("adding chunks to vector index", "chunks", len(batch))
	if err := uc.index.Add(ctx, batch); err != nil {
		return nil, fmt.Errorf("adding chunks to index: %w", err)
	}

	report.Chunks = len(batch)
	report.FinishedAt = time.Now()
	log.Info("ingestion complete", "files", report.Files, "skipped", report.Skipped, "chunks", report.Chunks)
	return report, nil
}

// enumerate resolves path to the allow-listed files beneath it, or to
// itself when it names a single supported file.
func (uc *IngestUseCase) enumerate(path string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := uc.loaders[strings.ToLower(filepath.Ext(p))]; ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// processFile loads one file and chunks every document unit it yields.
func (uc *IngestUseCase) processFile(ctx context.Context, path, sourceTag string, chunkSize, overlap int) ([]entities.Chunk, error) {
	loader := uc.loaders[strings.ToLower(filepath.Ext(path))]
	docs, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	ingestedAt := time.Now().Format(time.RFC3339)
	var chunks []entities.Chunk
	for _, doc := range docs {
		pieces, err := chunker.Split(doc.Content, chunkSize, overlap)
		if err != nil {
			return nil, err
		}
		for _, text := range pieces {
			meta := doc.Metadata.Clone()
			// Loader-provided source wins; the ingestion tag is a fallback only.
			if meta.Source() == "" {
				meta[entities.MetaSource] = sourceTag
			}
			if _, ok := meta[entities.MetaOriginalFile]; !ok {
				meta[entities.MetaOriginalFile] = path
			}
			meta[entities.MetaChunkSize] = chunkSize
			meta[entities.MetaOverlap] = overlap
			meta[entities.MetaIngestedAt] = ingestedAt
			chunks = append(chunks, entities.Chunk{Text: text, Metadata: meta})
		}
	}
	return chunks, nil
}
