// Package loader provides document loading adapters.
// Clean Architecture: Adapters implementing ports.DocumentLoader, one
// per file format plus a dispatching registry.
package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
)

// TextLoader loads plain text and markdown documents as one unit each.
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads the whole file as a single document unit.
func (l *TextLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return []entities.Document{{
		Content: string(content),
		Metadata: entities.Metadata{
			entities.MetaSource: path,
		},
	}}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}
