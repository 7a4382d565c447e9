// Package loader - pdf.go extracts PDF text natively, one document unit
// per page so page numbers survive into chunk metadata.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
)

// PDFLoader loads PDF documents page by page.
type PDFLoader struct{}

// NewPDFLoader creates a new PDF loader.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load reads the PDF at path and returns one Document per non-empty
// page, tagged with page_number and total_pages.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var docs []entities.Document
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d of %s: %w", pageNum, path, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, entities.Document{
			Content: text,
			Metadata: entities.Metadata{
				entities.MetaSource:     path,
				entities.MetaPageNumber: pageNum,
				entities.MetaTotalPages: totalPages,
			},
		})
	}
	return docs, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}
