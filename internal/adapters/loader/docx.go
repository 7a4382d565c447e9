// Package loader - docx.go extracts paragraph text from DOCX files.
// A DOCX is a zip archive whose body lives in word/document.xml; the
// extraction walks w:p/w:t elements, which is all the format needs here.
package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/tahahaqqani/rag-agent/internal/domain/entities"
)

// DocxLoader loads Word documents as one unit each.
type DocxLoader struct{}

// NewDocxLoader creates a new DOCX loader.
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load reads the DOCX at path, joining non-blank paragraphs with blank
// lines.
func (l *DocxLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer archive.Close()

	var body io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			body, err = f.Open()
			if err != nil {
				return nil, fmt.Errorf("opening document.xml in %s: %w", path, err)
			}
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%s: no word/document.xml entry", path)
	}
	defer body.Close()

	text, err := extractParagraphs(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return []entities.Document{{
		Content: text,
		Metadata: entities.Metadata{
			entities.MetaSource: path,
		},
	}}, nil
}

// extractParagraphs walks the document XML collecting w:t runs grouped
// into w:p paragraphs.
func extractParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *DocxLoader) SupportedExtensions() []string {
	return []string{".docx"}
}
