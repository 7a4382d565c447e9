// Package loader - registry.go bundles the format loaders behind one
// allow-list.
package loader

import (
	"github.com/tahahaqqani/rag-agent/internal/domain/ports"
)

// Defaults returns the loaders for every supported format. The union of
// their extensions is the ingestion allow-list.
func Defaults() []ports.DocumentLoader {
	return []ports.DocumentLoader{
		NewTextLoader(),
		NewPDFLoader(),
		NewDocxLoader(),
	}
}
