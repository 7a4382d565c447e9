// Package chunker splits raw document text into overlapping fixed-size
// character windows for indexing. Pure business logic - no external
// dependencies.
package chunker

import (
	"errors"
	"strings"
)

// ErrInvalidChunkConfig marks chunk parameters that would make the
// window stride non-positive (overlap >= maxChars) or the window empty.
// Configuration errors are rejected, never silently tolerated.
var ErrInvalidChunkConfig = errors.New("chunker: overlap must be smaller than max chars")

// Split slices text into windows of maxChars characters with the given
// overlap between consecutive windows. Characters are Unicode code
// points, so a window never cuts a UTF-8 sequence.
//
// Text no longer than maxChars comes back as a single chunk equal to the
// input. Longer text is covered by windows starting every
// maxChars-overlap characters from offset 0; windows whose trimmed
// content is empty are skipped, and the final window may be shorter than
// maxChars. The result is a pure function of the inputs.
func Split(text string, maxChars, overlap int) ([]string, error) {
	if maxChars <= 0 || overlap < 0 || overlap >= maxChars {
		return nil, ErrInvalidChunkConfig
	}
	return slide(text, maxChars, overlap), nil
}

func slide(text string, maxChars, overlap int) (chunks []string) {
	runes := []rune(text)

	// Ingestion must never lose text to a chunking fault: a panic here
	// degrades to plain fixed-width slicing of the same input.
	defer func() {
		if r := recover(); r != nil {
			chunks = fixedSlices(runes, maxChars)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(runes) <= maxChars {
		return []string{text}
	}

	step := maxChars - overlap
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
		// The tail past this point is already covered by this window.
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// fixedSlices is the non-overlapping fallback. It keeps every character
// of the input, blank windows included.
func fixedSlices(runes []rune, maxChars int) []string {
	var chunks []string
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
