// Package chunker splits extracted document text into overlapping,
// size-bounded passages with provenance metadata attached.
package chunker

import (
	"errors"
	"strings"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

// ErrConfiguration reports a degenerate chunking configuration (overlap not
// smaller than chunk size, or non-positive sizes).
var ErrConfiguration = errors.New("chunking overlap must be smaller than chunk size")

// Strategy turns one document's text into an ordered sequence of windows.
type Strategy interface {
	Split(text string) ([]string, error)
}

// WordWindow is the guaranteed baseline strategy: windows of ChunkSize words
// advancing by ChunkSize-Overlap words per step. The final window may be
// shorter than ChunkSize.
type WordWindow struct {
	ChunkSize int
	Overlap   int
}

// Split splits text into a word sequence and generates the windows.
func (w WordWindow) Split(text string) ([]string, error) {
	if w.ChunkSize <= 0 || w.Overlap < 0 || w.Overlap >= w.ChunkSize {
		return nil, ErrConfiguration
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	var chunks []string
	step := w.ChunkSize - w.Overlap
	for i := 0; i < len(words); i += step {
		end := i + w.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if i+w.ChunkSize >= len(words) {
			break
		}
	}
	return chunks, nil
}

// Build runs the strategy over one document's text and attaches metadata to
// every retained window. Windows at or below minChars characters carry no
// retrievable signal and are discarded; chunk ids keep the pre-filter
// window index so they stay aligned with TotalChunks.
func Build(docName, text string, strat Strategy, minChars int) ([]model.Chunk, error) {
	windows, err := strat.Split(text)
	if err != nil {
		return nil, err
	}

	docType := DocType(docName)
	var chunks []model.Chunk
	for i, w := range windows {
		if len(strings.TrimSpace(w)) <= minChars {
			continue
		}
		chunks = append(chunks, model.Chunk{
			Meta: model.ChunkMeta{
				Document:    docName,
				ChunkID:     i,
				TotalChunks: len(windows),
				DocType:     docType,
			},
			Text: w,
		})
	}
	return chunks, nil
}

// DocType classifies a document by name keywords. The result is a pure
// function of the name so cache rebuilds reproduce the same tags.
func DocType(docName string) string {
	name := strings.ToLower(docName)
	switch {
	case strings.Contains(name, "constitution"):
		return "constitution"
	case strings.Contains(name, "penal"), strings.Contains(name, "criminal"):
		return "criminal_law"
	case strings.Contains(name, "civil"):
		return "civil_law"
	case strings.Contains(name, "corruption"):
		return "anti_corruption"
	case strings.Contains(name, "land"):
		return "land_law"
	case strings.Contains(name, "tax"):
		return "tax_law"
	case strings.Contains(name, "environment"):
		return "environmental_law"
	default:
		return "general_law"
	}
}
