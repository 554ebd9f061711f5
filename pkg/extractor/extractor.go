// Package extractor converts raw PDF documents into cleaned plain text.
//
// Extraction is deliberately forgiving: a failure on one page logs and
// continues, and a document that yields no text at all reports ErrNoText so
// the caller can skip it without aborting the batch.
package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// ErrNoText reports that a document produced no extractable text.
var ErrNoText = errors.New("no extractable text")

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	danglePunct = regexp.MustCompile(`(\w)\s+([.,:;])`)
	sentenceGap = regexp.MustCompile(`([.!?])\s*([A-Z])`)
)

// PDFExtractor extracts text from PDF files on the local filesystem.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads the PDF at path page by page and returns the cleaned plain
// text. Page-level failures are logged and skipped. A document with zero
// recoverable text returns ("", ErrNoText).
func (e *PDFExtractor) Extract(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warnf("[Extractor] failed to read page %d of %s: %v", pageNum, path, err)
			continue
		}
		if pageText == "" {
			continue
		}
		sb.WriteString(CleanText(pageText))
		sb.WriteString("\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// CleanText normalizes whitespace runs to single spaces, removes whitespace
// that tokenizers leave dangling before punctuation, and restores the space
// after sentence endings.
func CleanText(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = danglePunct.ReplaceAllString(text, "$1$2")
	text = sentenceGap.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}
