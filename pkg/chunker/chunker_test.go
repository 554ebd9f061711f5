package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// words builds a deterministic text of n distinct words.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%04d", i)
	}
	return strings.Join(parts, " ")
}

func TestWordWindowSplit(t *testing.T) {
	w := WordWindow{ChunkSize: 100, Overlap: 20}

	chunks, err := w.Split(words(260))
	require.NoError(t, err)
	// Windows start at 0, 80, 160; the last one reaches the final word.
	require.Len(t, chunks, 3)

	// Consecutive windows share exactly the overlap.
	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	assert.Equal(t, first[80:], second[:20])

	// The final window is full-size and ends on the last word.
	last := strings.Fields(chunks[2])
	assert.Len(t, last, 100)
	assert.Equal(t, "word0259", last[len(last)-1])
}

func TestWordWindowSingleShortDocument(t *testing.T) {
	w := WordWindow{ChunkSize: 1200, Overlap: 200}

	chunks, err := w.Split(words(50))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, strings.Fields(chunks[0]), 50)
}

func TestWordWindowEmptyText(t *testing.T) {
	w := WordWindow{ChunkSize: 100, Overlap: 20}

	chunks, err := w.Split("   \n\t  ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWordWindowRejectsDegenerateConfiguration(t *testing.T) {
	cases := []WordWindow{
		{ChunkSize: 0, Overlap: 0},
		{ChunkSize: 100, Overlap: 100},
		{ChunkSize: 100, Overlap: 150},
		{ChunkSize: 100, Overlap: -1},
	}
	for _, w := range cases {
		_, err := w.Split(words(10))
		assert.ErrorIs(t, err, ErrConfiguration)
	}
}

func TestBuildFiltersShortWindowsKeepingIDs(t *testing.T) {
	// Three windows; the middle one collapses below the character floor.
	fake := strategyFunc(func(string) ([]string, error) {
		return []string{strings.Repeat("alpha ", 30), "tiny", strings.Repeat("omega ", 30)}, nil
	})

	chunks, err := Build("Evidence_Act_2005", "ignored", fake, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Ids keep the pre-filter window positions and TotalChunks counts all
	// windows, filtered ones included.
	assert.Equal(t, 0, chunks[0].Meta.ChunkID)
	assert.Equal(t, 2, chunks[1].Meta.ChunkID)
	assert.Equal(t, 3, chunks[0].Meta.TotalChunks)
	assert.Equal(t, "Evidence_Act_2005", chunks[0].Meta.Document)
}

type strategyFunc func(text string) ([]string, error)

func (f strategyFunc) Split(text string) ([]string, error) { return f(text) }

func TestDocType(t *testing.T) {
	cases := map[string]string{
		"Constitution_of_Bhutan_2008":            "constitution",
		"Penal_Code_2004":                        "criminal_law",
		"Civil_and_Criminal_Procedure_Code_2001": "criminal_law",
		"Anti-Corruption_Act_2011":               "anti_corruption",
		"Land_Act_2007":                          "land_law",
		"Tax_Act_2022":                           "tax_law",
		"Environment_Protection_Act_2007":        "environmental_law",
		"Marriage_Act_1980":                      "general_law",
	}
	for name, want := range cases {
		assert.Equal(t, want, DocType(name), name)
	}
}

func TestDocTypeIsPure(t *testing.T) {
	first := DocType("Income_Tax_Act_2001")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DocType("Income_Tax_Act_2001"))
	}
}

func TestLegalSectionSplit(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&b, "Article %d: %s ", i, words(40))
	}
	s := LegalSection{Fallback: WordWindow{ChunkSize: 1200, Overlap: 200}, MinSectionChars: 100}

	chunks, err := s.Split(b.String())
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.True(t, strings.HasPrefix(c, fmt.Sprintf("Article %d:", i+1)), c[:20])
	}
}

func TestLegalSectionFallsBackOnTooFewSections(t *testing.T) {
	// Only two section markers: below the threshold, so word windows win.
	text := "Article 1: " + words(300) + " Article 2: " + words(300)
	s := LegalSection{Fallback: WordWindow{ChunkSize: 100, Overlap: 20}, MinSectionChars: 100}

	chunks, err := s.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	// Word windows, not sections: the windows are size-bounded.
	for _, c := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(c)), 100)
	}
}

func TestLegalSectionValidatesFallbackConfiguration(t *testing.T) {
	s := LegalSection{Fallback: WordWindow{ChunkSize: 0, Overlap: 0}, MinSectionChars: 100}
	_, err := s.Split("Article 1: some text")
	assert.ErrorIs(t, err, ErrConfiguration)
}
