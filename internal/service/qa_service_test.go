package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/cache"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/docstore"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/index"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/pipeline"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/chunker"
)

func chunkOf(doc, text string) model.Chunk {
	return model.Chunk{
		Meta: model.ChunkMeta{Document: doc, ChunkID: 0, TotalChunks: 1, DocType: chunker.DocType(doc)},
		Text: text,
	}
}

func TestKeywordSearchExactPhraseOutranksWordOverlap(t *testing.T) {
	chunks := []model.Chunk{
		chunkOf("Penal_Code_2004", "the penalty for theft is imprisonment"),
		chunkOf("Evidence_Act_2005", "penalty provisions apply for theft of evidence during imprisonment"),
	}

	hits := keywordSearch(chunks, "penalty for theft", 5)
	require.Len(t, hits, 2)
	// Both carry all three words; only the first contains the exact phrase.
	assert.Equal(t, "Penal_Code_2004", hits[0].Meta.Document)
	assert.Equal(t, hits[1].Score+float64(scoreExactPhrase), hits[0].Score)
}

func TestKeywordSearchTopicBoosts(t *testing.T) {
	text := "the provisions on rights are set out herein"
	chunks := []model.Chunk{
		chunkOf("Marriage_Act_1980", text),
		chunkOf("Constitution_of_Bhutan_2008", text),
	}

	hits := keywordSearch(chunks, "what rights exist", 5)
	require.Len(t, hits, 2)
	// Same text, but the constitution chunk gains the rights boost.
	assert.Equal(t, "Constitution_of_Bhutan_2008", hits[0].Meta.Document)
	assert.Equal(t, hits[1].Score+float64(boostWeakTopic), hits[0].Score)
}

func TestKeywordSearchDropsZeroScores(t *testing.T) {
	chunks := []model.Chunk{chunkOf("Land_Act_2007", "registration of rural land holdings")}

	hits := keywordSearch(chunks, "maritime shipping tariffs", 5)
	assert.Empty(t, hits)
}

func TestKeywordSearchStableTiesAndTopK(t *testing.T) {
	var chunks []model.Chunk
	for i := 0; i < 8; i++ {
		chunks = append(chunks, chunkOf("Evidence_Act_2005", "witness testimony rules"))
	}
	// Identical scores: insertion order must survive the sort.
	hits := keywordSearch(chunks, "witness testimony", 5)
	require.Len(t, hits, 5)
	for i := 1; i < len(hits); i++ {
		assert.Equal(t, hits[0].Score, hits[i].Score)
	}
}

func TestKeywordSearchCountsDistinctWordsOnce(t *testing.T) {
	chunks := []model.Chunk{chunkOf("Tax_Act_2022", "the tax rate applies")}

	once := keywordSearch(chunks, "tax", 5)
	repeated := keywordSearch(chunks, "tax tax tax", 5)
	require.Len(t, once, 1)
	require.Len(t, repeated, 1)
	// "tax" matches as a phrase (+10) and as one word (+2). The repeated
	// question loses the phrase bonus and must not inflate the word score.
	assert.Equal(t, float64(scoreExactPhrase+scoreWordMatch), once[0].Score)
	assert.Equal(t, float64(scoreWordMatch), repeated[0].Score)
}

func TestExtractiveAnswerRightsPrefersConstitution(t *testing.T) {
	hits := []model.ScoredChunk{
		{Meta: model.ChunkMeta{Document: "Penal_Code_2004"}, Text: "Theft is punishable. Offenders shall be sentenced."},
		{Meta: model.ChunkMeta{Document: "Constitution_of_Bhutan_2008"}, Text: "All persons shall have the right to life. Every citizen shall have the right to freedom of speech. Taxes are levied annually."},
	}

	answer := extractiveAnswer("What are the fundamental rights?", hits)
	assert.Contains(t, answer, "According to Bhutan's Constitution")
	assert.Contains(t, answer, "right to life")
	assert.Contains(t, answer, "freedom of speech")
	assert.NotContains(t, answer, "Taxes are levied")
}

func TestExtractiveAnswerPenaltyAttributesDocument(t *testing.T) {
	hits := []model.ScoredChunk{
		{Meta: model.ChunkMeta{Document: "Penal_Code_2004"}, Text: "A defendant convicted of burglary shall be liable to imprisonment. The fine shall not exceed the daily wage. Courts sit in the capital."},
	}

	answer := extractiveAnswer("What is the punishment for burglary?", hits)
	assert.True(t, strings.HasPrefix(answer, "According to Penal Code 2004:"), answer)
	assert.Contains(t, answer, "imprisonment")
}

func TestExtractiveAnswerGeneralRanksSentences(t *testing.T) {
	hits := []model.ScoredChunk{
		{Meta: model.ChunkMeta{Document: "Water_Act_2011"}, Text: "Water resources are owned by the State of Bhutan. Irrigation channels require a permit from the authority. The board meets quarterly in Thimphu."},
	}

	answer := extractiveAnswer("who owns water resources", hits)
	assert.Contains(t, answer, "According to Bhutan's legal documents")
	assert.Contains(t, answer, "Water resources are owned by the State")
}

func TestExtractiveAnswerFallsBackToPrefix(t *testing.T) {
	text := strings.Repeat("x", 600)
	hits := []model.ScoredChunk{{Meta: model.ChunkMeta{Document: "Drugs_Act_2003"}, Text: text}}

	answer := extractiveAnswer("zzzz", hits)
	assert.Contains(t, answer, text[:fallbackPrefixLen])
	assert.True(t, strings.HasSuffix(answer, "..."))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// A three-byte rune straddles the cutoff; the cut backs up to its start.
	s := strings.Repeat("x", fallbackPrefixLen-1) + "ཀ"
	out := truncate(s, fallbackPrefixLen)
	assert.Equal(t, strings.Repeat("x", fallbackPrefixLen-1), out)
	assert.True(t, utf8.ValidString(out))

	assert.Equal(t, "short", truncate("short", fallbackPrefixLen))
}

// askFixture builds a real cache manager over canned documents with no
// vector index, so Ask exercises the keyword fallback end to end.
func askFixture(t *testing.T) QAService {
	t.Helper()
	root := t.TempDir()
	docsDir := filepath.Join(root, "documents")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	texts := map[string]string{
		"Constitution_of_Bhutan_2008": strings.Repeat("Every citizen shall have the right to freedom of speech and expression. ", 20),
		"Penal_Code_2004":             strings.Repeat("A person convicted of larceny shall be liable to imprisonment. ", 20),
	}
	for name := range texts {
		require.NoError(t, os.WriteFile(filepath.Join(docsDir, name+".pdf"), []byte("placeholder"), 0o644))
	}

	store, err := docstore.NewStore(docsDir)
	require.NoError(t, err)

	processor := pipeline.NewProcessor(
		cannedExtractor(texts),
		chunker.WordWindow{ChunkSize: 100, Overlap: 20},
		50,
		nil,
		nil,
	)
	mgr := cache.NewManager(store, processor, nil, filepath.Join(root, "cache"))
	require.NoError(t, mgr.Initialize(context.Background()))

	return NewQAService(mgr, nil, nil)
}

type cannedExtractor map[string]string

func (e cannedExtractor) Extract(path string) (string, error) {
	return e[strings.TrimSuffix(filepath.Base(path), ".pdf")], nil
}

func TestAskAnswersFromKeywordFallback(t *testing.T) {
	svc := askFixture(t)

	result, err := svc.Ask(context.Background(), "What rights to freedom of speech do citizens have?")
	require.NoError(t, err)

	assert.NotEqual(t, noInformationAnswer, result.Answer)
	assert.Contains(t, result.Sources, "Constitution of Bhutan 2008")
	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.False(t, result.AIPowered)
	assert.Contains(t, strings.ToLower(result.Answer), "freedom")
}

func TestAskWithEmptyIndexUsesKeywordSearch(t *testing.T) {
	root := t.TempDir()
	docsDir := filepath.Join(root, "documents")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	texts := map[string]string{
		"Constitution_of_Bhutan_2008": strings.Repeat("Every citizen shall have the right to freedom of speech and expression. ", 20),
	}
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "Constitution_of_Bhutan_2008.pdf"), []byte("placeholder"), 0o644))

	store, err := docstore.NewStore(docsDir)
	require.NoError(t, err)

	// The processor gets no index, so the rebuild leaves it empty while the
	// manager still hands it to retrieval.
	idx, err := index.New(config.VectorIndexConfig{Backend: "local"}, config.ElasticsearchConfig{}, filepath.Join(root, "cache"), 0)
	require.NoError(t, err)
	processor := pipeline.NewProcessor(cannedExtractor(texts), chunker.WordWindow{ChunkSize: 100, Overlap: 20}, 50, nil, nil)
	mgr := cache.NewManager(store, processor, idx, filepath.Join(root, "cache"))
	require.NoError(t, mgr.Initialize(context.Background()))

	svc := NewQAService(mgr, nil, nil)
	result, err := svc.Ask(context.Background(), "What rights to freedom of speech do citizens have?")
	require.NoError(t, err)

	assert.NotEqual(t, noInformationAnswer, result.Answer)
	assert.Contains(t, result.Sources, "Constitution of Bhutan 2008")
}

func TestAskNoResultsShape(t *testing.T) {
	svc := askFixture(t)

	result, err := svc.Ask(context.Background(), "quantum chromodynamics lattice gauge")
	require.NoError(t, err)

	assert.Equal(t, noInformationAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.Confidence)
	assert.False(t, result.AIPowered)
}

func TestSourceNamesDeduplicatesInOrder(t *testing.T) {
	hits := []model.ScoredChunk{
		{Meta: model.ChunkMeta{Document: "Penal_Code_2004"}},
		{Meta: model.ChunkMeta{Document: "Constitution_of_Bhutan_2008"}},
		{Meta: model.ChunkMeta{Document: "Penal_Code_2004"}},
	}
	assert.Equal(t, []string{"Penal Code 2004", "Constitution of Bhutan 2008"}, sourceNames(hits))
}

func TestConfidenceCapsAtOne(t *testing.T) {
	assert.Equal(t, 0.6, confidence(3))
	assert.Equal(t, 1.0, confidence(5))
	assert.Equal(t, 1.0, confidence(9))
}

func TestBuildContextBoundsChunksAndLength(t *testing.T) {
	long := strings.Repeat("y", 2000)
	var hits []model.ScoredChunk
	for i := 0; i < 5; i++ {
		hits = append(hits, model.ScoredChunk{Meta: model.ChunkMeta{Document: "Tax_Act_2022"}, Text: long})
	}

	ctxText := buildContext(hits)
	assert.Equal(t, llmContextChunks, strings.Count(ctxText, "From Tax Act 2022:"))
	assert.Less(t, len(ctxText), llmContextChunks*(llmChunkCharLimit+100))
}
