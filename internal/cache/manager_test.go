package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/docstore"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/index"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/pipeline"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/chunker"
)

// countingExtractor returns canned text and counts its invocations, so
// tests can prove the warm path never re-extracts.
type countingExtractor struct {
	calls int64
	texts map[string]string
}

func (e *countingExtractor) Extract(path string) (string, error) {
	atomic.AddInt64(&e.calls, 1)
	name := strings.TrimSuffix(filepath.Base(path), ".pdf")
	return e.texts[name], nil
}

// countingProvider embeds by text length and counts its invocations.
type countingProvider struct {
	calls int64
}

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&p.calls, 1)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1, 0, 0}
	}
	return vectors, nil
}

func (p *countingProvider) Dimension() int { return 4 }
func (p *countingProvider) Model() string  { return "counting-test-v1" }

type fixture struct {
	store     *docstore.Store
	extractor *countingExtractor
	provider  *countingProvider
	cacheDir  string
}

// newFixture seeds a document directory with placeholder PDFs and canned
// extraction texts. The PDF bytes are never parsed; the counting extractor
// intercepts them.
func newFixture(t *testing.T, root string) *fixture {
	t.Helper()
	docsDir := filepath.Join(root, "documents")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	texts := map[string]string{
		"Constitution_of_Bhutan_2008": strings.Repeat("Every citizen shall have the right to freedom of speech. ", 40),
		"Penal_Code_2004":             strings.Repeat("The penalty for this offence is imprisonment and a fine. ", 40),
	}
	for name := range texts {
		require.NoError(t, os.WriteFile(filepath.Join(docsDir, name+".pdf"), []byte("placeholder"), 0o644))
	}

	store, err := docstore.NewStore(docsDir)
	require.NoError(t, err)

	return &fixture{
		store:     store,
		extractor: &countingExtractor{texts: texts},
		provider:  &countingProvider{},
		cacheDir:  filepath.Join(root, "cache"),
	}
}

func (f *fixture) newManager(t *testing.T) *Manager {
	t.Helper()
	idx, err := index.New(config.VectorIndexConfig{Backend: "local"}, config.ElasticsearchConfig{}, f.cacheDir, f.provider.Dimension())
	require.NoError(t, err)

	strategy := chunker.WordWindow{ChunkSize: 100, Overlap: 20}
	processor := pipeline.NewProcessor(f.extractor, strategy, 50, f.provider, idx)
	return NewManager(f.store, processor, idx, f.cacheDir)
}

func TestInitializeColdBuildsEverything(t *testing.T) {
	f := newFixture(t, t.TempDir())
	mgr := f.newManager(t)

	require.NoError(t, mgr.Initialize(context.Background()))

	progress := mgr.Progress()
	assert.Equal(t, model.StateValid, progress.State)
	assert.Equal(t, 100, progress.Percent)
	assert.NotNil(t, progress.FinishedAt)

	meta := mgr.Metadata()
	require.NotNil(t, meta)
	assert.Equal(t, 2, meta.DocumentCount)
	assert.Equal(t, len(mgr.Chunks()), meta.ChunksCount)
	assert.NotEmpty(t, meta.DocumentsHash)
	assert.NotEmpty(t, mgr.Chunks())

	assert.EqualValues(t, 2, f.extractor.calls)
	assert.Positive(t, f.provider.calls)

	for _, name := range []string{"legal_texts.json", "chunks_data.json", "system_metadata.json", "vector_index.json"} {
		_, err := os.Stat(filepath.Join(f.cacheDir, name))
		assert.NoError(t, err, name)
	}
}

func TestInitializeWarmSkipsExtractionAndEmbedding(t *testing.T) {
	root := t.TempDir()
	f := newFixture(t, root)
	require.NoError(t, f.newManager(t).Initialize(context.Background()))

	extractions := f.extractor.calls
	embeddings := f.provider.calls

	// A fresh process over the same directories must load from cache.
	mgr := f.newManager(t)
	require.NoError(t, mgr.Initialize(context.Background()))

	assert.Equal(t, extractions, f.extractor.calls)
	assert.Equal(t, embeddings, f.provider.calls)
	assert.Equal(t, model.StateValid, mgr.Progress().State)
	assert.NotEmpty(t, mgr.Chunks())
}

func TestInitializeRebuildsWhenDocumentSetChanges(t *testing.T) {
	root := t.TempDir()
	f := newFixture(t, root)
	require.NoError(t, f.newManager(t).Initialize(context.Background()))
	firstHash := mustHash(t, f)

	// Add a document: the fingerprint changes and a rebuild runs.
	f.extractor.texts["Water_Act_2011"] = strings.Repeat("Water resources belong to the State. ", 40)
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "Water_Act_2011.pdf"), []byte("placeholder"), 0o644))

	extractions := f.extractor.calls
	mgr := f.newManager(t)
	require.NoError(t, mgr.Initialize(context.Background()))

	assert.Greater(t, f.extractor.calls, extractions)
	require.NotNil(t, mgr.Metadata())
	assert.Equal(t, 3, mgr.Metadata().DocumentCount)
	assert.NotEqual(t, firstHash, mgr.Metadata().DocumentsHash)
}

func mustHash(t *testing.T, f *fixture) string {
	t.Helper()
	docs, err := f.store.List()
	require.NoError(t, err)
	return docstore.Fingerprint(docs)
}

func TestRebuildIsDeterministic(t *testing.T) {
	root := t.TempDir()
	f := newFixture(t, root)
	mgr := f.newManager(t)
	require.NoError(t, mgr.Initialize(context.Background()))
	firstChunks := mgr.Chunks()

	require.NoError(t, mgr.Clear(context.Background()))
	assert.Equal(t, model.StateCold, mgr.Progress().State)
	assert.Nil(t, mgr.Metadata())

	require.NoError(t, mgr.Initialize(context.Background()))
	assert.Equal(t, firstChunks, mgr.Chunks())
}

func TestClearRemovesArtifacts(t *testing.T) {
	f := newFixture(t, t.TempDir())
	mgr := f.newManager(t)
	require.NoError(t, mgr.Initialize(context.Background()))
	require.NoError(t, mgr.Clear(context.Background()))

	for _, name := range []string{"legal_texts.json", "chunks_data.json", "system_metadata.json"} {
		_, err := os.Stat(filepath.Join(f.cacheDir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
	assert.Empty(t, mgr.Chunks())
}

func TestInitializeFailsWithoutDocuments(t *testing.T) {
	root := t.TempDir()
	f := newFixture(t, root)
	require.NoError(t, os.RemoveAll(f.store.Dir()))
	store, err := docstore.NewStore(f.store.Dir())
	require.NoError(t, err)
	f.store = store

	mgr := f.newManager(t)
	err = mgr.Initialize(context.Background())
	require.Error(t, err)

	progress := mgr.Progress()
	assert.Equal(t, model.StateCold, progress.State)
	assert.NotEmpty(t, progress.Error)
}
