package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

func entry(id string, doc string, vec []float32) model.IndexEntry {
	return model.IndexEntry{
		VectorID:     id,
		Meta:         model.ChunkMeta{Document: doc, ChunkID: 0, TotalChunks: 1, DocType: "general_law"},
		Text:         "text of " + id,
		Vector:       vec,
		ModelVersion: "local-hashing-v1",
	}
}

func TestLocalIndexQueryRanksByCosine(t *testing.T) {
	idx := newLocalIndex(t.TempDir(), 3)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []model.IndexEntry{
		entry("chunk_0", "Penal_Code_2004", []float32{0, 1, 0}),
		entry("chunk_1", "Constitution_of_Bhutan_2008", []float32{1, 0, 0}),
		entry("chunk_2", "Land_Act_2007", []float32{0.9, 0.1, 0}),
	}))

	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Constitution_of_Bhutan_2008", hits[0].Meta.Document)
	assert.Equal(t, "Land_Act_2007", hits[1].Meta.Document)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestLocalIndexEmptyQuery(t *testing.T) {
	idx := newLocalIndex(t.TempDir(), 3)

	hits, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLocalIndexKLargerThanSize(t *testing.T) {
	idx := newLocalIndex(t.TempDir(), 2)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []model.IndexEntry{entry("chunk_0", "Water_Act_2011", []float32{1, 1})}))

	hits, err := idx.Query(ctx, []float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestLocalIndexUpsertRejectsDimensionMismatch(t *testing.T) {
	idx := newLocalIndex(t.TempDir(), 3)
	err := idx.Upsert(context.Background(), []model.IndexEntry{entry("chunk_0", "Tax_Act_2022", []float32{1, 0})})
	assert.Error(t, err)
}

func TestLocalIndexPersistLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx := newLocalIndex(dir, 3)
	require.NoError(t, idx.Upsert(ctx, []model.IndexEntry{
		entry("chunk_0", "Evidence_Act_2005", []float32{0, 0, 1}),
		entry("chunk_1", "Evidence_Act_2005", []float32{0, 1, 0}),
	}))
	require.NoError(t, idx.Persist())

	reloaded := newLocalIndex(dir, 3)
	require.NoError(t, reloaded.Load())

	count, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := reloaded.Query(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "text of chunk_0", hits[0].Text)
}

func TestLocalIndexLoadMissingFileIsEmpty(t *testing.T) {
	idx := newLocalIndex(t.TempDir(), 3)
	require.NoError(t, idx.Load())

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLocalIndexLoadRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx := newLocalIndex(dir, 3)
	require.NoError(t, idx.Upsert(ctx, []model.IndexEntry{entry("chunk_0", "Drugs_Act_2003", []float32{1, 0, 0})}))
	require.NoError(t, idx.Persist())

	mismatched := newLocalIndex(dir, 384)
	assert.Error(t, mismatched.Load())
}

func TestLocalIndexClear(t *testing.T) {
	ctx := context.Background()
	idx := newLocalIndex(t.TempDir(), 2)
	require.NoError(t, idx.Upsert(ctx, []model.IndexEntry{entry("chunk_0", "Marriage_Act_1980", []float32{1, 0})}))
	require.NoError(t, idx.Clear(ctx))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLocalIndexQueryDuringRebuild(t *testing.T) {
	ctx := context.Background()
	idx := newLocalIndex(t.TempDir(), 2)
	require.NoError(t, idx.Upsert(ctx, []model.IndexEntry{entry("chunk_0", "Penal_Code_2004", []float32{1, 0})}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = idx.Clear(ctx)
			_ = idx.Upsert(ctx, []model.IndexEntry{entry("chunk_0", "Penal_Code_2004", []float32{1, 0})})
		}
	}()
	for i := 0; i < 200; i++ {
		_, err := idx.Query(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		_, err = idx.Count(ctx)
		require.NoError(t, err)
	}
	<-done
}

func TestNewSelectsBackend(t *testing.T) {
	idx, err := New(config.VectorIndexConfig{Backend: "local"}, config.ElasticsearchConfig{}, t.TempDir(), 3)
	require.NoError(t, err)
	assert.IsType(t, &localIndex{}, idx)

	idx, err = New(config.VectorIndexConfig{}, config.ElasticsearchConfig{}, t.TempDir(), 3)
	require.NoError(t, err)
	assert.IsType(t, &localIndex{}, idx)

	_, err = New(config.VectorIndexConfig{Backend: "faiss"}, config.ElasticsearchConfig{}, t.TempDir(), 3)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}
