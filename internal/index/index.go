// Package index stores passage vectors with their chunk text and metadata
// and answers nearest-neighbor queries by cosine similarity.
//
// Two backends satisfy the Index contract: a file-backed local index
// (default) and an Elasticsearch dense_vector index. A backend that fails to
// initialize is reported as ErrIndexUnavailable and the retrieval layer runs
// on its keyword fallback instead; the system never crashes over a missing
// storage engine.
package index

import (
	"context"
	"errors"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

// ErrIndexUnavailable reports that no vector index backend could be
// initialized. Non-fatal: retrieval degrades to keyword search.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// UpsertBatchSize bounds how many entries are embedded and inserted per
// batch during a rebuild, which also bounds the work lost when the process
// dies mid-rebuild.
const UpsertBatchSize = 25

// Index is the vector index contract shared by all backends.
type Index interface {
	// Upsert inserts entries in order. The index does not deduplicate;
	// clear prior ids first if idempotency is needed.
	Upsert(ctx context.Context, entries []model.IndexEntry) error
	// Query returns up to k nearest entries by cosine similarity, fewer if
	// the index holds fewer. An empty index returns an empty result, never
	// an error.
	Query(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error)
	// Count reports how many entries the index holds.
	Count(ctx context.Context) (int, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Persist flushes the index to durable storage.
	Persist() error
	// Load restores the index from durable storage. A path with no existing
	// index loads as an empty index, not an error.
	Load() error
}

// New builds the configured backend. The caller decides how to treat an
// error; by contract it should run without a vector index rather than fail.
func New(cfg config.VectorIndexConfig, esCfg config.ElasticsearchConfig, cacheDir string, dimensions int) (Index, error) {
	switch cfg.Backend {
	case "elasticsearch":
		return newESIndex(esCfg, dimensions)
	case "", "local":
		return newLocalIndex(cacheDir, dimensions), nil
	default:
		return nil, ErrIndexUnavailable
	}
}
