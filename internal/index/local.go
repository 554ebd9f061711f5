package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

// localIndexFile is the persisted index file name inside the cache dir.
const localIndexFile = "vector_index.json"

// localIndex is a brute-force cosine-similarity index held in memory and
// persisted as JSON. A scheduled rebuild mutates entries from its own
// goroutine while request handlers keep querying, so every access to
// entries goes through mu.
type localIndex struct {
	path       string
	dimensions int

	mu      sync.RWMutex
	entries []model.IndexEntry
}

func newLocalIndex(cacheDir string, dimensions int) *localIndex {
	return &localIndex{
		path:       filepath.Join(cacheDir, localIndexFile),
		dimensions: dimensions,
	}
}

// Upsert appends entries in order.
func (l *localIndex) Upsert(ctx context.Context, entries []model.IndexEntry) error {
	for _, e := range entries {
		if l.dimensions > 0 && len(e.Vector) != l.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, want %d", e.VectorID, len(e.Vector), l.dimensions)
		}
	}
	l.mu.Lock()
	l.entries = append(l.entries, entries...)
	l.mu.Unlock()
	return nil
}

// Query scores every entry by cosine similarity and returns the top k.
func (l *localIndex) Query(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if k < 1 || len(l.entries) == 0 {
		return []model.ScoredChunk{}, nil
	}

	scored := make([]model.ScoredChunk, 0, len(l.entries))
	for _, e := range l.entries {
		scored = append(scored, model.ScoredChunk{
			Meta:  e.Meta,
			Text:  e.Text,
			Score: cosine(vector, e.Vector),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Count reports the number of stored entries.
func (l *localIndex) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Clear drops all entries from memory. Persist writes the empty state.
func (l *localIndex) Clear(ctx context.Context) error {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	return nil
}

type localIndexState struct {
	Dimensions int                `json:"dimensions"`
	Entries    []model.IndexEntry `json:"entries"`
}

// Persist writes the whole index to the cache dir, replacing any previous
// file through an atomic rename.
func (l *localIndex) Persist() error {
	if err := os.MkdirAll(filepath.Dir(l.path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	l.mu.RLock()
	data, err := json.Marshal(localIndexState{Dimensions: l.dimensions, Entries: l.entries})
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return os.Rename(tmp, l.path)
}

// Load restores the index from disk. A missing file loads as empty.
func (l *localIndex) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.mu.Lock()
			l.entries = nil
			l.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read index file: %w", err)
	}
	var state localIndexState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal index file: %w", err)
	}
	if l.dimensions > 0 && state.Dimensions != 0 && state.Dimensions != l.dimensions {
		return fmt.Errorf("persisted index dimension %d does not match provider dimension %d", state.Dimensions, l.dimensions)
	}
	l.mu.Lock()
	l.entries = state.Entries
	l.mu.Unlock()
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
