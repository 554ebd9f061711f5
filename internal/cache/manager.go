// Package cache owns the decision of whether persisted pipeline artifacts
// are reusable. It fingerprints the document set, loads artifacts when the
// fingerprint matches, and rebuilds the whole pipeline when it does not.
//
// All artifacts (extracted texts, chunk data, vector index, metadata) are
// keyed off one fingerprint; none is valid independent of the others.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/docstore"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/index"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/pipeline"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// Persisted artifact file names inside the cache directory.
const (
	textsFile    = "legal_texts.json"
	chunksFile   = "chunks_data.json"
	metadataFile = "system_metadata.json"
)

// ErrRebuildInProgress reports that a rebuild is already running.
var ErrRebuildInProgress = errors.New("a rebuild is already in progress")

// Manager is the pipeline state machine over {COLD, REBUILDING, VALID}.
type Manager struct {
	store     *docstore.Store
	processor *pipeline.Processor
	idx       index.Index
	cacheDir  string

	mu         sync.RWMutex
	texts      map[string]string
	chunks     []model.Chunk
	meta       *model.SystemMetadata
	progress   model.RebuildProgress
	rebuilding bool
}

// NewManager creates a Manager. idx may be nil when no vector index backend
// is available.
func NewManager(store *docstore.Store, processor *pipeline.Processor, idx index.Index, cacheDir string) *Manager {
	return &Manager{
		store:     store,
		processor: processor,
		idx:       idx,
		cacheDir:  cacheDir,
		progress:  model.RebuildProgress{State: model.StateCold, Stage: "not initialized"},
	}
}

// Initialize brings the system to VALID: from cache when the persisted
// fingerprint matches the current document set, otherwise through a full
// rebuild. Safe to call again after the document set changed; concurrent
// calls beyond the first return ErrRebuildInProgress.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.rebuilding {
		m.mu.Unlock()
		return ErrRebuildInProgress
	}
	m.rebuilding = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.rebuilding = false
		m.mu.Unlock()
	}()

	docs, err := m.store.List()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	current := docstore.Fingerprint(docs)

	if m.cacheValid(current) {
		log.Info("[Cache] cache is valid, loading persisted artifacts")
		if err := m.loadArtifacts(ctx); err == nil {
			m.setState(model.StateValid, "loaded from cache", 100, nil)
			return nil
		} else {
			log.Warnf("[Cache] failed to load cached artifacts, rebuilding: %v", err)
		}
	}

	return m.rebuild(ctx, docs, current)
}

// cacheValid compares the persisted metadata against the current
// fingerprint and checks that every artifact file exists.
func (m *Manager) cacheValid(currentHash string) bool {
	meta, err := m.readMetadata()
	if err != nil {
		log.Info("[Cache] no cache metadata found")
		return false
	}
	if meta.SystemVersion != model.SystemVersion {
		log.Infof("[Cache] schema version changed (%s -> %s), cache invalid", meta.SystemVersion, model.SystemVersion)
		return false
	}
	if meta.DocumentsHash != currentHash {
		log.Info("[Cache] documents have changed, cache invalid")
		return false
	}
	for _, name := range []string{textsFile, chunksFile} {
		if _, err := os.Stat(filepath.Join(m.cacheDir, name)); err != nil {
			log.Infof("[Cache] cache file missing: %s", name)
			return false
		}
	}
	return true
}

// loadArtifacts restores texts, chunks, metadata and the vector index from
// disk. The extractor and embedding provider are never invoked on this path.
func (m *Manager) loadArtifacts(ctx context.Context) error {
	var texts map[string]string
	if err := m.readJSON(textsFile, &texts); err != nil {
		return err
	}
	var chunks []model.Chunk
	if err := m.readJSON(chunksFile, &chunks); err != nil {
		return err
	}
	meta, err := m.readMetadata()
	if err != nil {
		return err
	}

	if m.idx != nil {
		if err := m.idx.Load(); err != nil {
			return fmt.Errorf("failed to load vector index: %w", err)
		}
		count, err := m.idx.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count vector index entries: %w", err)
		}
		if count != len(chunks) {
			return fmt.Errorf("vector index holds %d entries for %d chunks", count, len(chunks))
		}
	}

	m.mu.Lock()
	m.texts = texts
	m.chunks = chunks
	m.meta = meta
	m.mu.Unlock()

	log.Infof("[Cache] loaded %d documents and %d chunks from cache", len(texts), len(chunks))
	return nil
}

// rebuild runs the full pipeline and persists every artifact plus the new
// metadata. On any failure the state returns to COLD and nothing half-built
// is kept in memory.
func (m *Manager) rebuild(ctx context.Context, docs []model.DocumentInfo, fingerprint string) error {
	log.Info("[Cache] processing documents from scratch")
	start := time.Now()
	startedAt := start
	m.setState(model.StateRebuilding, "extracting text", 5, &startedAt)

	fail := func(err error) error {
		m.mu.Lock()
		m.progress.State = model.StateCold
		m.progress.Error = err.Error()
		now := time.Now()
		m.progress.FinishedAt = &now
		m.mu.Unlock()
		return err
	}

	if len(docs) == 0 {
		return fail(errors.New("no documents found"))
	}

	texts := m.processor.ExtractAll(m.store, docs)
	if len(texts) == 0 {
		return fail(errors.New("no text extracted from any document"))
	}

	m.setState(model.StateRebuilding, "chunking", 40, &startedAt)
	chunks, err := m.processor.ChunkAll(texts)
	if err != nil {
		return fail(err)
	}

	m.setState(model.StateRebuilding, "embedding and indexing", 60, &startedAt)
	err = m.processor.IndexAll(ctx, chunks, func(done, total int) {
		m.setState(model.StateRebuilding, "embedding and indexing", 60+done*35/total, &startedAt)
	})
	if err != nil {
		return fail(err)
	}

	m.setState(model.StateRebuilding, "persisting artifacts", 95, &startedAt)
	meta := &model.SystemMetadata{
		DocumentsHash:  fingerprint,
		DocumentCount:  len(docs),
		ChunksCount:    len(chunks),
		CreatedAt:      time.Now(),
		ProcessingTime: time.Since(start).Seconds(),
		SystemVersion:  model.SystemVersion,
	}
	if err := m.persistArtifacts(texts, chunks, meta); err != nil {
		return fail(err)
	}

	m.mu.Lock()
	m.texts = texts
	m.chunks = chunks
	m.meta = meta
	m.mu.Unlock()

	m.setState(model.StateValid, "rebuild complete", 100, &startedAt)
	log.Infof("[Cache] system initialized in %.1f seconds (%d chunks)", meta.ProcessingTime, meta.ChunksCount)
	return nil
}

// persistArtifacts writes every artifact; the metadata goes last so a crash
// mid-persist leaves an invalid cache rather than a lying fingerprint.
func (m *Manager) persistArtifacts(texts map[string]string, chunks []model.Chunk, meta *model.SystemMetadata) error {
	if err := os.MkdirAll(m.cacheDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	if err := m.writeJSON(textsFile, texts); err != nil {
		return err
	}
	if err := m.writeJSON(chunksFile, chunks); err != nil {
		return err
	}
	if m.idx != nil {
		if err := m.idx.Persist(); err != nil {
			return fmt.Errorf("failed to persist vector index: %w", err)
		}
	}
	return m.writeJSON(metadataFile, meta)
}

// Clear deletes every persisted artifact and forces the next initialization
// into a cold rebuild.
func (m *Manager) Clear(ctx context.Context) error {
	for _, name := range []string{textsFile, chunksFile, metadataFile} {
		path := filepath.Join(m.cacheDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	if m.idx != nil {
		if err := m.idx.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear vector index: %w", err)
		}
		if err := m.idx.Persist(); err != nil {
			return fmt.Errorf("failed to persist cleared index: %w", err)
		}
	}

	m.mu.Lock()
	m.texts = nil
	m.chunks = nil
	m.meta = nil
	m.progress = model.RebuildProgress{State: model.StateCold, Stage: "cache cleared"}
	m.mu.Unlock()

	log.Info("[Cache] all cached artifacts cleared")
	return nil
}

// ScheduleRebuild re-runs initialization in the background. Used when an
// ingest event announces a changed document set; an unchanged fingerprint
// makes the call a cheap cache reload.
func (m *Manager) ScheduleRebuild(reason string) {
	log.Infof("[Cache] rebuild scheduled: %s", reason)
	go func() {
		if err := m.Initialize(context.Background()); err != nil {
			if errors.Is(err, ErrRebuildInProgress) {
				log.Infof("[Cache] rebuild already running, skipping")
				return
			}
			log.Error("[Cache] scheduled rebuild failed", err)
		}
	}()
}

// Chunks returns the retained chunk sequence for the keyword fallback.
func (m *Manager) Chunks() []model.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chunks
}

// Metadata returns the current system metadata, nil before the first
// successful initialization.
func (m *Manager) Metadata() *model.SystemMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}

// Progress returns a copy of the pollable rebuild state record.
func (m *Manager) Progress() model.RebuildProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

// Index returns the vector index, nil when no backend is available.
func (m *Manager) Index() index.Index { return m.idx }

func (m *Manager) setState(state, stage string, percent int, startedAt *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.State = state
	m.progress.Stage = stage
	m.progress.Percent = percent
	m.progress.Error = ""
	if startedAt != nil {
		m.progress.StartedAt = startedAt
	}
	if state == model.StateValid {
		now := time.Now()
		m.progress.FinishedAt = &now
	} else {
		m.progress.FinishedAt = nil
	}
}

func (m *Manager) readMetadata() (*model.SystemMetadata, error) {
	var meta model.SystemMetadata
	if err := m.readJSON(metadataFile, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Manager) readJSON(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(m.cacheDir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *Manager) writeJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(m.cacheDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return os.Rename(tmp, path)
}
