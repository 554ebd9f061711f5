// Package pipeline runs the ingestion stages of a full rebuild: text
// extraction, chunking, embedding and vector index ingestion.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/docstore"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/index"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/chunker"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/embedding"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// Extractor converts one document file into cleaned plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

// Processor bundles the ingestion dependencies for a rebuild.
type Processor struct {
	extractor Extractor
	strategy  chunker.Strategy
	minChars  int
	provider  embedding.Provider
	idx       index.Index
}

// NewProcessor creates a Processor. idx may be nil when no vector index
// backend is available; extraction and chunking still run so the keyword
// fallback has data.
func NewProcessor(ext Extractor, strategy chunker.Strategy, minChars int, provider embedding.Provider, idx index.Index) *Processor {
	return &Processor{
		extractor: ext,
		strategy:  strategy,
		minChars:  minChars,
		provider:  provider,
		idx:       idx,
	}
}

// ExtractAll runs the extractor over every document. A document that fails
// entirely logs and contributes no text; the batch never aborts over one
// document.
func (p *Processor) ExtractAll(store *docstore.Store, docs []model.DocumentInfo) map[string]string {
	log.Infof("[Processor] step 1: extracting text from %d documents", len(docs))
	texts := make(map[string]string)
	for _, doc := range docs {
		text, err := p.extractor.Extract(store.Path(doc.Name))
		if err != nil {
			log.Warnf("[Processor] no text extracted from '%s': %v", doc.Name, err)
			continue
		}
		texts[doc.Name] = text
	}
	log.Infof("[Processor] step 1 complete: %d/%d documents yielded text", len(texts), len(docs))
	return texts
}

// ChunkAll chunks every extracted text in document-name order, so a rebuild
// over an unchanged corpus reproduces byte-identical chunk sequences.
func (p *Processor) ChunkAll(texts map[string]string) ([]model.Chunk, error) {
	names := make([]string, 0, len(texts))
	for name := range texts {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []model.Chunk
	for _, name := range names {
		chunks, err := chunker.Build(name, texts[name], p.strategy, p.minChars)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk '%s': %w", name, err)
		}
		all = append(all, chunks...)
	}
	log.Infof("[Processor] step 2 complete: created %d text chunks", len(all))
	return all, nil
}

// IndexAll clears the vector index and re-ingests every chunk in batches.
// Entry ids follow ingestion order ("chunk_{offset}"), and the batch size
// bounds both peak memory and the work lost on process termination.
func (p *Processor) IndexAll(ctx context.Context, chunks []model.Chunk, progress func(done, total int)) error {
	if p.idx == nil {
		log.Warnf("[Processor] no vector index available, skipping embedding stage")
		return nil
	}
	if err := p.idx.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}

	total := len(chunks)
	for start := 0; start < total; start += index.UpsertBatchSize {
		end := start + index.UpsertBatchSize
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.provider.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}

		entries := make([]model.IndexEntry, len(batch))
		for i, c := range batch {
			entries[i] = model.IndexEntry{
				VectorID:     fmt.Sprintf("chunk_%d", start+i),
				Meta:         c.Meta,
				Text:         c.Text,
				Vector:       vectors[i],
				ModelVersion: p.provider.Model(),
			}
		}
		if err := p.idx.Upsert(ctx, entries); err != nil {
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}

		log.Infof("[Processor] step 3: indexed batch %d/%d", start/index.UpsertBatchSize+1, (total+index.UpsertBatchSize-1)/index.UpsertBatchSize)
		if progress != nil {
			progress(end, total)
		}
	}
	return nil
}
