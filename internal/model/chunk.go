// Package model defines the data structures shared across the pipeline.
package model

// ChunkMeta is the provenance metadata attached to every retained chunk.
type ChunkMeta struct {
	Document    string `json:"document"`
	ChunkID     int    `json:"chunk_id"`
	TotalChunks int    `json:"total_chunks"`
	DocType     string `json:"doc_type"`
}

// Chunk is one overlapping, size-bounded passage of a document's word
// sequence together with its metadata.
type Chunk struct {
	Meta ChunkMeta `json:"meta"`
	Text string    `json:"text"`
}

// IndexEntry is what the vector index persists for one chunk: the embedding
// vector, the chunk text and metadata, and a unique id derived from
// ingestion order ("chunk_{offset}").
type IndexEntry struct {
	VectorID     string    `json:"vector_id"`
	Meta         ChunkMeta `json:"meta"`
	Text         string    `json:"text"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// ScoredChunk is a retrieval hit: chunk text, metadata and relevance score.
type ScoredChunk struct {
	Meta  ChunkMeta `json:"meta"`
	Text  string    `json:"text"`
	Score float64   `json:"score"`
}
