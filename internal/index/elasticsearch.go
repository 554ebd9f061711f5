package index

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// esIndex stores entries in an Elasticsearch dense_vector index with cosine
// similarity and answers queries through the kNN search API.
type esIndex struct {
	client    *elasticsearch.Client
	indexName string
}

func newESIndex(cfg config.ElasticsearchConfig, dimensions int) (*esIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	idx := &esIndex{client: client, indexName: cfg.IndexName}
	if err := idx.createIndexIfNotExists(dimensions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	return idx, nil
}

// createIndexIfNotExists checks for the index and creates it with the
// dense_vector mapping when absent.
func (e *esIndex) createIndexIfNotExists(dimensions int) error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("[Index] elasticsearch index '%s' already exists", e.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status checking index existence: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"document": { "type": "keyword" },
				"chunk_id": { "type": "integer" },
				"total_chunks": { "type": "integer" },
				"doc_type": { "type": "keyword" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, dimensions)

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return err
	}
	if res.IsError() {
		return errors.New("elasticsearch returned an error creating index")
	}
	log.Infof("[Index] elasticsearch index '%s' created", e.indexName)
	return nil
}

type esDocument struct {
	VectorID     string    `json:"vector_id"`
	Document     string    `json:"document"`
	ChunkID      int       `json:"chunk_id"`
	TotalChunks  int       `json:"total_chunks"`
	DocType      string    `json:"doc_type"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// Upsert indexes every entry under its vector id.
func (e *esIndex) Upsert(ctx context.Context, entries []model.IndexEntry) error {
	for _, entry := range entries {
		doc := esDocument{
			VectorID:     entry.VectorID,
			Document:     entry.Meta.Document,
			ChunkID:      entry.Meta.ChunkID,
			TotalChunks:  entry.Meta.TotalChunks,
			DocType:      entry.Meta.DocType,
			TextContent:  entry.Text,
			Vector:       entry.Vector,
			ModelVersion: entry.ModelVersion,
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		req := esapi.IndexRequest{
			Index:      e.indexName,
			DocumentID: entry.VectorID,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, e.client)
		if err != nil {
			return fmt.Errorf("failed to index entry %s: %w", entry.VectorID, err)
		}
		if res.IsError() {
			res.Body.Close()
			return fmt.Errorf("elasticsearch error indexing entry %s: %s", entry.VectorID, res.String())
		}
		res.Body.Close()
	}
	return nil
}

// Query runs a kNN search and maps hits to scored chunks.
func (e *esIndex) Query(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k < 1 {
		return []model.ScoredChunk{}, nil
	}

	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"size": k,
	}
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source esDocument `json:"_source"`
				Score  float64    `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.ScoredChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.ScoredChunk{
			Meta: model.ChunkMeta{
				Document:    hit.Source.Document,
				ChunkID:     hit.Source.ChunkID,
				TotalChunks: hit.Source.TotalChunks,
				DocType:     hit.Source.DocType,
			},
			Text:  hit.Source.TextContent,
			Score: hit.Score,
		})
	}
	return results, nil
}

// Count reports the number of documents in the index.
func (e *esIndex) Count(ctx context.Context) (int, error) {
	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.indexName),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count failed: %s", res.String())
	}
	var countResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, err
	}
	return countResp.Count, nil
}

// Clear deletes every entry, keeping the index and its mapping.
func (e *esIndex) Clear(ctx context.Context) error {
	query := strings.NewReader(`{"query":{"match_all":{}}}`)
	res, err := e.client.DeleteByQuery([]string{e.indexName}, query,
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch delete-by-query failed: %s", res.String())
	}
	return nil
}

// Persist is a no-op: Elasticsearch is durable on its own.
func (e *esIndex) Persist() error { return nil }

// Load is a no-op: entries live in Elasticsearch across restarts.
func (e *esIndex) Load() error { return nil }
