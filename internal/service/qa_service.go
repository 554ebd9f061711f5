// Package service implements the question answering business logic.
package service

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/cache"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/index"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/database"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/embedding"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/llm"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// TopK is how many chunks retrieval returns per question.
const TopK = 5

// How much retrieved text the generative service sees per question.
const (
	llmContextChunks    = 3
	llmChunkCharLimit   = 800
	noInformationAnswer = "No relevant legal information found in the available documents."
)

// QAService answers legal questions over the indexed document set.
type QAService interface {
	// Ask answers a question. It never returns a raw retrieval or synthesis
	// error; failures degrade to the fixed no-information answer.
	Ask(ctx context.Context, question string) (*model.AskResult, error)
	// StreamAsk streams the answer into writer chunk by chunk and returns
	// the final result metadata (sources, confidence) once done.
	StreamAsk(ctx context.Context, question string, writer llm.MessageWriter) (*model.AskResult, error)
}

type qaService struct {
	cacheMgr  *cache.Manager
	provider  embedding.Provider
	llmClient llm.Client
}

// NewQAService creates a QAService. llmClient may be nil, in which case
// every answer is synthesized extractively.
func NewQAService(cacheMgr *cache.Manager, provider embedding.Provider, llmClient llm.Client) QAService {
	return &qaService{
		cacheMgr:  cacheMgr,
		provider:  provider,
		llmClient: llmClient,
	}
}

func (s *qaService) Ask(ctx context.Context, question string) (*model.AskResult, error) {
	question = strings.TrimSpace(question)
	log.Infof("[QAService] question received: '%s'", question)

	if cached := s.readAnswerCache(ctx, question); cached != nil {
		log.Info("[QAService] answer served from cache")
		return cached, nil
	}

	log.Info("[QAService] step 1: retrieving relevant chunks")
	hits := s.retrieve(ctx, question)
	if len(hits) == 0 {
		log.Infof("[QAService] no relevant chunks for question: '%s'", question)
		return &model.AskResult{
			Question:   question,
			Answer:     noInformationAnswer,
			Sources:    []string{},
			Confidence: 0,
		}, nil
	}
	log.Infof("[QAService] step 1: retrieved %d chunks", len(hits))

	log.Info("[QAService] step 2: synthesizing answer")
	answer, aiPowered := s.synthesize(ctx, question, hits)

	result := &model.AskResult{
		Question:   question,
		Answer:     answer,
		Sources:    sourceNames(hits),
		Confidence: confidence(len(hits)),
		AIPowered:  aiPowered,
	}
	s.writeAnswerCache(ctx, question, result)
	log.Infof("[QAService] answered (ai_powered=%v, confidence=%.2f)", aiPowered, result.Confidence)
	return result, nil
}

func (s *qaService) StreamAsk(ctx context.Context, question string, writer llm.MessageWriter) (*model.AskResult, error) {
	question = strings.TrimSpace(question)
	log.Infof("[QAService] streaming question received: '%s'", question)

	hits := s.retrieve(ctx, question)
	result := &model.AskResult{
		Question:   question,
		Answer:     noInformationAnswer,
		Sources:    []string{},
		Confidence: 0,
	}
	if len(hits) == 0 {
		err := writer.WriteMessage(websocket.TextMessage, []byte(noInformationAnswer))
		return result, err
	}

	result.Sources = sourceNames(hits)
	result.Confidence = confidence(len(hits))

	if s.llmClient != nil {
		if err := s.llmClient.StreamAnswer(ctx, question, buildContext(hits), writer); err == nil {
			result.AIPowered = true
			result.Answer = ""
			return result, nil
		} else {
			log.Warnf("[QAService] streaming synthesis failed, falling back to extractive: %v", err)
		}
	}

	answer := extractiveAnswer(question, hits)
	result.Answer = answer
	err := writer.WriteMessage(websocket.TextMessage, []byte(answer))
	return result, err
}

// retrieve runs vector retrieval when an index is available and falls back
// to keyword search over the retained chunks otherwise.
func (s *qaService) retrieve(ctx context.Context, question string) []model.ScoredChunk {
	if idx := s.cacheMgr.Index(); idx != nil && indexPopulated(ctx, idx) {
		vectors, err := s.provider.Embed(ctx, []string{question})
		if err != nil {
			log.Warnf("[QAService] failed to embed question, using keyword search: %v", err)
		} else {
			hits, err := idx.Query(ctx, vectors[0], TopK)
			if err == nil {
				return hits
			}
			if errors.Is(err, index.ErrIndexUnavailable) {
				log.Warnf("[QAService] vector index unavailable, using keyword search")
			} else {
				log.Warnf("[QAService] vector query failed, using keyword search: %v", err)
			}
		}
	}
	return keywordSearch(s.cacheMgr.Chunks(), question, TopK)
}

// indexPopulated reports whether the index holds any entries. An empty
// index answers nothing useful, so retrieval drops to keyword search.
func indexPopulated(ctx context.Context, idx index.Index) bool {
	count, err := idx.Count(ctx)
	if err != nil {
		log.Warnf("[QAService] failed to count index entries, using keyword search: %v", err)
		return false
	}
	return count > 0
}

// synthesize prefers the generative service and degrades to extractive
// synthesis on any failure. The second return reports which path produced
// the answer.
func (s *qaService) synthesize(ctx context.Context, question string, hits []model.ScoredChunk) (string, bool) {
	if s.llmClient != nil {
		answer, err := s.llmClient.Answer(ctx, question, buildContext(hits))
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer, true
		}
		log.Warnf("[QAService] generative synthesis failed, falling back to extractive: %v", err)
	}
	return extractiveAnswer(question, hits), false
}

// buildContext concatenates the top chunks with document attribution,
// each bounded so the prompt stays within the model's context budget.
func buildContext(hits []model.ScoredChunk) string {
	var b strings.Builder
	for i, hit := range hits {
		if i == llmContextChunks {
			break
		}
		docName := strings.ReplaceAll(hit.Meta.Document, "_", " ")
		fmt.Fprintf(&b, "From %s:\n%s\n\n", docName, truncate(hit.Text, llmChunkCharLimit))
	}
	return b.String()
}

// sourceNames deduplicates the hit documents, first hit first, with
// underscores turned into spaces for display.
func sourceNames(hits []model.ScoredChunk) []string {
	seen := make(map[string]struct{})
	sources := make([]string, 0, len(hits))
	for _, hit := range hits {
		name := strings.ReplaceAll(hit.Meta.Document, "_", " ")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources
}

func confidence(hitCount int) float64 {
	c := float64(hitCount) / float64(TopK)
	if c > 1 {
		c = 1
	}
	return c
}

// Answer cache. Keys carry the document-set fingerprint so cached answers
// expire with the document set, not just with the TTL.
func (s *qaService) answerCacheKey(question string) string {
	meta := s.cacheMgr.Metadata()
	if meta == nil {
		return ""
	}
	return fmt.Sprintf("qa:answer:%s:%x", meta.DocumentsHash, md5.Sum([]byte(strings.ToLower(question))))
}

func (s *qaService) readAnswerCache(ctx context.Context, question string) *model.AskResult {
	if database.RDB == nil {
		return nil
	}
	key := s.answerCacheKey(question)
	if key == "" {
		return nil
	}
	data, err := database.RDB.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var result model.AskResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *qaService) writeAnswerCache(ctx context.Context, question string, result *model.AskResult) {
	if database.RDB == nil {
		return
	}
	key := s.answerCacheKey(question)
	if key == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	ttl := time.Duration(config.Conf.Redis.AnswerTTLm) * time.Minute
	if err := database.RDB.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Warnf("[QAService] failed to cache answer: %v", err)
	}
}
