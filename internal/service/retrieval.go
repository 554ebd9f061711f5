package service

import (
	"sort"
	"strings"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

// Keyword scoring weights. Phrase containment dominates, individual word
// overlap accumulates, and a small boost rewards chunks whose source
// document matches the legal topic of the question.
const (
	scoreExactPhrase = 10
	scoreWordMatch   = 2
	boostStrongTopic = 5
	boostWeakTopic   = 3
)

// keywordSearch scores every retained chunk against the question and
// returns up to k chunks with a positive score, best first. Ties keep the
// original chunk order.
func keywordSearch(chunks []model.Chunk, question string, k int) []model.ScoredChunk {
	questionLower := strings.ToLower(question)
	questionWords := distinctWords(questionLower)

	scored := make([]model.ScoredChunk, 0, k)
	for _, chunk := range chunks {
		chunkLower := strings.ToLower(chunk.Text)

		score := 0
		if strings.Contains(chunkLower, questionLower) {
			score += scoreExactPhrase
		}
		for _, word := range questionWords {
			if strings.Contains(chunkLower, word) {
				score += scoreWordMatch
			}
		}
		score += topicBoost(questionLower, strings.ToLower(chunk.Meta.Document))

		if score > 0 {
			scored = append(scored, model.ScoredChunk{
				Meta:  chunk.Meta,
				Text:  chunk.Text,
				Score: float64(score),
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// topicBoost rewards a chunk whose source document name matches a legal
// topic recognized in the question.
func topicBoost(questionLower, docNameLower string) int {
	switch {
	case strings.Contains(questionLower, "constitution") && strings.Contains(docNameLower, "constitution"):
		return boostStrongTopic
	case strings.Contains(questionLower, "corruption") && strings.Contains(docNameLower, "corruption"):
		return boostStrongTopic
	case strings.Contains(questionLower, "rights") && strings.Contains(docNameLower, "constitution"):
		return boostWeakTopic
	}
	return 0
}

// distinctWords splits a lowercase question into its distinct words,
// preserving first-seen order.
func distinctWords(s string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, w := range strings.Fields(s) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
