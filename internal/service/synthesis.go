package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

const fallbackPrefixLen = 400

// Topic keyword tables for extractive synthesis. Each detected topic
// filters retrieved chunks down to the sentences that carry its keywords.
var (
	rightsKeywords      = []string{"right", "freedom", "liberty", "shall have"}
	penaltyKeywords     = []string{"penalty", "fine", "imprisonment", "punish", "sentence"}
	citizenshipKeywords = []string{"citizen", "citizenship", "national", "domiciled"}
	environmentKeywords = []string{"environment", "forest", "natural", "conservation", "pollution"}
	electionKeywords    = []string{"election", "vote", "ballot", "candidate", "assembly"}
)

// extractiveAnswer builds an answer directly from the retrieved chunks when
// no generative service is available. The question's topic picks the
// keyword table and the attribution phrasing.
func extractiveAnswer(question string, hits []model.ScoredChunk) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "rights") || strings.Contains(q, "fundamental"):
		return extractRights(hits)
	case strings.Contains(q, "penalty") || strings.Contains(q, "punishment"):
		return extractByKeywords(hits, penaltyKeywords, 2,
			func(docName string) string { return fmt.Sprintf("According to %s: ", docName) },
			"Based on the legal provisions: ")
	case strings.Contains(q, "citizenship"):
		return extractByKeywords(hits, citizenshipKeywords, 2,
			func(string) string { return "Regarding citizenship in Bhutan: " },
			"Based on Bhutan's legal framework: ")
	case strings.Contains(q, "environment"):
		return extractByKeywords(hits, environmentKeywords, 2,
			func(string) string { return "Bhutan's environmental laws state: " },
			"Based on environmental provisions: ")
	case strings.Contains(q, "election"):
		return extractByKeywords(hits, electionKeywords, 2,
			func(string) string { return "Regarding elections in Bhutan: " },
			"Based on election laws: ")
	default:
		return extractGeneral(question, hits)
	}
}

// extractRights prefers constitution chunks, since that is where the
// fundamental-rights language lives.
func extractRights(hits []model.ScoredChunk) string {
	for _, hit := range hits {
		if !strings.Contains(strings.ToLower(hit.Meta.Document), "constitution") {
			continue
		}
		sentences := matchingSentences(hit.Text, rightsKeywords, 3)
		if len(sentences) > 0 {
			return fmt.Sprintf("According to Bhutan's Constitution, the fundamental rights include: %s.",
				strings.Join(sentences, ". "))
		}
	}
	return "Based on Bhutan's legal documents: " + truncate(hits[0].Text, fallbackPrefixLen) + "..."
}

// extractByKeywords returns the first chunk's keyword sentences under the
// topic's attribution prefix, or the fallback prefix of the top chunk.
func extractByKeywords(hits []model.ScoredChunk, keywords []string, maxSentences int,
	attribution func(docName string) string, fallbackPrefix string) string {
	for _, hit := range hits {
		sentences := matchingSentences(hit.Text, keywords, maxSentences)
		if len(sentences) > 0 {
			docName := strings.ReplaceAll(hit.Meta.Document, "_", " ")
			return attribution(docName) + strings.Join(sentences, ". ") + "."
		}
	}
	return fallbackPrefix + truncate(hits[0].Text, fallbackPrefixLen) + "..."
}

// extractGeneral ranks every sentence across the hits by question-word
// overlap and returns the best two.
func extractGeneral(question string, hits []model.ScoredChunk) string {
	questionWords := distinctWords(strings.ToLower(question))

	type ranked struct {
		score    int
		sentence string
	}
	var best []ranked
	for _, hit := range hits {
		for _, sentence := range strings.Split(hit.Text, ".") {
			sentence = strings.TrimSpace(sentence)
			if len(sentence) <= 20 {
				continue
			}
			lower := strings.ToLower(sentence)
			score := 0
			for _, word := range questionWords {
				if strings.Contains(lower, word) {
					score++
				}
			}
			if score > 0 {
				best = append(best, ranked{score, sentence})
			}
		}
	}

	if len(best) > 0 {
		sort.SliceStable(best, func(i, j int) bool { return best[i].score > best[j].score })
		top := make([]string, 0, 2)
		for _, r := range best {
			top = append(top, r.sentence)
			if len(top) == 2 {
				break
			}
		}
		return fmt.Sprintf("According to Bhutan's legal documents: %s.", strings.Join(top, ". "))
	}
	return "Based on the available legal text: " + truncate(hits[0].Text, fallbackPrefixLen) + "..."
}

// matchingSentences returns up to max trimmed sentences containing any of
// the keywords, in document order.
func matchingSentences(text string, keywords []string, max int) []string {
	var matched []string
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, sentence)
				break
			}
		}
		if len(matched) == max {
			break
		}
	}
	return matched
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
