package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// localDimensions is the fixed vector dimension of the fallback embedder.
const localDimensions = 384

// localProvider is the fallback implementation: a deterministic token-hashing
// embedder. Each token hashes into a handful of vector positions and the
// result is L2-normalized, so identical texts always produce identical
// vectors and lexically similar texts land near each other under cosine
// similarity. It needs no model download and no corpus preparation.
type localProvider struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func newLocalProvider() (*localProvider, error) {
	return &localProvider{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}, nil
}

// Embed returns one vector per text, in input order.
func (p *localProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = p.embedOne(text)
	}
	return vectors, nil
}

func (p *localProvider) embedOne(text string) []float32 {
	vec := make([]float32, localDimensions)
	tokens := p.tokenize(text)
	for _, tok := range tokens {
		if _, isStop := p.stopwords[tok]; isStop {
			continue
		}
		// Spread each token over three signed positions so collisions do
		// not collapse distinct vocabularies onto one axis.
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for k := 0; k < 3; k++ {
			idx := int((sum >> (k * 16)) % localDimensions)
			sign := float32(1)
			if (sum>>(k*16+15))&1 == 1 {
				sign = -1
			}
			vec[idx] += sign
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (p *localProvider) tokenize(text string) []string {
	return p.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Dimension returns the fixed fallback dimension.
func (p *localProvider) Dimension() int { return localDimensions }

// Model identifies the fallback embedder.
func (p *localProvider) Model() string { return "local-hashing-v1" }

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "he", "in", "is", "it", "its", "of", "on", "or", "shall",
		"that", "the", "to", "was", "were", "will", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
