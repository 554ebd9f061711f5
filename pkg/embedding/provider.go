// Package embedding maps passage and query texts to fixed-length vectors.
//
// Two implementations satisfy the single Provider contract: a remote
// OpenAI-compatible embeddings API (primary) and a local deterministic
// hashing embedder (fallback). Callers never branch on which one is active.
package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// ErrEmbeddingUnavailable reports that neither the primary nor the fallback
// provider could be constructed. This is fatal to system initialization.
var ErrEmbeddingUnavailable = errors.New("no embedding provider available")

// Provider maps texts to fixed-dimension vectors, preserving input order.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the fixed vector dimension of this provider.
	Dimension() int
	// Model identifies the embedding model in use.
	Model() string
}

// NewProvider selects the embedding provider at construction time. The
// remote provider is probed once; on probe failure the fallback is selected
// with a single logged warning, and callers see no difference afterwards.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	if cfg.BaseURL != "" && cfg.APIKey != "" {
		remote := newRemoteProvider(cfg)
		probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := remote.Embed(probeCtx, []string{"probe"}); err == nil {
			log.Infof("[Embedding] remote provider ready, model: %s, dimensions: %d", remote.Model(), remote.Dimension())
			return remote, nil
		} else {
			log.Warnf("[Embedding] remote provider unavailable, falling back to local embedder: %v", err)
		}
	}

	local, err := newLocalProvider()
	if err != nil {
		return nil, ErrEmbeddingUnavailable
	}
	log.Infof("[Embedding] local fallback provider ready, dimensions: %d", local.Dimension())
	return local, nil
}

// Serialized wraps a Provider with a mutex. The shared model resource is not
// assumed thread-safe, so concurrent query handlers must funnel inference
// through one call at a time.
type Serialized struct {
	mu   sync.Mutex
	Next Provider
}

// NewSerialized wraps p so concurrent Embed calls are serialized.
func NewSerialized(p Provider) *Serialized {
	return &Serialized{Next: p}
}

// Embed forwards to the wrapped provider under the mutex.
func (s *Serialized) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Next.Embed(ctx, texts)
}

// Dimension forwards to the wrapped provider.
func (s *Serialized) Dimension() int { return s.Next.Dimension() }

// Model forwards to the wrapped provider.
func (s *Serialized) Model() string { return s.Next.Model() }
