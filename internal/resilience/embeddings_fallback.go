package resilience

import (
	"context"

	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
)

// EmbeddingsFallback implements [embeddings.Provider] with automatic failover
// across multiple embedding backends. Each backend has its own circuit
// breaker.
//
// All backends must produce vectors from the same model family: embeddings
// from different models are not comparable, and persisted reference vectors
// are keyed by model ID.
type EmbeddingsFallback struct {
	group *FallbackGroup[embeddings.Provider]
}

// Compile-time interface assertion.
var _ embeddings.Provider = (*EmbeddingsFallback)(nil)

// NewEmbeddingsFallback creates an [EmbeddingsFallback] with primary as the
// preferred backend.
func NewEmbeddingsFallback(primary embeddings.Provider, primaryName string, cfg FallbackConfig) *EmbeddingsFallback {
	return &EmbeddingsFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional embeddings provider as a fallback.
func (f *EmbeddingsFallback) AddFallback(name string, provider embeddings.Provider) {
	f.group.AddFallback(name, provider)
}

// Embed computes the embedding with the first healthy provider.
func (f *EmbeddingsFallback) Embed(ctx context.Context, sig audio.Signal) ([]float32, error) {
	return ExecuteWithResult(f.group, func(p embeddings.Provider) ([]float32, error) {
		return p.Embed(ctx, sig)
	})
}

// Dimensions returns the primary's vector dimension. Static metadata does
// not participate in failover.
func (f *EmbeddingsFallback) Dimensions() int {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.Dimensions()
	}
	return 0
}

// ModelID returns the primary's model identifier.
func (f *EmbeddingsFallback) ModelID() string {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.ModelID()
	}
	return ""
}
