package acoustic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/oratio/internal/refaudio"
	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
)

// ReferenceSource yields a reference rendition of text in the given
// language, typically synthesized speech served from a cache.
type ReferenceSource interface {
	Reference(ctx context.Context, text, language string) (audio.Signal, error)
}

// EmbeddingStore persists reference embeddings across process restarts.
// found is false when no embedding is stored under key for the model.
type EmbeddingStore interface {
	ReferenceEmbedding(ctx context.Context, key, model string) (vec []float32, found bool, err error)
	UpsertReferenceEmbedding(ctx context.Context, key, model string, vec []float32) error
}

// Pronouncer scores spoken clips against synthesized references by cosine
// similarity of their acoustic embeddings.
type Pronouncer struct {
	emb   embeddings.Provider
	refs  ReferenceSource
	store EmbeddingStore
	log   *slog.Logger

	mu    sync.Mutex
	cache map[string][]float32 // reference embeddings by cache key
}

// PronouncerOption configures a Pronouncer.
type PronouncerOption func(*Pronouncer)

// WithEmbeddingStore persists reference embeddings through store, so a
// restart does not recompute them. Store failures degrade to recomputing.
func WithEmbeddingStore(store EmbeddingStore) PronouncerOption {
	return func(p *Pronouncer) {
		p.store = store
	}
}

// WithLogger sets the logger used for store degradations.
func WithLogger(log *slog.Logger) PronouncerOption {
	return func(p *Pronouncer) {
		p.log = log
	}
}

// NewPronouncer creates a Pronouncer using the given embedding provider and
// reference source.
func NewPronouncer(emb embeddings.Provider, refs ReferenceSource, opts ...PronouncerOption) *Pronouncer {
	p := &Pronouncer{
		emb:   emb,
		refs:  refs,
		log:   slog.Default(),
		cache: make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ScoreClip embeds the clip and the reference rendition of text and maps
// their cosine similarity onto [0, 100]: identical embeddings score 100,
// orthogonal ones 50, opposed ones 0.
func (p *Pronouncer) ScoreClip(ctx context.Context, text, language string, clip audio.Signal) (float64, error) {
	if clip.Empty() {
		return 0, fmt.Errorf("acoustic: empty clip for %q", text)
	}

	ref, err := p.referenceEmbedding(ctx, text, language)
	if err != nil {
		return 0, err
	}
	spoken, err := p.emb.Embed(ctx, clip)
	if err != nil {
		return 0, fmt.Errorf("acoustic: embed clip: %w", err)
	}

	sim := embeddings.CosineSimilarity(spoken, ref)
	score := (sim + 1) * 50
	if score < 0 {
		return 0, nil
	}
	if score > 100 {
		return 100, nil
	}
	return score, nil
}

// referenceEmbedding returns the embedding of the reference rendition of
// text, checking the in-memory cache, then the persistent store, before
// synthesizing and embedding from scratch. References are stable for a
// given text, language, and model, so once computed they never change.
func (p *Pronouncer) referenceEmbedding(ctx context.Context, text, language string) ([]float32, error) {
	key := refaudio.Key(text, language)

	p.mu.Lock()
	vec, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return vec, nil
	}

	if p.store != nil {
		vec, found, err := p.store.ReferenceEmbedding(ctx, key, p.emb.ModelID())
		if err != nil {
			p.log.Warn("reference embedding lookup failed", "error", err)
		} else if found {
			p.remember(key, vec)
			return vec, nil
		}
	}

	ref, err := p.refs.Reference(ctx, text, language)
	if err != nil {
		return nil, fmt.Errorf("acoustic: reference for %q: %w", text, err)
	}
	vec, err = p.emb.Embed(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("acoustic: embed reference: %w", err)
	}

	if p.store != nil {
		if err := p.store.UpsertReferenceEmbedding(ctx, key, p.emb.ModelID(), vec); err != nil {
			p.log.Warn("reference embedding persist failed", "error", err)
		}
	}
	p.remember(key, vec)
	return vec, nil
}

func (p *Pronouncer) remember(key string, vec []float32) {
	p.mu.Lock()
	p.cache[key] = vec
	p.mu.Unlock()
}
