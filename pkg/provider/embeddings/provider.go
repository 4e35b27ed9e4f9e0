// Package embeddings defines the Provider interface for acoustic embedding
// backends.
//
// An embeddings provider wraps a service that maps a short audio clip to a
// dense float32 vector (e.g., a local speaker-embedding or wav2vec inference
// server). The pronunciation scorer only requires that two vectors from the
// same Provider are comparable via cosine similarity — it is agnostic to the
// vector's dimensionality or model origin.
//
// Implementations must be safe for concurrent use.
package embeddings

import (
	"context"
	"math"

	"github.com/MrWong99/oratio/pkg/audio"
)

// Provider is the abstraction over any acoustic-embedding backend.
//
// All embedding vectors returned by a single Provider instance must share
// the same dimensionality (returned by Dimensions). Callers must not mix
// vectors from different Provider instances in the same similarity
// computation.
type Provider interface {
	// Embed computes the embedding vector for a single audio clip. Returns
	// a float32 slice of length Dimensions() or an error if the request
	// fails or ctx is cancelled.
	Embed(ctx context.Context, sig audio.Signal) ([]float32, error)

	// Dimensions returns the fixed length of every embedding vector
	// produced by this provider. The value is determined by the underlying
	// model and is constant for the lifetime of the Provider instance.
	Dimensions() int

	// ModelID returns the provider-specific model identifier used for
	// embeddings. Useful for logging and for ensuring vectors stored in the
	// history database were produced by the same model.
	ModelID() string
}

// CosineSimilarity computes the cosine similarity of two vectors in
// [-1, 1]. Returns 0 when either vector is empty, zero-length in magnitude,
// or the dimensions differ — degenerate inputs score as "no information",
// never as an arithmetic fault.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
