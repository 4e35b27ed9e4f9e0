// Package mock provides a test double for the embeddings package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
//
// When EmbedFunc is set it is called for every Embed; otherwise Vector/Err
// are returned. The zero value returns a nil vector from every call.
type Provider struct {
	mu sync.Mutex

	// EmbedFunc, when non-nil, computes the result of Embed. Useful for
	// returning different vectors per clip (e.g., keyed by clip length).
	EmbedFunc func(sig audio.Signal) ([]float32, error)

	// Vector is returned from Embed when EmbedFunc is nil and Err is nil.
	Vector []float32

	// Err, if non-nil, is returned as the error from Embed.
	Err error

	// EmbedCalls counts invocations of Embed.
	EmbedCalls int
}

var _ embeddings.Provider = (*Provider)(nil)

// Embed records the call and returns the configured result.
func (p *Provider) Embed(_ context.Context, sig audio.Signal) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls++
	fn := p.EmbedFunc
	vec, err := p.Vector, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(sig)
	}
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// Dimensions returns the length of Vector, or 0.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Vector)
}

// ModelID returns a fixed identifier for logging.
func (p *Provider) ModelID() string { return "mock" }
