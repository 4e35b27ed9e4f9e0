// Package mock provides a test double for the tts package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/oratio/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	Text     string
	Language string
}

// Provider is a mock implementation of tts.Provider. The zero value returns
// an empty clip from every call.
type Provider struct {
	mu sync.Mutex

	// WAV is returned from Synthesize when Err is nil.
	WAV []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// SynthesizeCalls records every call to Synthesize.
	SynthesizeCalls []SynthesizeCall
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns WAV, Err.
func (p *Provider) Synthesize(_ context.Context, text, language string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Language: language})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.WAV, nil
}

// Calls returns a snapshot of recorded calls, safe to read concurrently
// with in-flight Synthesize calls.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}
