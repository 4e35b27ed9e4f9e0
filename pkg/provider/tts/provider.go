// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a synthesis service (a local Coqui server, the OpenAI
// speech API, or a mock in tests). The assessment pipeline uses synthesis in
// exactly one way: rendering a canonical reference reading of the target text
// so learners can hear the expected pronunciation and so the embedding scorer
// has something to compare against. That is a pure function from
// (text, language) to audio content, which is what makes the reference cache
// sound — so the interface is batch, not streaming.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any batch TTS backend.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel.
type Provider interface {
	// Synthesize renders text in the given language and returns a complete
	// WAV clip (16-bit PCM). language is a BCP-47 primary subtag (e.g.,
	// "en", "hi"); an empty string selects the provider's default voice
	// language.
	//
	// The result for a given (text, language) pair must be stable enough to
	// cache: callers memoize it by content key and never re-synthesize
	// within a process lifetime.
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}
