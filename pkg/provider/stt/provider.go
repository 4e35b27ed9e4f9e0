// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription engine (a local whisper.cpp model, or
// a mock in tests) and exposes single-shot batch transcription: one complete
// utterance in, one Result with per-word timing and confidence out. The
// assessment pipeline is whole-utterance by design, so there is no streaming
// session abstraction here.
//
// Implementations must be safe for concurrent use. Multiple assessments may
// transcribe in parallel.
package stt

import (
	"context"

	"github.com/MrWong99/oratio/pkg/audio"
)

// Config describes the recognition hints for a transcription call.
type Config struct {
	// Language is the BCP-47 primary subtag for recognition (e.g., "en",
	// "hi"). An empty string lets the provider auto-detect, if supported.
	Language string
}

// Word holds per-word detail from the transcription result. Times are in
// seconds from the start of the clip.
type Word struct {
	// Word is the recognised word with surrounding punctuation stripped.
	Word string

	// Start and End bound the word in the audio clip, in seconds.
	Start float64
	End   float64

	// Confidence is the acoustic-model probability for this word in [0, 1].
	// Zero when the provider does not report confidence.
	Confidence float64

	// PauseBefore is the silence between the previous word's End and this
	// word's Start, in seconds. Zero for the first word.
	PauseBefore float64
}

// Result is a complete batch transcription.
type Result struct {
	// Text is the full recognised text, as produced by the engine.
	Text string

	// Words contains per-word detail in utterance order.
	Words []Word

	// LanguageProb is the engine's confidence in its language detection,
	// in [0, 1]. Zero when unavailable or when the language was forced.
	LanguageProb float64
}

// Provider is the abstraction over any batch STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe recognises the complete utterance in sig and returns the
	// text together with word-level timing and confidence. An utterance in
	// which no speech is detected yields a Result with empty Text and no
	// Words, not an error.
	Transcribe(ctx context.Context, sig audio.Signal, cfg Config) (Result, error)
}
