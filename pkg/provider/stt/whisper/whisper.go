// Package whisper provides an stt.Provider backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across all concurrent
// transcriptions; each Transcribe call creates its own whisper context, which
// is the unit whisper.cpp allows per goroutine.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/stt"
)

// modelSampleRate is the only sample rate whisper.cpp accepts. Input at any
// other rate is resampled before inference.
const modelSampleRate = 16000

const defaultLanguage = "en"

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using a local whisper.cpp model.
type Provider struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the default language used when a Transcribe call does not
// specify one. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.Provider. It runs single-shot inference over the
// whole clip with token timestamps enabled and assembles tokens into words
// with start/end times and per-word confidence.
func (p *Provider) Transcribe(ctx context.Context, sig audio.Signal, cfg stt.Config) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: context cancelled: %w", err)
	}

	pcm := sig.Data
	if sig.SampleRate != modelSampleRate {
		pcm = audio.ResampleMono16(pcm, sig.SampleRate, modelSampleRate)
	}
	samples := audio.Signal{Data: pcm, SampleRate: modelSampleRate}.Float32()
	if len(samples) == 0 {
		return stt.Result{}, nil
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", lang, "error", err)
	}
	wctx.SetTokenTimestamps(true)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts   []string
		words   []stt.Word
		prevEnd float64
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}

		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
		words, prevEnd = appendSegmentWords(words, segment.Tokens, prevEnd)
	}

	return stt.Result{
		Text:  strings.Join(parts, " "),
		Words: words,
	}, nil
}

// appendSegmentWords merges whisper's subword tokens into whole words. A
// token whose text begins with a space starts a new word; special tokens
// (e.g. "[_BEG_]") are skipped. Word confidence is the minimum token
// probability, which tracks mumbled or uncertain words better than the mean.
func appendSegmentWords(words []stt.Word, tokens []whisperlib.Token, prevEnd float64) ([]stt.Word, float64) {
	var (
		cur     strings.Builder
		start   float64
		end     float64
		minProb float64
		open    bool
	)

	flush := func() {
		if !open {
			return
		}
		open = false
		cleaned := cleanWord(cur.String())
		cur.Reset()
		if cleaned == "" {
			return
		}
		words = append(words, stt.Word{
			Word:        cleaned,
			Start:       start,
			End:         end,
			Confidence:  minProb,
			PauseBefore: max(0, start-prevEnd),
		})
		prevEnd = end
	}

	for _, tok := range tokens {
		if strings.HasPrefix(tok.Text, "[_") {
			continue
		}
		if strings.HasPrefix(tok.Text, " ") || !open {
			flush()
			open = true
			start = tok.Start.Seconds()
			minProb = float64(tok.P)
		}
		if p := float64(tok.P); p < minProb {
			minProb = p
		}
		end = tok.End.Seconds()
		cur.WriteString(strings.TrimSpace(tok.Text))
	}
	flush()
	return words, prevEnd
}

// cleanWord strips leading and trailing punctuation and symbol runes so that
// "Hello," aligns with "hello" downstream. Interior characters are kept.
func cleanWord(s string) string {
	return strings.TrimFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
