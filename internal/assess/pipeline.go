package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/oratio/internal/textnorm"
	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/stt"
)

var (
	// ErrEmptyTarget is returned when the target text holds no assessable words.
	ErrEmptyTarget = errors.New("assess: target text is empty")
	// ErrEmptyAudio is returned when the submitted recording holds no samples.
	ErrEmptyAudio = errors.New("assess: audio is empty")
	// ErrSilentAudio is returned when the recording holds only zero samples.
	// Rejected up front rather than scored as an all-deletion reading.
	ErrSilentAudio = errors.New("assess: audio is silent")
)

// ClarityScorer rates how intelligible a recording was, in [0, 100].
type ClarityScorer interface {
	Clarity(sig audio.Signal, words []stt.Word) float64
}

// Pronouncer rates how closely a spoken clip matches a reference rendition
// of the given text, in [0, 100]. Implementations typically synthesize the
// reference and compare acoustic embeddings.
type Pronouncer interface {
	ScoreClip(ctx context.Context, text, language string, clip audio.Signal) (float64, error)
}

// Request carries one reading sample to assess.
type Request struct {
	// TargetText is the text the reader was asked to read aloud.
	TargetText string
	// Audio is the reader's recording.
	Audio audio.Signal
	// Language hints the transcription language, e.g. "hi" or "en".
	// Empty lets the speech provider detect it.
	Language string
}

// Pipeline runs the full assessment: transcription, alignment,
// classification, fluency and acoustic scoring, and composition.
type Pipeline struct {
	stt     stt.Provider
	clarity ClarityScorer
	pron    Pronouncer
	pol     Policy
	log     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPolicy overrides the default scoring policy.
func WithPolicy(pol Policy) PipelineOption {
	return func(p *Pipeline) {
		p.pol = pol
	}
}

// WithPronouncer enables per-word and overall pronunciation scoring.
// Without it the pronunciation component stays absent from reports.
func WithPronouncer(pron Pronouncer) PipelineOption {
	return func(p *Pipeline) {
		p.pron = pron
	}
}

// WithLogger sets the logger used for non-fatal degradations.
func WithLogger(log *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// NewPipeline creates a Pipeline using the given transcription provider and
// clarity scorer.
func NewPipeline(provider stt.Provider, clarity ClarityScorer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stt:     provider,
		clarity: clarity,
		pol:     DefaultPolicy(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Assess evaluates one reading sample and produces the full report.
//
// Transcription failure is fatal: without recognized words there is nothing
// to align. Pronunciation scoring failure is not: the report is returned
// without the pronunciation component and the error is logged.
func (p *Pipeline) Assess(ctx context.Context, req Request) (*Report, error) {
	targetTokens := textnorm.Tokenize(req.TargetText)
	if len(targetTokens) == 0 {
		return nil, ErrEmptyTarget
	}
	if req.Audio.Empty() {
		return nil, ErrEmptyAudio
	}
	if req.Audio.RMS() == 0 {
		return nil, ErrSilentAudio
	}

	start := time.Now()
	res, err := p.stt.Transcribe(ctx, req.Audio, stt.Config{Language: req.Language})
	if err != nil {
		return nil, fmt.Errorf("assess: transcribe: %w", err)
	}

	recognized := recognizedTokens(res.Words)
	records, counts, details := Classify(targetTokens, recognized, p.pol)

	accuracy := AccuracyScore(counts, len(targetTokens), p.pol)
	flu := AnalyzeFluency(recognized, accuracy, p.pol)
	clarity := p.clarity.Clarity(req.Audio, res.Words)

	var pronunciation *float64
	if p.pron != nil {
		pronunciation = p.scorePronunciation(ctx, req, records)
	}

	overall := Compose(accuracy, flu.Score, clarity, pronunciation, p.pol)

	report := &Report{
		OverallScore: Round1(overall),
		Components: Components{
			Accuracy:      Round1(accuracy),
			Fluency:       Round1(flu.Score),
			Clarity:       Round1(clarity),
			Pronunciation: round1Ptr(pronunciation),
		},
		Metrics: Metrics{
			Counts:   counts,
			WPM:      Round1(flu.WPM),
			AvgPause: Round1(flu.AvgPause),
			Blocks:   flu.Blocks,
			WER:      Round3(WordErrorRate(counts, len(targetTokens))),
		},
		Words:          records,
		RecognizedText: res.Text,
		Errors:         details,
	}

	p.log.Debug("assessment complete",
		"target_words", len(targetTokens),
		"recognized_words", len(recognized),
		"overall", report.OverallScore,
		"duration", time.Since(start))
	return report, nil
}

// scorePronunciation scores the whole recording and every timed word the
// reader got right or nearly right. Errors degrade to a nil component.
func (p *Pipeline) scorePronunciation(ctx context.Context, req Request, records []WordRecord) *float64 {
	overall, err := p.pron.ScoreClip(ctx, req.TargetText, req.Language, req.Audio)
	if err != nil {
		p.log.Warn("pronunciation scoring unavailable", "error", err)
		return nil
	}

	for i := range records {
		rec := &records[i]
		if rec.Start == nil || rec.End == nil {
			continue
		}
		if rec.Status != StatusCorrect && rec.Status != StatusMispronunciation {
			continue
		}
		clip := req.Audio.Slice(*rec.Start, *rec.End)
		if clip.Empty() {
			continue
		}
		score, err := p.pron.ScoreClip(ctx, rec.Target, req.Language, clip)
		if err != nil {
			p.log.Warn("word pronunciation scoring failed", "word", rec.Target, "error", err)
			continue
		}
		s := Round1(score)
		rec.Pronunciation = &s
	}
	return &overall
}

// recognizedTokens normalizes transcribed words into alignment tokens,
// dropping anything normalization reduces to nothing (pure punctuation,
// symbols).
func recognizedTokens(words []stt.Word) []Token {
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		text := textnorm.Normalize(w.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, Token{
			Text:        text,
			Start:       w.Start,
			End:         w.End,
			Confidence:  w.Confidence,
			PauseBefore: w.PauseBefore,
			HasTiming:   true,
		})
	}
	return tokens
}

func round1Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round1(*v)
	return &r
}
