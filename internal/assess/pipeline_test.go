package assess_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/oratio/internal/assess"
	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/stt"
	sttmock "github.com/MrWong99/oratio/pkg/provider/stt/mock"
)

// fixedClarity is a ClarityScorer returning a constant score.
type fixedClarity float64

func (c fixedClarity) Clarity(audio.Signal, []stt.Word) float64 { return float64(c) }

// fixedPronouncer is a Pronouncer returning a constant score or error.
type fixedPronouncer struct {
	score float64
	err   error
	calls int
}

func (p *fixedPronouncer) ScoreClip(context.Context, string, string, audio.Signal) (float64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	return p.score, nil
}

func testSignal(seconds float64) audio.Signal {
	n := int(seconds * 16000)
	data := make([]byte, n*2)
	// Low-amplitude samples so the clip does not read as silence.
	for i := 0; i < n; i++ {
		data[i*2] = 0x00
		data[i*2+1] = 0x10
	}
	return audio.Signal{Data: data, SampleRate: 16000}
}

func resultWords(words ...stt.Word) stt.Result {
	var text string
	for i, w := range words {
		if i > 0 {
			text += " "
		}
		text += w.Word
	}
	return stt.Result{Text: text, Words: words}
}

func TestPipeline_PerfectReading(t *testing.T) {
	t.Parallel()

	provider := &sttmock.Provider{
		Result: resultWords(
			stt.Word{Word: "The", Start: 0.0, End: 0.3, Confidence: 0.95},
			stt.Word{Word: "cat", Start: 0.4, End: 0.7, Confidence: 0.92, PauseBefore: 0.1},
			stt.Word{Word: "sat.", Start: 0.8, End: 1.1, Confidence: 0.94, PauseBefore: 0.1},
		),
	}
	p := assess.NewPipeline(provider, fixedClarity(100))

	report, err := p.Assess(context.Background(), assess.Request{
		TargetText: "The cat sat.",
		Audio:      testSignal(2),
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if report.OverallScore != 100 {
		t.Errorf("OverallScore = %v, want 100", report.OverallScore)
	}
	if report.Components.Accuracy != 100 {
		t.Errorf("Accuracy = %v, want 100", report.Components.Accuracy)
	}
	// Three words in about a second is far above the comfortable rate.
	if report.Components.Fluency != 100 {
		t.Errorf("Fluency = %v, want 100", report.Components.Fluency)
	}
	if report.Metrics.WER != 0 {
		t.Errorf("WER = %v, want 0", report.Metrics.WER)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}
	if len(report.Words) != 3 {
		t.Fatalf("Words = %d, want 3", len(report.Words))
	}
	// Punctuation and case must not count against the reader.
	if report.Words[0].Target != "the" || report.Words[0].Status != assess.StatusCorrect {
		t.Errorf("Words[0] = %+v", report.Words[0])
	}

	if len(provider.TranscribeCalls) != 1 {
		t.Fatalf("TranscribeCalls = %d, want 1", len(provider.TranscribeCalls))
	}
	if got := provider.TranscribeCalls[0].Cfg.Language; got != "en" {
		t.Errorf("Language = %q, want en", got)
	}
}

func TestPipeline_EmptyTarget(t *testing.T) {
	t.Parallel()

	p := assess.NewPipeline(&sttmock.Provider{}, fixedClarity(50))

	for _, target := range []string{"", "   ", "!!! ..."} {
		_, err := p.Assess(context.Background(), assess.Request{TargetText: target, Audio: testSignal(1)})
		if !errors.Is(err, assess.ErrEmptyTarget) {
			t.Errorf("target %q: err = %v, want ErrEmptyTarget", target, err)
		}
	}
}

func TestPipeline_EmptyAudio(t *testing.T) {
	t.Parallel()

	p := assess.NewPipeline(&sttmock.Provider{}, fixedClarity(50))

	_, err := p.Assess(context.Background(), assess.Request{TargetText: "hello"})
	if !errors.Is(err, assess.ErrEmptyAudio) {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestPipeline_SilentAudio(t *testing.T) {
	t.Parallel()

	p := assess.NewPipeline(&sttmock.Provider{}, fixedClarity(50))

	silent := audio.Signal{Data: make([]byte, 32000), SampleRate: 16000}
	_, err := p.Assess(context.Background(), assess.Request{TargetText: "hello", Audio: silent})
	if !errors.Is(err, assess.ErrSilentAudio) {
		t.Errorf("err = %v, want ErrSilentAudio", err)
	}
}

func TestPipeline_TranscriptionFailureIsFatal(t *testing.T) {
	t.Parallel()

	boom := errors.New("model crashed")
	p := assess.NewPipeline(&sttmock.Provider{Err: boom}, fixedClarity(50))

	_, err := p.Assess(context.Background(), assess.Request{TargetText: "hello", Audio: testSignal(1)})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped transcription error", err)
	}
}

func TestPipeline_NothingRecognized(t *testing.T) {
	t.Parallel()

	p := assess.NewPipeline(&sttmock.Provider{}, fixedClarity(50))

	report, err := p.Assess(context.Background(), assess.Request{
		TargetText: "one two three",
		Audio:      testSignal(1),
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if report.Components.Accuracy != 0 {
		t.Errorf("Accuracy = %v, want 0", report.Components.Accuracy)
	}
	if report.Metrics.WER != 1 {
		t.Errorf("WER = %v, want 1", report.Metrics.WER)
	}
	if report.Metrics.Deletions != 3 {
		t.Errorf("Deletions = %d, want 3", report.Metrics.Deletions)
	}
	// A silent clip still gets the fluency floor, not a zero.
	if report.Components.Fluency != 20 {
		t.Errorf("Fluency = %v, want 20", report.Components.Fluency)
	}
}

func TestPipeline_PronunciationScoring(t *testing.T) {
	t.Parallel()

	provider := &sttmock.Provider{
		Result: resultWords(
			stt.Word{Word: "hello", Start: 0.1, End: 0.5, Confidence: 0.9},
			stt.Word{Word: "world", Start: 0.6, End: 1.0, Confidence: 0.9, PauseBefore: 0.1},
		),
	}
	pron := &fixedPronouncer{score: 80}
	p := assess.NewPipeline(provider, fixedClarity(90), assess.WithPronouncer(pron))

	report, err := p.Assess(context.Background(), assess.Request{
		TargetText: "hello world",
		Audio:      testSignal(2),
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if report.Components.Pronunciation == nil || *report.Components.Pronunciation != 80 {
		t.Fatalf("Pronunciation = %v, want 80", report.Components.Pronunciation)
	}
	// One overall call plus one per correct word.
	if pron.calls != 3 {
		t.Errorf("pronouncer calls = %d, want 3", pron.calls)
	}
	for i, w := range report.Words {
		if w.Pronunciation == nil || *w.Pronunciation != 80 {
			t.Errorf("Words[%d].Pronunciation = %v, want 80", i, w.Pronunciation)
		}
	}
}

func TestPipeline_PronunciationFailureDegrades(t *testing.T) {
	t.Parallel()

	provider := &sttmock.Provider{
		Result: resultWords(stt.Word{Word: "hello", Start: 0.1, End: 0.5, Confidence: 0.9}),
	}
	pron := &fixedPronouncer{err: errors.New("embeddings down")}
	p := assess.NewPipeline(provider, fixedClarity(90), assess.WithPronouncer(pron))

	report, err := p.Assess(context.Background(), assess.Request{
		TargetText: "hello",
		Audio:      testSignal(1),
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if report.Components.Pronunciation != nil {
		t.Errorf("Pronunciation = %v, want absent", *report.Components.Pronunciation)
	}
	if report.OverallScore <= 0 {
		t.Errorf("OverallScore = %v, want > 0", report.OverallScore)
	}
}

func TestPipeline_ScoreBounds(t *testing.T) {
	t.Parallel()

	// A wildly wrong reading with extra words must still land in [0, 100].
	provider := &sttmock.Provider{
		Result: resultWords(
			stt.Word{Word: "banana", Start: 0, End: 0.4, Confidence: 0.3},
			stt.Word{Word: "rocket", Start: 0.5, End: 0.9, Confidence: 0.2, PauseBefore: 0.1},
			stt.Word{Word: "cheese", Start: 1.0, End: 1.4, Confidence: 0.4, PauseBefore: 0.1},
			stt.Word{Word: "umbrella", Start: 1.5, End: 1.9, Confidence: 0.1, PauseBefore: 0.1},
		),
	}
	p := assess.NewPipeline(provider, fixedClarity(10))

	report, err := p.Assess(context.Background(), assess.Request{
		TargetText: "hi",
		Audio:      testSignal(2),
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if report.OverallScore < 0 || report.OverallScore > 100 {
		t.Errorf("OverallScore = %v, out of bounds", report.OverallScore)
	}
	for _, c := range []float64{report.Components.Accuracy, report.Components.Fluency, report.Components.Clarity} {
		if c < 0 || c > 100 {
			t.Errorf("component = %v, out of bounds", c)
		}
	}
}
