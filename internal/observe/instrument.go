package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
	"github.com/MrWong99/oratio/pkg/provider/stt"
	"github.com/MrWong99/oratio/pkg/provider/tts"
)

// Provider decorators that record per-stage latency histograms and the
// provider request/error counters. Wrap each concrete provider at
// construction time so the metrics carry the configured provider name even
// inside a failover group.

// InstrumentSTT wraps p so every Transcribe call is recorded under name.
func InstrumentSTT(p stt.Provider, name string, met *Metrics) stt.Provider {
	return &instrumentedSTT{inner: p, name: name, met: met}
}

// InstrumentTTS wraps p so every Synthesize call is recorded under name.
func InstrumentTTS(p tts.Provider, name string, met *Metrics) tts.Provider {
	return &instrumentedTTS{inner: p, name: name, met: met}
}

// InstrumentEmbeddings wraps p so every Embed call is recorded under name.
func InstrumentEmbeddings(p embeddings.Provider, name string, met *Metrics) embeddings.Provider {
	return &instrumentedEmbeddings{inner: p, name: name, met: met}
}

type instrumentedSTT struct {
	inner stt.Provider
	name  string
	met   *Metrics
}

var _ stt.Provider = (*instrumentedSTT)(nil)

func (p *instrumentedSTT) Transcribe(ctx context.Context, sig audio.Signal, cfg stt.Config) (stt.Result, error) {
	start := time.Now()
	res, err := p.inner.Transcribe(ctx, sig, cfg)
	recordProviderCall(ctx, p.met, p.met.TranscribeDuration, p.name, "stt", start, err)
	return res, err
}

type instrumentedTTS struct {
	inner tts.Provider
	name  string
	met   *Metrics
}

var _ tts.Provider = (*instrumentedTTS)(nil)

func (p *instrumentedTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	start := time.Now()
	wav, err := p.inner.Synthesize(ctx, text, language)
	recordProviderCall(ctx, p.met, p.met.SynthesizeDuration, p.name, "tts", start, err)
	return wav, err
}

type instrumentedEmbeddings struct {
	inner embeddings.Provider
	name  string
	met   *Metrics
}

var _ embeddings.Provider = (*instrumentedEmbeddings)(nil)

func (p *instrumentedEmbeddings) Embed(ctx context.Context, sig audio.Signal) ([]float32, error) {
	start := time.Now()
	vec, err := p.inner.Embed(ctx, sig)
	recordProviderCall(ctx, p.met, p.met.EmbedDuration, p.name, "embeddings", start, err)
	return vec, err
}

func (p *instrumentedEmbeddings) Dimensions() int { return p.inner.Dimensions() }

func (p *instrumentedEmbeddings) ModelID() string { return p.inner.ModelID() }

// recordProviderCall records one provider round trip: the stage latency
// histogram plus the request counter, and the error counter on failure.
func recordProviderCall(ctx context.Context, met *Metrics, hist metric.Float64Histogram, name, kind string, start time.Time, err error) {
	hist.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(Attr("provider", name)))

	status := "ok"
	if err != nil {
		status = "error"
		met.RecordProviderError(ctx, name, kind)
	}
	met.RecordProviderRequest(ctx, name, kind, status)
}
