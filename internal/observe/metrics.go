// Package observe provides application-wide observability primitives for
// Oratio: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Oratio metrics.
const meterName = "github.com/MrWong99/oratio"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// SynthesizeDuration tracks reference audio synthesis latency.
	SynthesizeDuration metric.Float64Histogram

	// EmbedDuration tracks acoustic embedding latency.
	EmbedDuration metric.Float64Histogram

	// AssessmentDuration tracks the full assessment pipeline latency.
	AssessmentDuration metric.Float64Histogram

	// --- Counters ---

	// AssessmentsTotal counts finished assessments. Use with attributes:
	//   attribute.String("language", ...), attribute.String("status", ...)
	AssessmentsTotal metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Distributions ---

	// ScoreDistribution tracks overall assessment scores.
	ScoreDistribution metric.Float64Histogram

	// --- Gauges ---

	// ActiveAssessments tracks the number of assessments in flight.
	ActiveAssessments metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// provider round trips: transcription of a long clip can take several
// seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// scoreBuckets defines bucket boundaries for the 0–100 score distribution.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("oratio.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesizeDuration, err = m.Float64Histogram("oratio.synthesize.duration",
		metric.WithDescription("Latency of reference audio synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbedDuration, err = m.Float64Histogram("oratio.embed.duration",
		metric.WithDescription("Latency of acoustic embedding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentDuration, err = m.Float64Histogram("oratio.assessment.duration",
		metric.WithDescription("End-to-end assessment pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AssessmentsTotal, err = m.Int64Counter("oratio.assessments.total",
		metric.WithDescription("Total finished assessments by language and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("oratio.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("oratio.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Score distribution.
	if met.ScoreDistribution, err = m.Float64Histogram("oratio.assessment.score",
		metric.WithDescription("Distribution of overall assessment scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveAssessments, err = m.Int64UpDownCounter("oratio.active_assessments",
		metric.WithDescription("Number of assessments currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("oratio.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordAssessment records one finished assessment: the total counter with
// language and status attributes and, for successful runs, the score
// distribution.
func (m *Metrics) RecordAssessment(ctx context.Context, language, status string, score float64) {
	if language == "" {
		language = "auto"
	}
	m.AssessmentsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.String("status", status),
		),
	)
	if status == "ok" {
		m.ScoreDistribution.Record(ctx, score,
			metric.WithAttributes(attribute.String("language", language)),
		)
	}
}
