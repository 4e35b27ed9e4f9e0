package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code written by the downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an [http.Handler] with the per-request observability the
// assessment endpoints share: it continues any W3C trace context carried by
// the request (or starts a fresh trace), exposes the trace ID to the caller
// via the X-Correlation-ID header, records the request duration on
// [Metrics.HTTPRequestDuration], and logs completion with trace, status, and
// timing fields.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			// The trace ID doubles as the correlation ID clients quote in
			// support requests.
			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, duration.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", r.URL.Path),
				),
			)
			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.statusCode))

			slog.LogAttrs(ctx, slog.LevelInfo, "request completed",
				slog.String("trace_id", cid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Duration("duration", duration),
			)
		})
	}
}
