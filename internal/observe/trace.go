package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope under which all Oratio spans are
// emitted.
const tracerName = "github.com/MrWong99/oratio"

// Tracer returns Oratio's [trace.Tracer] from the globally registered
// provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a named span on Oratio's tracer. The caller owns the
// returned span and must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the hex trace ID of the span in ctx, or "" when no
// valid span is active. Clients see this value in the X-Correlation-ID
// response header, so log lines and support requests can be matched up.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default [slog.Logger] with trace_id and span_id
// attributes attached when ctx carries an active span. Without a span it is
// just the default logger.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
