package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts the span covering one complete load test run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, scenario, host string, users int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "run "+scenario,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("swarmload.scenario", scenario),
		attribute.String("swarmload.host", host),
		attribute.Int("swarmload.users", users),
	)
	return ctx, span
}

// StartInteractionSpan starts a span for one virtual user interaction.
func StartInteractionSpan(ctx context.Context, tracer trace.Tracer, method, name string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, method+" "+name,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("swarmload.scenario", name),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
