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

// Span attribute keys.
const (
	AttrRunID       = "matchload.run_id"
	AttrClientIndex = "matchload.client.index"
	AttrUsername    = "matchload.client.username"
	AttrSessionID   = "matchload.session.id"
	AttrErrorClass  = "matchload.error.class"
	AttrStage       = "matchload.stage"

	AttrStreamReceived = "matchload.stream.messages_received"
)

// StartClientSpan starts the span covering one simulated client run.
func StartClientSpan(ctx context.Context, tracer trace.Tracer, runID string, index int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "matchload client",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.Int(AttrClientIndex, index))
	if runID != "" {
		span.SetAttributes(attribute.String(AttrRunID, runID))
	}
	return ctx, span
}

// StageEvent marks the completion of a protocol stage on span.
func StageEvent(span trace.Span, stage string, attrs ...attribute.KeyValue) {
	span.AddEvent(stage, trace.WithAttributes(append([]attribute.KeyValue{attribute.String(AttrStage, stage)}, attrs...)...))
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
