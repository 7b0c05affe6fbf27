package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cognichat"

// StartTurnSpan starts a span for one chat turn.
func StartTurnSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "chat.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
}

// StartMemorySpan starts a span for a memory store operation ("add",
// "search.exact" or "search.similar").
func StartMemorySpan(ctx context.Context, op string, limit int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "memory."+op,
		trace.WithAttributes(
			attribute.String("memory.op", op),
			attribute.Int("memory.limit", limit),
		),
	)
}

// StartEmbedSpan starts a span for computing one embedding.
func StartEmbedSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "embed",
		trace.WithAttributes(attribute.String("embed.provider", provider)),
	)
}

// StartCompletionSpan starts a client span for a chat-completion call.
func StartCompletionSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", model)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
