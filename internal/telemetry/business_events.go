package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces domain operations above the HTTP and DB layers
// (e.g. "post was liked", "feed was listed").
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// TraceGetFeed creates a span for a feed listing
func (be *BusinessEvents) TraceGetFeed(ctx context.Context, sort string, page, limit int) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "feed.list",
		trace.WithAttributes(
			attribute.String("feed.sort", sort),
			attribute.Int("feed.page", page),
			attribute.Int("feed.limit", limit),
		),
	)
}

// TraceInteraction creates a span for like/comment/reply/share/follow
func (be *BusinessEvents) TraceInteraction(ctx context.Context, action, userID, targetID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "social."+action,
		trace.WithAttributes(
			attribute.String("action.type", action),
			attribute.String("user.id", userID),
			attribute.String("target.id", targetID),
		),
	)
}

// TracePublish creates a span for a relay publish
func (be *BusinessEvents) TracePublish(ctx context.Context, topic, msgType string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "relay.publish",
		trace.WithAttributes(
			attribute.String("relay.topic", topic),
			attribute.String("relay.type", msgType),
		),
	)
}

// EndSpan records err (if any) and ends the span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var globalBusinessEvents = NewBusinessEvents()

// GetBusinessEvents returns the global business events tracer
func GetBusinessEvents() *BusinessEvents {
	return globalBusinessEvents
}
