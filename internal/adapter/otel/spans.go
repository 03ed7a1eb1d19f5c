package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "replyforge"

// StartGenerateSpan starts a span for one backend generation.
func StartGenerateSpan(ctx context.Context, provider string, rating int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "generate",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.Int("review.rating", rating),
		),
	)
}

// StartDraftSpan starts a span for a drafting run.
func StartDraftSpan(ctx context.Context, reviewID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "draft",
		trace.WithAttributes(attribute.String("review.id", reviewID)),
	)
}

// StartPublishSpan starts a span for posting a reply.
func StartPublishSpan(ctx context.Context, draftID, platform string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "publish",
		trace.WithAttributes(
			attribute.String("draft.id", draftID),
			attribute.String("review.platform", platform),
		),
	)
}

// StartSyncSpan starts a span for a review sync of one location.
func StartSyncSpan(ctx context.Context, locationID, platform string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sync",
		trace.WithAttributes(
			attribute.String("location.id", locationID),
			attribute.String("review.platform", platform),
		),
	)
}
