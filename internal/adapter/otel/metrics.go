package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "replyforge"

// Metrics holds all ReplyForge metric instruments.
type Metrics struct {
	DraftsGenerated    metric.Int64Counter
	Fallbacks          metric.Int64Counter
	PolicyViolations   metric.Int64Counter
	RepliesPublished   metric.Int64Counter
	RepliesFailed      metric.Int64Counter
	ReviewsSynced      metric.Int64Counter
	GenerationDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DraftsGenerated, err = meter.Int64Counter("replyforge.drafts.generated",
		metric.WithDescription("Drafts generated, by initial status"))
	if err != nil {
		return nil, err
	}

	m.Fallbacks, err = meter.Int64Counter("replyforge.generation.fallbacks",
		metric.WithDescription("Generations answered by the deterministic fallback"))
	if err != nil {
		return nil, err
	}

	m.PolicyViolations, err = meter.Int64Counter("replyforge.policy.violations",
		metric.WithDescription("Policy violations found in generated drafts, by kind"))
	if err != nil {
		return nil, err
	}

	m.RepliesPublished, err = meter.Int64Counter("replyforge.replies.published",
		metric.WithDescription("Replies accepted by a review platform"))
	if err != nil {
		return nil, err
	}

	m.RepliesFailed, err = meter.Int64Counter("replyforge.replies.failed",
		metric.WithDescription("Replies rejected by a review platform"))
	if err != nil {
		return nil, err
	}

	m.ReviewsSynced, err = meter.Int64Counter("replyforge.reviews.synced",
		metric.WithDescription("Reviews fetched from review platforms"))
	if err != nil {
		return nil, err
	}

	m.GenerationDuration, err = meter.Float64Histogram("replyforge.generation.duration_seconds",
		metric.WithDescription("Backend generation latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
