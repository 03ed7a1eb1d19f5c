package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	rfotel "github.com/Strob0t/ReplyForge/internal/adapter/otel"
	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

// Publisher posts approved drafts to the review platform.
type Publisher struct {
	providers    map[review.Platform]reviewprovider.Provider
	integrations database.IntegrationStore
	metrics      *rfotel.Metrics
	now          func() time.Time
}

// NewPublisher creates a Publisher over the given platform adapters.
func NewPublisher(providers []reviewprovider.Provider, integrations database.IntegrationStore, metrics *rfotel.Metrics) *Publisher {
	byPlatform := make(map[review.Platform]reviewprovider.Provider, len(providers))
	for _, p := range providers {
		byPlatform[p.Platform()] = p
	}
	return &Publisher{providers: byPlatform, integrations: integrations, metrics: metrics, now: time.Now}
}

// Provider returns the adapter for p.
func (p *Publisher) Provider(platform review.Platform) (reviewprovider.Provider, error) {
	prov, ok := p.providers[platform]
	if !ok {
		return nil, fmt.Errorf("platform %q: %w", platform, reviewprovider.ErrUnknownProvider)
	}
	return prov, nil
}

// Target resolves the location's stored integration for platform.
func (p *Publisher) Target(ctx context.Context, loc *review.Location, platform review.Platform) (reviewprovider.Target, error) {
	in, err := p.integrations.GetIntegration(ctx, loc.ID, platform)
	if errors.Is(err, domain.ErrNotFound) {
		return reviewprovider.Target{}, fmt.Errorf("no %s integration for location %s: %w", platform, loc.ID, reviewprovider.ErrNotConfigured)
	}
	if err != nil {
		return reviewprovider.Target{}, fmt.Errorf("load integration: %w", err)
	}
	return reviewprovider.Target{Location: loc, Integration: in}, nil
}

// Publish posts d's content as the owner reply to rv. On success it returns
// the reply record; nothing is stored here. A refreshed OAuth token is
// persisted even when the post itself fails.
func (p *Publisher) Publish(ctx context.Context, d *draft.Draft, rv *review.Review, loc *review.Location) (*review.Reply, error) {
	ctx, span := rfotel.StartPublishSpan(ctx, d.ID, string(rv.Platform))
	defer span.End()

	prov, err := p.Provider(rv.Platform)
	if err != nil {
		return nil, err
	}
	t, err := p.Target(ctx, loc, rv.Platform)
	if err != nil {
		return nil, err
	}
	token := t.Integration.AccessToken

	posted, err := prov.PostReply(ctx, t, rv.ExternalID, d.Content)

	if t.Integration.AccessToken != token {
		if uerr := p.integrations.UpsertIntegration(ctx, t.Integration); uerr != nil {
			slog.WarnContext(ctx, "persist refreshed token failed", "integration_id", t.Integration.ID, "error", uerr)
		}
	}

	attrs := metric.WithAttributes(attribute.String("platform", string(rv.Platform)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if p.metrics != nil {
			p.metrics.RepliesFailed.Add(ctx, 1, attrs)
		}
		return nil, fmt.Errorf("post reply to %s: %w", rv.Platform, err)
	}
	if p.metrics != nil {
		p.metrics.RepliesPublished.Add(ctx, 1, attrs)
	}

	return &review.Reply{
		ID:              uuid.NewString(),
		ReviewID:        rv.ID,
		DraftID:         d.ID,
		Content:         d.Content,
		ProviderReplyID: posted.ProviderReplyID,
		PublishedAt:     p.now().UTC(),
	}, nil
}
