// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
)

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	LocationID string
	Unreplied  bool
	MaxRating  int // 0 = any
	Limit      int
	Offset     int
}

// LocationStore persists business locations.
type LocationStore interface {
	ListLocations(ctx context.Context) ([]review.Location, error)
	GetLocation(ctx context.Context, id string) (*review.Location, error)
	CreateLocation(ctx context.Context, l *review.Location) error
}

// ReviewStore persists reviews and published replies.
type ReviewStore interface {
	GetReview(ctx context.Context, id string) (*review.Review, error)
	ListReviews(ctx context.Context, f ReviewFilter) ([]review.Review, error)
	// UpsertReview inserts or refreshes a review keyed by platform and
	// external id. It reports whether a new row was created.
	UpsertReview(ctx context.Context, r *review.Review) (bool, error)
	ListReplies(ctx context.Context, reviewID string) ([]review.Reply, error)
}

// TemplateStore persists reply templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]template.Template, error)
	GetTemplate(ctx context.Context, id string) (*template.Template, error)
	CreateTemplate(ctx context.Context, t *template.Template) error
}

// ToneStore persists tone profiles.
type ToneStore interface {
	ListToneProfiles(ctx context.Context) ([]tone.Profile, error)
	GetToneProfile(ctx context.Context, id string) (*tone.Profile, error)
	CreateToneProfile(ctx context.Context, p *tone.Profile) error
}

// DraftStore persists drafts.
type DraftStore interface {
	CreateDraft(ctx context.Context, d *draft.Draft) error
	GetDraft(ctx context.Context, id string) (*draft.Draft, error)
	// UpdateDraft writes d if its Version still matches the stored row and
	// bumps Version. A mismatch returns domain.ErrConflict.
	UpdateDraft(ctx context.Context, d *draft.Draft) error
	ListDrafts(ctx context.Context, f draft.ListFilter) ([]draft.Draft, error)
	// SavePublished atomically updates d (same version rule as UpdateDraft),
	// stores reply and marks the review as answered with the reply text.
	SavePublished(ctx context.Context, d *draft.Draft, reply *review.Reply) error
}

// IntegrationStore persists platform connections.
type IntegrationStore interface {
	GetIntegration(ctx context.Context, locationID string, p review.Platform) (*integration.Integration, error)
	UpsertIntegration(ctx context.Context, i *integration.Integration) error
	TouchIntegrationSync(ctx context.Context, id string, at time.Time) error
}

// Store is the port interface for all database operations.
type Store interface {
	LocationStore
	ReviewStore
	TemplateStore
	ToneStore
	DraftStore
	IntegrationStore
}
