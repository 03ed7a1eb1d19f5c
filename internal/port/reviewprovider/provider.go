// Package reviewprovider defines the port for review platforms: fetching
// reviews and posting owner replies.
package reviewprovider

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

var (
	// ErrNotConfigured is returned when a location has no usable connection
	// to the platform: no platform id, no integration or no OAuth client.
	ErrNotConfigured = errors.New("review platform not configured")
	// ErrUnknownProvider is returned for platforms without a registered adapter.
	ErrUnknownProvider = errors.New("unknown review platform")
)

// Target identifies where a call goes. Providers may refresh the OAuth
// token in place; callers persist Integration when its AccessToken changed.
type Target struct {
	Location    *review.Location
	Integration *integration.Integration
}

// Posted is the platform's acknowledgement of a reply.
type Posted struct {
	ProviderReplyID string
}

// Provider is a review platform.
type Provider interface {
	Platform() review.Platform
	// ListReviews returns reviews updated after since. A zero since lists everything.
	ListReviews(ctx context.Context, t Target, since time.Time) ([]review.Review, error)
	// PostReply publishes text as the owner reply to the review with the
	// given platform id. It either returns the reply id or fails.
	PostReply(ctx context.Context, t Target, reviewExternalID, text string) (Posted, error)
}

// Authorizer is implemented by providers that connect through OAuth.
// Both return ErrNotConfigured when the OAuth client id or secret is missing.
type Authorizer interface {
	AuthURL(state string) (string, error)
	// Exchange trades an authorization code for credentials. The returned
	// Integration carries tokens and platform only.
	Exchange(ctx context.Context, code string) (*integration.Integration, error)
}
