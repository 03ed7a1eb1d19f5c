package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/cache"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

// OAuthStateTTL bounds how long a connect link stays valid.
const OAuthStateTTL = 10 * time.Minute

// IntegrationService connects locations to review platforms through OAuth.
type IntegrationService struct {
	store     database.Store
	publisher *Publisher
	states    cache.Cache
	now       func() time.Time
}

// NewIntegrationService creates an IntegrationService. states holds pending
// OAuth state values between AuthURL and Exchange.
func NewIntegrationService(store database.Store, publisher *Publisher, states cache.Cache) *IntegrationService {
	return &IntegrationService{
		store:     store,
		publisher: publisher,
		states:    states,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *IntegrationService) authorizer(p review.Platform) (reviewprovider.Authorizer, error) {
	prov, err := s.publisher.Provider(p)
	if err != nil {
		return nil, err
	}
	a, ok := prov.(reviewprovider.Authorizer)
	if !ok {
		return nil, fmt.Errorf("platform %s does not support oauth: %w", p, reviewprovider.ErrNotConfigured)
	}
	return a, nil
}

// ErrExchangeFailed wraps a platform error returned while trading an OAuth code.
var ErrExchangeFailed = errors.New("oauth code exchange failed")

// AuthURL starts the OAuth flow for connecting locationID to platform p.
func (s *IntegrationService) AuthURL(ctx context.Context, locationID string, p review.Platform) (string, error) {
	if _, err := s.store.GetLocation(ctx, locationID); err != nil {
		return "", fmt.Errorf("load location: %w", err)
	}
	a, err := s.authorizer(p)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	url, err := a.AuthURL(state)
	if err != nil {
		return "", err
	}
	if err := s.states.Set(ctx, stateKey(p, state), []byte(locationID), OAuthStateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return url, nil
}

// Exchange completes the OAuth flow and stores the location's credentials.
// state must come from an earlier AuthURL call for the same platform.
func (s *IntegrationService) Exchange(ctx context.Context, p review.Platform, state, code, accountID string) (*integration.Integration, error) {
	if state == "" || code == "" {
		return nil, fmt.Errorf("state and code are required: %w", domain.ErrValidation)
	}
	key := stateKey(p, state)
	raw, ok, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load oauth state: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("unknown or expired oauth state: %w", domain.ErrValidation)
	}
	_ = s.states.Delete(ctx, key)
	locationID := string(raw)

	a, err := s.authorizer(p)
	if err != nil {
		return nil, err
	}
	in, err := a.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	existing, err := s.store.GetIntegration(ctx, locationID, p)
	switch {
	case err == nil:
		in.ID = existing.ID
		in.LastSyncAt = existing.LastSyncAt
		in.CreatedAt = existing.CreatedAt
		if in.RefreshToken == "" {
			in.RefreshToken = existing.RefreshToken
		}
	case errors.Is(err, domain.ErrNotFound):
		in.ID = uuid.NewString()
		in.CreatedAt = s.now()
	default:
		return nil, fmt.Errorf("load integration: %w", err)
	}
	in.LocationID = locationID
	in.Platform = p
	if accountID != "" {
		in.AccountID = accountID
	}
	in.UpdatedAt = s.now()

	if err := s.store.UpsertIntegration(ctx, in); err != nil {
		return nil, fmt.Errorf("store integration: %w", err)
	}
	slog.InfoContext(ctx, "integration connected", "location_id", locationID, "platform", p)
	return in, nil
}

// Get returns the location's integration with platform p.
func (s *IntegrationService) Get(ctx context.Context, locationID string, p review.Platform) (*integration.Integration, error) {
	return s.store.GetIntegration(ctx, locationID, p)
}

func stateKey(p review.Platform, state string) string {
	return "oauth:" + string(p) + ":" + state
}
