package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

// --- Integrations ---

// sealToken encrypts a token for storage. Without a key tokens are stored as is.
func (s *Store) sealToken(token string) ([]byte, error) {
	if s.tokenKey == nil {
		if token == "" {
			return nil, nil
		}
		return []byte(token), nil
	}
	return integration.Seal(token, s.tokenKey)
}

func (s *Store) openToken(sealed []byte) (string, error) {
	if s.tokenKey == nil {
		return string(sealed), nil
	}
	return integration.Open(sealed, s.tokenKey)
}

func (s *Store) GetIntegration(ctx context.Context, locationID string, p review.Platform) (*integration.Integration, error) {
	var (
		in              integration.Integration
		access, refresh []byte
		expiry          *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, location_id, platform, account_id, access_token, refresh_token, token_type,
		        expiry, last_sync_at, created_at, updated_at
		 FROM integrations WHERE location_id = $1 AND platform = $2`, locationID, string(p),
	).Scan(&in.ID, &in.LocationID, &in.Platform, &in.AccountID, &access, &refresh, &in.TokenType,
		&expiry, &in.LastSyncAt, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get %s integration for location %s", p, locationID)
	}
	if expiry != nil {
		in.Expiry = *expiry
	}
	if in.AccessToken, err = s.openToken(access); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if in.RefreshToken, err = s.openToken(refresh); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return &in, nil
}

// UpsertIntegration stores credentials keyed by location and platform.
func (s *Store) UpsertIntegration(ctx context.Context, in *integration.Integration) error {
	access, err := s.sealToken(in.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := s.sealToken(in.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}
	var expiry *time.Time
	if !in.Expiry.IsZero() {
		expiry = &in.Expiry
	}

	now := time.Now().UTC()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now

	err = s.pool.QueryRow(ctx,
		`INSERT INTO integrations (id, location_id, platform, account_id, access_token, refresh_token,
		                           token_type, expiry, last_sync_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (location_id, platform) DO UPDATE SET
		     account_id    = EXCLUDED.account_id,
		     access_token  = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     token_type    = EXCLUDED.token_type,
		     expiry        = EXCLUDED.expiry,
		     updated_at    = EXCLUDED.updated_at
		 RETURNING id`,
		in.ID, in.LocationID, string(in.Platform), in.AccountID, access, refresh,
		in.TokenType, expiry, in.LastSyncAt, in.CreatedAt, in.UpdatedAt,
	).Scan(&in.ID)
	if err != nil {
		return fmt.Errorf("upsert integration: %w", err)
	}
	return nil
}

func (s *Store) TouchIntegrationSync(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE integrations SET last_sync_at = $2 WHERE id = $1`, id, at)
	return execExpectOne(tag, err, "touch integration %s", id)
}
