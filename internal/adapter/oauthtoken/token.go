// Package oauthtoken bridges stored integrations and golang.org/x/oauth2
// tokens for the review platform adapters.
package oauthtoken

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

// FromIntegration returns the oauth2 token held by in.
func FromIntegration(in *integration.Integration) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		TokenType:    in.TokenType,
		Expiry:       in.Expiry,
	}
}

// ToIntegration builds an unsaved integration for platform p from tok.
func ToIntegration(p review.Platform, tok *oauth2.Token) *integration.Integration {
	in := &integration.Integration{Platform: p}
	Store(in, tok)
	return in
}

// Store copies tok into in. A refresh response without a new refresh token
// keeps the stored one.
func Store(in *integration.Integration, tok *oauth2.Token) {
	in.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		in.RefreshToken = tok.RefreshToken
	}
	in.TokenType = tok.TokenType
	in.Expiry = tok.Expiry
}

// Fresh returns a valid token for t, refreshing through cfg when the stored
// one expired. The refreshed token is written back to t.Integration.
// client is used for the refresh call when non-nil.
func Fresh(ctx context.Context, cfg *oauth2.Config, client *http.Client, t reviewprovider.Target) (*oauth2.Token, error) {
	if t.Integration == nil || !t.Integration.Connected() {
		return nil, fmt.Errorf("no credentials: %w", reviewprovider.ErrNotConfigured)
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	tok, err := cfg.TokenSource(ctx, FromIntegration(t.Integration)).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if tok.AccessToken != t.Integration.AccessToken {
		Store(t.Integration, tok)
	}
	return tok, nil
}

// Exchange trades code for a token through cfg.
func Exchange(ctx context.Context, cfg *oauth2.Config, client *http.Client, p review.Platform, code string) (*integration.Integration, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s oauth client: %w", p, reviewprovider.ErrNotConfigured)
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", p, err)
	}
	return ToIntegration(p, tok), nil
}
