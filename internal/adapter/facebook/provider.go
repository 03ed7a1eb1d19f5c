// Package facebook implements reviewprovider.Provider for Facebook page
// ratings through the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	fboauth "golang.org/x/oauth2/facebook"

	"github.com/Strob0t/ReplyForge/internal/adapter/oauthtoken"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v18.0"
	ratingFields   = "reviewer,rating,recommendation_type,review_text,created_time,updated_time,open_graph_story"
	maxPages       = 20
	timeLayout     = "2006-01-02T15:04:05-0700"
)

var scopes = []string{"pages_read_engagement", "pages_manage_posts"}

// Config configures the adapter. Endpoint defaults to Facebook's OAuth endpoint.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string
	Endpoint     oauth2.Endpoint
	HTTPClient   *http.Client
}

// Provider talks to the Graph API. Page tokens do not refresh; an expired
// token fails until the page is reconnected.
type Provider struct {
	oauth      *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// New creates a Facebook provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = fboauth.Endpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     cfg.Endpoint,
		},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
}

// Platform implements reviewprovider.Provider.
func (p *Provider) Platform() review.Platform { return review.PlatformFacebook }

// AuthURL implements reviewprovider.Authorizer.
func (p *Provider) AuthURL(state string) (string, error) {
	if p.oauth.ClientID == "" {
		return "", fmt.Errorf("facebook oauth client: %w", reviewprovider.ErrNotConfigured)
	}
	return p.oauth.AuthCodeURL(state), nil
}

// Exchange implements reviewprovider.Authorizer.
func (p *Provider) Exchange(ctx context.Context, code string) (*integration.Integration, error) {
	return oauthtoken.Exchange(ctx, p.oauth, p.httpClient, review.PlatformFacebook, code)
}

type rating struct {
	ID                 string `json:"id"`
	Rating             int    `json:"rating"`
	RecommendationType string `json:"recommendation_type"`
	ReviewText         string `json:"review_text"`
	CreatedTime        string `json:"created_time"`
	UpdatedTime        string `json:"updated_time"`
	Reviewer           struct {
		Name string `json:"name"`
	} `json:"reviewer"`
	OpenGraphStory struct {
		ID string `json:"id"`
	} `json:"open_graph_story"`
}

type ratingsPage struct {
	Data   []rating `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// stars maps a rating to 1..5. Recommendations replaced star ratings on
// pages; positive counts as five stars and negative as one.
func (r *rating) stars() int {
	if r.Rating > 0 {
		return r.Rating
	}
	switch r.RecommendationType {
	case "positive":
		return 5
	case "negative":
		return 1
	}
	return 0
}

func (r *rating) toReview(locationID string) review.Review {
	id := r.ID
	if id == "" {
		id = r.OpenGraphStory.ID
	}
	out := review.Review{
		LocationID: locationID,
		Platform:   review.PlatformFacebook,
		ExternalID: id,
		Rating:     r.stars(),
		Text:       r.ReviewText,
		AuthorName: r.Reviewer.Name,
		// The Graph API reports no review language.
		LanguageCode: "en",
		PublishedAt:  parseTime(r.CreatedTime),
		UpdatedAt:    parseTime(r.UpdatedTime),
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.PublishedAt
	}
	return out
}

func pageID(t reviewprovider.Target) (string, error) {
	if t.Location == nil {
		return "", fmt.Errorf("facebook: no location: %w", reviewprovider.ErrNotConfigured)
	}
	id := t.Location.PlatformID(review.PlatformFacebook)
	if id == "" {
		return "", fmt.Errorf("facebook page id for %s: %w", t.Location.ID, reviewprovider.ErrNotConfigured)
	}
	return id, nil
}

// ListReviews implements reviewprovider.Provider.
func (p *Provider) ListReviews(ctx context.Context, t reviewprovider.Target, since time.Time) ([]review.Review, error) {
	page, err := pageID(t)
	if err != nil {
		return nil, err
	}
	tok, err := oauthtoken.Fresh(ctx, p.oauth, p.httpClient, t)
	if err != nil {
		return nil, fmt.Errorf("facebook: %w", err)
	}

	q := url.Values{"fields": {ratingFields}, "access_token": {tok.AccessToken}}
	next := p.baseURL + "/" + url.PathEscape(page) + "/ratings?" + q.Encode()

	var out []review.Review
	for i := 0; next != "" && i < maxPages; i++ {
		body, err := p.doRequest(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("facebook list ratings: %w", err)
		}
		var pg ratingsPage
		if err := json.Unmarshal(body, &pg); err != nil {
			return nil, fmt.Errorf("facebook parse ratings: %w", err)
		}
		for j := range pg.Data {
			r := pg.Data[j].toReview(t.Location.ID)
			if !since.IsZero() && !r.UpdatedAt.After(since) {
				continue
			}
			out = append(out, r)
		}
		next = pg.Paging.Next
	}
	return out, nil
}

// PostReply implements reviewprovider.Provider. Ratings take replies as
// comments on the rating's story.
func (p *Provider) PostReply(ctx context.Context, t reviewprovider.Target, reviewExternalID, text string) (reviewprovider.Posted, error) {
	if _, err := pageID(t); err != nil {
		return reviewprovider.Posted{}, err
	}
	tok, err := oauthtoken.Fresh(ctx, p.oauth, p.httpClient, t)
	if err != nil {
		return reviewprovider.Posted{}, fmt.Errorf("facebook: %w", err)
	}

	form := url.Values{"message": {text}, "access_token": {tok.AccessToken}}
	endpoint := p.baseURL + "/" + url.PathEscape(reviewExternalID) + "/comments"
	body, err := p.doRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return reviewprovider.Posted{}, fmt.Errorf("facebook post comment: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return reviewprovider.Posted{}, fmt.Errorf("facebook parse comment: %w", err)
	}
	if created.ID == "" {
		return reviewprovider.Posted{}, fmt.Errorf("facebook post comment: response has no id")
	}
	return reviewprovider.Posted{ProviderReplyID: created.ID}, nil
}

func (p *Provider) doRequest(ctx context.Context, method, reqURL string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.httpClient.Do(req) //nolint:gosec // URL is built from the configured base URL or Graph paging links
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("facebook API %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
