// Package google implements reviewprovider.Provider for Google Business
// Profile reviews.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/Strob0t/ReplyForge/internal/adapter/oauthtoken"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

const (
	defaultBaseURL = "https://mybusiness.googleapis.com/v4"
	scope          = "https://www.googleapis.com/auth/business.manage"
	pageSize       = 50
	maxPages       = 20
)

// Config configures the adapter. Endpoint defaults to Google's OAuth endpoint.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string
	Endpoint     oauth2.Endpoint
	HTTPClient   *http.Client
}

// Provider talks to the Business Profile reviews API.
type Provider struct {
	oauth      *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// New creates a Google provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = googleoauth.Endpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scope},
			Endpoint:     cfg.Endpoint,
		},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
}

// Platform implements reviewprovider.Provider.
func (p *Provider) Platform() review.Platform { return review.PlatformGoogle }

// AuthURL implements reviewprovider.Authorizer. It requests offline access
// with forced consent so a refresh token is always issued.
func (p *Provider) AuthURL(state string) (string, error) {
	if p.oauth.ClientID == "" {
		return "", fmt.Errorf("google oauth client: %w", reviewprovider.ErrNotConfigured)
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange implements reviewprovider.Authorizer.
func (p *Provider) Exchange(ctx context.Context, code string) (*integration.Integration, error) {
	return oauthtoken.Exchange(ctx, p.oauth, p.httpClient, review.PlatformGoogle, code)
}

// locationPath returns accounts/{account}/locations/{location}. A missing
// account id falls back to the location id.
func locationPath(t reviewprovider.Target) (string, error) {
	if t.Location == nil {
		return "", fmt.Errorf("google: no location: %w", reviewprovider.ErrNotConfigured)
	}
	loc := t.Location.PlatformID(review.PlatformGoogle)
	if loc == "" {
		return "", fmt.Errorf("google location id for %s: %w", t.Location.ID, reviewprovider.ErrNotConfigured)
	}
	account := loc
	if t.Integration != nil && t.Integration.AccountID != "" {
		account = t.Integration.AccountID
	}
	return "accounts/" + url.PathEscape(account) + "/locations/" + url.PathEscape(loc), nil
}

type gReview struct {
	Name       string          `json:"name"`
	ReviewID   string          `json:"reviewId"`
	StarRating json.RawMessage `json:"starRating"`
	Comment    string          `json:"comment"`
	Reviewer   struct {
		DisplayName string `json:"displayName"`
	} `json:"reviewer"`
	LanguageCode string `json:"languageCode"`
	CreateTime   string `json:"createTime"`
	UpdateTime   string `json:"updateTime"`
	ReviewReply  *struct {
		Comment    string `json:"comment"`
		UpdateTime string `json:"updateTime"`
	} `json:"reviewReply"`
}

type listResponse struct {
	Reviews       []gReview `json:"reviews"`
	NextPageToken string    `json:"nextPageToken"`
}

var starWords = map[string]int{"ONE": 1, "TWO": 2, "THREE": 3, "FOUR": 4, "FIVE": 5}

// parseStars accepts the API's enum form ("FIVE") and a plain number.
func parseStars(raw json.RawMessage) int {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, ok := starWords[s]; ok {
			return n
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	var n int
	_ = json.Unmarshal(raw, &n)
	return n
}

// lastSegment returns the final path element of a resource name.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func (g *gReview) toReview(locationID string) review.Review {
	id := g.ReviewID
	if id == "" {
		id = lastSegment(g.Name)
	}
	r := review.Review{
		LocationID:   locationID,
		Platform:     review.PlatformGoogle,
		ExternalID:   id,
		Rating:       parseStars(g.StarRating),
		Text:         g.Comment,
		AuthorName:   g.Reviewer.DisplayName,
		LanguageCode: g.LanguageCode,
		PublishedAt:  parseTime(g.CreateTime),
		UpdatedAt:    parseTime(g.UpdateTime),
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.PublishedAt
	}
	if g.ReviewReply != nil {
		r.HasOwnerReply = true
		r.OwnerReplyText = g.ReviewReply.Comment
		if at := parseTime(g.ReviewReply.UpdateTime); !at.IsZero() {
			r.OwnerReplyAt = &at
		}
	}
	return r
}

// ListReviews implements reviewprovider.Provider.
func (p *Provider) ListReviews(ctx context.Context, t reviewprovider.Target, since time.Time) ([]review.Review, error) {
	path, err := locationPath(t)
	if err != nil {
		return nil, err
	}
	tok, err := oauthtoken.Fresh(ctx, p.oauth, p.httpClient, t)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	var out []review.Review
	pageToken := ""
	for range maxPages {
		q := url.Values{"pageSize": {strconv.Itoa(pageSize)}, "orderBy": {"updateTime desc"}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		body, err := p.doRequest(ctx, tok, http.MethodGet, p.baseURL+"/"+path+"/reviews?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("google list reviews: %w", err)
		}
		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("google parse reviews: %w", err)
		}

		older := false
		for i := range page.Reviews {
			r := page.Reviews[i].toReview(t.Location.ID)
			if !since.IsZero() && !r.UpdatedAt.After(since) {
				older = true
				continue
			}
			out = append(out, r)
		}
		// Pages are newest first; once a page reaches past since, stop.
		if page.NextPageToken == "" || older {
			break
		}
		pageToken = page.NextPageToken
	}
	return out, nil
}

// PostReply implements reviewprovider.Provider.
func (p *Provider) PostReply(ctx context.Context, t reviewprovider.Target, reviewExternalID, text string) (reviewprovider.Posted, error) {
	path, err := locationPath(t)
	if err != nil {
		return reviewprovider.Posted{}, err
	}
	tok, err := oauthtoken.Fresh(ctx, p.oauth, p.httpClient, t)
	if err != nil {
		return reviewprovider.Posted{}, fmt.Errorf("google: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"comment": text})
	endpoint := p.baseURL + "/" + path + "/reviews/" + url.PathEscape(reviewExternalID) + "/replies"
	body, err := p.doRequest(ctx, tok, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return reviewprovider.Posted{}, fmt.Errorf("google post reply: %w", err)
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return reviewprovider.Posted{}, fmt.Errorf("google parse reply: %w", err)
	}
	id := lastSegment(created.Name)
	if id == "" {
		id = reviewExternalID
	}
	return reviewprovider.Posted{ProviderReplyID: id}, nil
}

func (p *Provider) doRequest(ctx context.Context, tok *oauth2.Token, method, reqURL string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	tok.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req) //nolint:gosec // URL is built from the configured base URL
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("google API %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
