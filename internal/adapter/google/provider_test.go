package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

func target() reviewprovider.Target {
	return reviewprovider.Target{
		Location: &review.Location{
			ID:          "loc-1",
			Name:        "Cafe Uno",
			PlatformIDs: map[review.Platform]string{review.PlatformGoogle: "555"},
		},
		Integration: &integration.Integration{AccountID: "acct", AccessToken: "tok"},
	}
}

func TestListReviews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct/locations/555/reviews" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"reviews": [
			{"name": "accounts/acct/locations/555/reviews/r-new", "starRating": "FIVE", "comment": "Great!",
			 "reviewer": {"displayName": "Ana"}, "createTime": "2026-03-02T10:00:00Z", "updateTime": "2026-03-02T10:00:00Z",
			 "reviewReply": {"comment": "Thanks Ana", "updateTime": "2026-03-03T09:00:00Z"}},
			{"name": "accounts/acct/locations/555/reviews/r-num", "starRating": 2, "comment": "Cold food",
			 "createTime": "2026-03-01T10:00:00Z"},
			{"name": "accounts/acct/locations/555/reviews/r-old", "starRating": "THREE",
			 "createTime": "2026-01-01T10:00:00Z", "updateTime": "2026-01-01T10:00:00Z"}
		], "nextPageToken": "more"}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err := p.ListReviews(context.Background(), target(), since)
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d reviews, want 2 (old one filtered)", len(got))
	}

	first := got[0]
	if first.ExternalID != "r-new" || first.Rating != 5 || first.AuthorName != "Ana" || first.LocationID != "loc-1" {
		t.Errorf("first = %+v", first)
	}
	if !first.HasOwnerReply || first.OwnerReplyText != "Thanks Ana" || first.OwnerReplyAt == nil {
		t.Errorf("owner reply not mapped: %+v", first)
	}
	if got[1].Rating != 2 || !got[1].UpdatedAt.Equal(got[1].PublishedAt) {
		t.Errorf("second = %+v", got[1])
	}
}

func TestPostReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/accounts/acct/locations/555/reviews/r-1/replies" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["comment"] != "Thank you!" {
			t.Errorf("comment = %q", body["comment"])
		}
		_, _ = w.Write([]byte(`{"name": "accounts/acct/locations/555/reviews/r-1/replies/rep-9"}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	posted, err := p.PostReply(context.Background(), target(), "r-1", "Thank you!")
	if err != nil {
		t.Fatalf("PostReply: %v", err)
	}
	if posted.ProviderReplyID != "rep-9" {
		t.Errorf("ProviderReplyID = %q", posted.ProviderReplyID)
	}
}

func TestPostReplyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if _, err := p.PostReply(context.Background(), target(), "r-1", "x"); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestMissingLocationID(t *testing.T) {
	tg := target()
	tg.Location.PlatformIDs = nil
	p := New(Config{})
	if _, err := p.PostReply(context.Background(), tg, "r-1", "x"); !errors.Is(err, reviewprovider.ErrNotConfigured) {
		t.Errorf("PostReply: got %v", err)
	}
	if _, err := p.ListReviews(context.Background(), tg, time.Time{}); !errors.Is(err, reviewprovider.ErrNotConfigured) {
		t.Errorf("ListReviews: got %v", err)
	}
}

func TestRefreshesExpiredToken(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			tokenCalls++
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600}`))
		case strings.HasSuffix(r.URL.Path, "/replies"):
			if r.Header.Get("Authorization") != "Bearer fresh" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			_, _ = w.Write([]byte(`{"name": "x/replies/rep-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := New(Config{
		ClientID: "id", ClientSecret: "secret",
		BaseURL:    srv.URL,
		Endpoint:   oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		HTTPClient: srv.Client(),
	})
	tg := target()
	tg.Integration.RefreshToken = "refresh"
	tg.Integration.Expiry = time.Now().Add(-time.Minute)

	if _, err := p.PostReply(context.Background(), tg, "r-1", "hi"); err != nil {
		t.Fatalf("PostReply: %v", err)
	}
	if tokenCalls != 1 {
		t.Errorf("token endpoint called %d times", tokenCalls)
	}
	if tg.Integration.AccessToken != "fresh" {
		t.Errorf("integration not updated: %q", tg.Integration.AccessToken)
	}
}

func TestAuthURL(t *testing.T) {
	if _, err := New(Config{}).AuthURL("s"); !errors.Is(err, reviewprovider.ErrNotConfigured) {
		t.Fatalf("unconfigured: got %v", err)
	}

	raw, err := New(Config{ClientID: "cid", RedirectURL: "https://app/cb"}).AuthURL("state-1")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("state") != "state-1" || q.Get("access_type") != "offline" {
		t.Errorf("query = %v", q)
	}
	if q.Get("scope") != scope {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestParseStars(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`"ONE"`, 1}, {`"FIVE"`, 5}, {`4`, 4}, {`"3"`, 3}, {`"STAR_RATING_UNSPECIFIED"`, 0},
	}
	for _, tt := range tests {
		if got := parseStars(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("parseStars(%s) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
