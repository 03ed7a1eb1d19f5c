package http_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/prompt"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
	"github.com/Strob0t/ReplyForge/internal/service"
)

// mockStore implements database.Store in memory.
type mockStore struct {
	mu           sync.Mutex
	locations    []review.Location
	reviews      []review.Review
	replies      []review.Reply
	templates    []template.Template
	tones        []tone.Profile
	drafts       []draft.Draft
	integrations []integration.Integration
}

var _ database.Store = (*mockStore)(nil)

func (m *mockStore) ListLocations(_ context.Context) ([]review.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.locations), nil
}

func (m *mockStore) GetLocation(_ context.Context, id string) (*review.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.locations {
		if m.locations[i].ID == id {
			l := m.locations[i]
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateLocation(_ context.Context, l *review.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, *l)
	return nil
}

func (m *mockStore) GetReview(_ context.Context, id string) (*review.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reviews {
		if m.reviews[i].ID == id {
			r := m.reviews[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListReviews(_ context.Context, f database.ReviewFilter) ([]review.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []review.Review
	for _, r := range m.reviews {
		if f.LocationID == "" || r.LocationID == f.LocationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) UpsertReview(_ context.Context, r *review.Review) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reviews {
		if m.reviews[i].Platform == r.Platform && m.reviews[i].ExternalID == r.ExternalID {
			r.ID = m.reviews[i].ID
			m.reviews[i] = *r
			return false, nil
		}
	}
	m.reviews = append(m.reviews, *r)
	return true, nil
}

func (m *mockStore) ListReplies(_ context.Context, reviewID string) ([]review.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []review.Reply
	for _, r := range m.replies {
		if r.ReviewID == reviewID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) ListTemplates(_ context.Context) ([]template.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.templates), nil
}

func (m *mockStore) GetTemplate(_ context.Context, id string) (*template.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		if m.templates[i].ID == id {
			t := m.templates[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateTemplate(_ context.Context, t *template.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, *t)
	return nil
}

func (m *mockStore) ListToneProfiles(_ context.Context) ([]tone.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tones), nil
}

func (m *mockStore) GetToneProfile(_ context.Context, id string) (*tone.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tones {
		if m.tones[i].ID == id {
			p := m.tones[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateToneProfile(_ context.Context, p *tone.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.IsDefault {
		for _, existing := range m.tones {
			if existing.IsDefault {
				return domain.ErrConflict
			}
		}
	}
	m.tones = append(m.tones, *p)
	return nil
}

func (m *mockStore) CreateDraft(_ context.Context, d *draft.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Version = 1
	m.drafts = append(m.drafts, *d)
	return nil
}

func (m *mockStore) GetDraft(_ context.Context, id string) (*draft.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.drafts {
		if m.drafts[i].ID == id {
			d := m.drafts[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) updateLocked(d *draft.Draft) error {
	for i := range m.drafts {
		if m.drafts[i].ID != d.ID {
			continue
		}
		if m.drafts[i].Version != d.Version {
			return domain.ErrConflict
		}
		d.Version++
		m.drafts[i] = *d
		return nil
	}
	return domain.ErrNotFound
}

func (m *mockStore) UpdateDraft(_ context.Context, d *draft.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(d)
}

func (m *mockStore) ListDrafts(_ context.Context, f draft.ListFilter) ([]draft.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []draft.Draft
	for _, d := range m.drafts {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.ReviewID != "" && d.ReviewID != f.ReviewID {
			continue
		}
		out = append(out, d)
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockStore) SavePublished(_ context.Context, d *draft.Draft, reply *review.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateLocked(d); err != nil {
		return err
	}
	m.replies = append(m.replies, *reply)
	return nil
}

func (m *mockStore) GetIntegration(_ context.Context, locationID string, p review.Platform) (*integration.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.integrations {
		if m.integrations[i].LocationID == locationID && m.integrations[i].Platform == p {
			in := m.integrations[i]
			return &in, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) UpsertIntegration(_ context.Context, in *integration.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.integrations {
		if m.integrations[i].LocationID == in.LocationID && m.integrations[i].Platform == in.Platform {
			m.integrations[i] = *in
			return nil
		}
	}
	m.integrations = append(m.integrations, *in)
	return nil
}

func (m *mockStore) TouchIntegrationSync(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.integrations {
		if m.integrations[i].ID == id {
			m.integrations[i].LastSyncAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// stubGenerator returns fixed text.
type stubGenerator struct {
	text string
}

func (g *stubGenerator) Generate(_ context.Context, _ string, _ prompt.Context) (service.Generation, error) {
	return service.Generation{Text: g.text, ProviderID: "stub"}, nil
}

// fakePlatform is a review platform that accepts every reply unless postErr is set.
type fakePlatform struct {
	mu      sync.Mutex
	reviews []review.Review
	postErr error
	posted  int
}

func (p *fakePlatform) Platform() review.Platform { return review.PlatformGoogle }

func (p *fakePlatform) ListReviews(context.Context, reviewprovider.Target, time.Time) ([]review.Review, error) {
	return slices.Clone(p.reviews), nil
}

func (p *fakePlatform) PostReply(context.Context, reviewprovider.Target, string, string) (reviewprovider.Posted, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.postErr != nil {
		return reviewprovider.Posted{}, p.postErr
	}
	p.posted++
	return reviewprovider.Posted{ProviderReplyID: "g-reply-1"}, nil
}

func (p *fakePlatform) AuthURL(state string) (string, error) {
	return "https://accounts.example/o/oauth2/auth?state=" + state, nil
}

func (p *fakePlatform) Exchange(_ context.Context, code string) (*integration.Integration, error) {
	if code != "good-code" {
		return nil, errors.New("invalid_grant")
	}
	return &integration.Integration{Platform: review.PlatformGoogle, AccessToken: "at", RefreshToken: "rt"}, nil
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
