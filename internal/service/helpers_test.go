package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

// --- llm fake ---

type fakeLLM struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeLLM) ID() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, Model: "fake-1", Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5}}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- cache fake ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- queue fake ---

type recordingQueue struct {
	mu       sync.Mutex
	subjects []string
}

func (q *recordingQueue) Publish(_ context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subjects = append(q.subjects, subject)
	return nil
}

func (q *recordingQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *recordingQueue) Drain() error      { return nil }
func (q *recordingQueue) Close() error      { return nil }
func (q *recordingQueue) IsConnected() bool { return true }

func (q *recordingQueue) published(subject string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Contains(q.subjects, subject)
}

// --- review platform fake ---

type fakePlatform struct {
	platform review.Platform
	reviews  []review.Review
	listErr  error
	postErr  error
	replyID  string
	posted   []string
	refresh  string // when set, PostReply and ListReviews rotate the access token to this value
	code     string
	noOAuth  bool
	onPost   func() // runs inside PostReply before the reply is accepted
}

func (p *fakePlatform) Platform() review.Platform { return p.platform }

func (p *fakePlatform) ListReviews(_ context.Context, t reviewprovider.Target, _ time.Time) ([]review.Review, error) {
	if p.refresh != "" {
		t.Integration.AccessToken = p.refresh
	}
	if p.listErr != nil {
		return nil, p.listErr
	}
	return slices.Clone(p.reviews), nil
}

func (p *fakePlatform) PostReply(_ context.Context, t reviewprovider.Target, _, text string) (reviewprovider.Posted, error) {
	if p.refresh != "" {
		t.Integration.AccessToken = p.refresh
	}
	if p.onPost != nil {
		p.onPost()
	}
	if p.postErr != nil {
		return reviewprovider.Posted{}, p.postErr
	}
	p.posted = append(p.posted, text)
	return reviewprovider.Posted{ProviderReplyID: p.replyID}, nil
}

func (p *fakePlatform) AuthURL(state string) (string, error) {
	if p.noOAuth {
		return "", reviewprovider.ErrNotConfigured
	}
	return "https://auth.example/authorize?state=" + state, nil
}

func (p *fakePlatform) Exchange(_ context.Context, code string) (*integration.Integration, error) {
	if p.noOAuth {
		return nil, reviewprovider.ErrNotConfigured
	}
	if code != p.code {
		return nil, errors.New("bad code")
	}
	return &integration.Integration{
		Platform:     p.platform,
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		TokenType:    "Bearer",
	}, nil
}

// --- store fake ---

type mockStore struct {
	mu           sync.Mutex
	locations    []review.Location
	reviews      []review.Review
	replies      []review.Reply
	templates    []template.Template
	tones        []tone.Profile
	drafts       []draft.Draft
	integrations []integration.Integration

	// Error hooks.
	updateDraftErr   error
	savePublishedErr error
	upsertReviewErr  error
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
		if f.LocationID != "" && r.LocationID != f.LocationID {
			continue
		}
		if f.Unreplied && r.HasOwnerReply {
			continue
		}
		if f.MaxRating > 0 && r.Rating > f.MaxRating {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) UpsertReview(_ context.Context, r *review.Review) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertReviewErr != nil {
		return false, m.upsertReviewErr
	}
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
	return slices.Clone(m.templates), nil
}

func (m *mockStore) GetTemplate(_ context.Context, id string) (*template.Template, error) {
	for i := range m.templates {
		if m.templates[i].ID == id {
			t := m.templates[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateTemplate(_ context.Context, t *template.Template) error {
	m.templates = append(m.templates, *t)
	return nil
}

func (m *mockStore) ListToneProfiles(_ context.Context) ([]tone.Profile, error) {
	return slices.Clone(m.tones), nil
}

func (m *mockStore) GetToneProfile(_ context.Context, id string) (*tone.Profile, error) {
	for i := range m.tones {
		if m.tones[i].ID == id {
			p := m.tones[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateToneProfile(_ context.Context, p *tone.Profile) error {
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
	if m.updateDraftErr != nil {
		return m.updateDraftErr
	}
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
	return out, nil
}

func (m *mockStore) SavePublished(_ context.Context, d *draft.Draft, reply *review.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.savePublishedErr != nil {
		return m.savePublishedErr
	}
	if err := m.updateLocked(d); err != nil {
		return err
	}
	m.replies = append(m.replies, *reply)
	for i := range m.reviews {
		if m.reviews[i].ID == reply.ReviewID {
			m.reviews[i].HasOwnerReply = true
			m.reviews[i].OwnerReplyText = reply.Content
			at := reply.PublishedAt
			m.reviews[i].OwnerReplyAt = &at
		}
	}
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

func (m *mockStore) integration(locationID string, p review.Platform) integration.Integration {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.integrations {
		if in.LocationID == locationID && in.Platform == p {
			return in
		}
	}
	return integration.Integration{}
}

// fixture returns a store with one Google-connected location and two reviews:
// r5 (five stars) and r2 (two stars).
func fixture() *mockStore {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &mockStore{
		locations: []review.Location{{
			ID:          "loc1",
			Name:        "Cafe Aurora",
			Phone:       "555-123-4567",
			PlatformIDs: map[review.Platform]string{review.PlatformGoogle: "loc-g-1"},
		}},
		reviews: []review.Review{
			{ID: "r5", LocationID: "loc1", Platform: review.PlatformGoogle, ExternalID: "g-5", Rating: 5,
				Text: "Lovely coffee and a friendly team.", AuthorName: "Sam", LanguageCode: "en", PublishedAt: at},
			{ID: "r2", LocationID: "loc1", Platform: review.PlatformGoogle, ExternalID: "g-2", Rating: 2,
				Text: "Slow service and cold food.", AuthorName: "Alex", LanguageCode: "en", PublishedAt: at},
		},
		integrations: []integration.Integration{{
			ID: "int1", LocationID: "loc1", Platform: review.PlatformGoogle, AccessToken: "tok",
		}},
	}
}
