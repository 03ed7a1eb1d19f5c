package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
	"github.com/Strob0t/ReplyForge/internal/logger"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
)

// maxContentLength bounds edited draft content.
const maxContentLength = 4096

// ErrPublishFailed wraps a platform error returned while approving a draft.
var ErrPublishFailed = errors.New("publish failed")

// GenerateRequest asks for a new draft. Optional ids may be empty; an empty
// ToneProfileID selects the default tone profile if one exists.
type GenerateRequest struct {
	ReviewID      string `json:"review_id"`
	TemplateID    string `json:"template_id,omitempty"`
	ToneProfileID string `json:"tone_profile_id,omitempty"`
	CustomPrompt  string `json:"custom_prompt,omitempty"`
}

// DraftService stores drafts and drives them through their lifecycle.
type DraftService struct {
	store     database.Store
	drafter   *Drafter
	publisher *Publisher
	events    *Events
	now       func() time.Time
}

// NewDraftService creates a DraftService.
func NewDraftService(store database.Store, drafter *Drafter, publisher *Publisher, events *Events) *DraftService {
	return &DraftService{
		store:     store,
		drafter:   drafter,
		publisher: publisher,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate drafts a reply for a stored review and saves it.
func (s *DraftService) Generate(ctx context.Context, req GenerateRequest) (*draft.Draft, error) {
	if req.ReviewID == "" {
		return nil, fmt.Errorf("review_id is required: %w", domain.ErrValidation)
	}
	in, err := s.loadInput(ctx, req)
	if err != nil {
		return nil, err
	}

	res, gen, err := s.drafter.Draft(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("draft review %s: %w", req.ReviewID, err)
	}

	now := s.now()
	d := draft.New(in.Review.ID, res)
	d.ID = uuid.NewString()
	d.CustomPrompt = req.CustomPrompt
	if in.Template != nil {
		d.TemplateID = in.Template.ID
	}
	if in.Tone != nil {
		d.ToneProfileID = in.Tone.ID
	}
	d.CreatedAt, d.UpdatedAt = now, now

	if err := s.store.CreateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	ctx = logger.WithDraftID(ctx, d.ID)
	slog.InfoContext(ctx, "draft generated",
		"review_id", d.ReviewID, "status", d.Status, "fallback", d.Fallback,
		"violations", len(d.Policy.Violations), "prompt_tokens", gen.Usage.PromptTokens,
		"completion_tokens", gen.Usage.CompletionTokens, "cached", gen.Cached)
	s.events.Draft(ctx, messagequeue.SubjectDraftGenerated, d)
	return d, nil
}

func (s *DraftService) loadInput(ctx context.Context, req GenerateRequest) (DraftInput, error) {
	rv, err := s.store.GetReview(ctx, req.ReviewID)
	if err != nil {
		return DraftInput{}, fmt.Errorf("load review: %w", err)
	}
	loc, err := s.store.GetLocation(ctx, rv.LocationID)
	if err != nil {
		return DraftInput{}, fmt.Errorf("load location: %w", err)
	}
	in := DraftInput{Review: rv, Location: loc, CustomPrompt: strings.TrimSpace(req.CustomPrompt)}

	if req.TemplateID != "" {
		t, err := s.store.GetTemplate(ctx, req.TemplateID)
		if err != nil {
			return DraftInput{}, fmt.Errorf("load template: %w", err)
		}
		in.Template = t
	}

	if req.ToneProfileID != "" {
		p, err := s.store.GetToneProfile(ctx, req.ToneProfileID)
		if err != nil {
			return DraftInput{}, fmt.Errorf("load tone profile: %w", err)
		}
		in.Tone = p
	} else {
		in.Tone, err = s.defaultTone(ctx)
		if err != nil {
			return DraftInput{}, err
		}
	}
	return in, nil
}

func (s *DraftService) defaultTone(ctx context.Context) (*tone.Profile, error) {
	profiles, err := s.store.ListToneProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tone profiles: %w", err)
	}
	for i := range profiles {
		if profiles[i].IsDefault {
			return &profiles[i], nil
		}
	}
	return nil, nil
}

// Get returns a draft by id.
func (s *DraftService) Get(ctx context.Context, id string) (*draft.Draft, error) {
	return s.store.GetDraft(ctx, id)
}

// List returns drafts matching f, newest first.
func (s *DraftService) List(ctx context.Context, f draft.ListFilter) ([]draft.Draft, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", f.Status, domain.ErrValidation)
	}
	f.Normalize()
	return s.store.ListDrafts(ctx, f)
}

// Update replaces the draft's content. The stored policy result becomes
// stale and must be re-checked before approval.
func (s *DraftService) Update(ctx context.Context, id, content string) (*draft.Draft, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", domain.ErrValidation)
	}
	if len(content) > maxContentLength {
		return nil, fmt.Errorf("content exceeds %d bytes: %w", maxContentLength, domain.ErrValidation)
	}

	return s.mutate(ctx, id, func(d *draft.Draft, now time.Time) error {
		return d.Edit(content, now)
	})
}

// Recheck runs the policy engine on the current content and moves the draft
// to DRAFT or NEEDS_REVIEW.
func (s *DraftService) Recheck(ctx context.Context, id string) (*draft.Draft, error) {
	d, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	rv, err := s.store.GetReview(ctx, d.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}

	res := s.drafter.Checker().Check(d.Content, rv.Rating, rv.LanguageCode)
	if err := d.Recheck(res, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Reject moves the draft to REJECTED.
func (s *DraftService) Reject(ctx context.Context, id string) (*draft.Draft, error) {
	d, err := s.mutate(ctx, id, func(d *draft.Draft, now time.Time) error {
		return d.Reject(now)
	})
	if err != nil {
		return nil, err
	}
	s.events.Draft(ctx, messagequeue.SubjectDraftRejected, d)
	return d, nil
}

func (s *DraftService) mutate(ctx context.Context, id string, fn func(*draft.Draft, time.Time) error) (*draft.Draft, error) {
	d, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(d, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Approve approves the draft and publishes it. Blocked or stale drafts are
// refused before anything is sent. The approval is stored with the publish
// claim before the platform call, so a concurrent approve or edit loses on
// the version check or on the claim. If the platform rejects the reply the
// draft is stored as DRAFT and the publish error is returned; a successful
// publish stores the draft, the reply and the review's answered state
// together.
func (s *DraftService) Approve(ctx context.Context, id string) (*draft.Draft, error) {
	d, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithDraftID(ctx, d.ID)

	rv, err := s.store.GetReview(ctx, d.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	loc, err := s.store.GetLocation(ctx, rv.LocationID)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}

	if err := d.Approve(s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("claim draft: %w", err)
	}

	reply, pubErr := s.publisher.Publish(ctx, d, rv, loc)
	if pubErr != nil {
		slog.ErrorContext(ctx, "publish failed, reverting draft", "review_id", rv.ID, "platform", rv.Platform, "error", pubErr)
		s.events.Reply(ctx, messagequeue.SubjectReplyFailed, messagequeue.ReplyEventPayload{
			DraftID: d.ID, ReviewID: rv.ID, Platform: string(rv.Platform), Error: pubErr.Error(),
		})
		if err := d.PublishFailed(s.now()); err != nil {
			return nil, errors.Join(pubErr, err)
		}
		if err := s.store.UpdateDraft(ctx, d); err != nil {
			return nil, errors.Join(pubErr, fmt.Errorf("save reverted draft: %w", err))
		}
		return nil, fmt.Errorf("publish draft %s: %w: %w", d.ID, ErrPublishFailed, pubErr)
	}

	d.MarkPublished(reply.ProviderReplyID, reply.PublishedAt)
	if err := s.store.SavePublished(ctx, d, reply); err != nil {
		// The reply is live; surface the bookkeeping failure loudly. The
		// claim stays until PublishLease runs out.
		slog.ErrorContext(ctx, "reply published but not recorded",
			"review_id", rv.ID, "provider_reply_id", reply.ProviderReplyID, "error", err)
		return nil, fmt.Errorf("record published reply: %w", err)
	}

	slog.InfoContext(ctx, "reply published", "review_id", rv.ID, "platform", rv.Platform, "provider_reply_id", reply.ProviderReplyID)
	s.events.Draft(ctx, messagequeue.SubjectDraftApproved, d)
	s.events.Reply(ctx, messagequeue.SubjectReplyPublished, messagequeue.ReplyEventPayload{
		DraftID: d.ID, ReviewID: rv.ID, Platform: string(rv.Platform), ProviderReplyID: reply.ProviderReplyID,
	})
	return d, nil
}

// Templates returns all templates.
func (s *DraftService) Templates(ctx context.Context) ([]template.Template, error) {
	return s.store.ListTemplates(ctx)
}

// CreateTemplate validates and stores t.
func (s *DraftService) CreateTemplate(ctx context.Context, t *template.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	return s.store.CreateTemplate(ctx, t)
}

// ToneProfiles returns all tone profiles.
func (s *DraftService) ToneProfiles(ctx context.Context) ([]tone.Profile, error) {
	return s.store.ListToneProfiles(ctx)
}

// CreateToneProfile stores p.
func (s *DraftService) CreateToneProfile(ctx context.Context, p *tone.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	return s.store.CreateToneProfile(ctx, p)
}

// Reviews lists stored reviews.
func (s *DraftService) Reviews(ctx context.Context, f database.ReviewFilter) ([]review.Review, error) {
	return s.store.ListReviews(ctx, f)
}
