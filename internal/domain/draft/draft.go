// Package draft defines reply drafts, their initial status assignment and
// their lifecycle after they are stored.
package draft

import (
	"errors"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain/policy"
)

// Status is the lifecycle position of a draft.
type Status string

// Status values double as statekit state IDs.
const (
	StatusDraft       Status = StateDraft
	StatusNeedsReview Status = StateNeedsReview
	StatusApproved    Status = StateApproved
	StatusRejected    Status = StateRejected
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusNeedsReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

var (
	// ErrBlocked is returned when approving a draft whose policy result blocks publication.
	ErrBlocked = errors.New("draft is blocked by a policy violation")
	// ErrStalePolicy is returned when approving a draft edited since its last policy check.
	ErrStalePolicy = errors.New("draft content changed since the last policy check")
	// ErrTerminal is returned for any transition out of REJECTED.
	ErrTerminal = errors.New("draft is rejected")
	// ErrAlreadyPublished is returned when changing a draft whose reply is live.
	ErrAlreadyPublished = errors.New("draft is already published")
	// ErrInvalidTransition is returned when the lifecycle has no matching transition.
	ErrInvalidTransition = errors.New("invalid draft transition")
	// ErrPublishing is returned while another approval holds the publish claim.
	ErrPublishing = errors.New("draft is being published")
)

// PublishLease is how long a publish claim holds. It outlasts any platform
// call; a claim older than this is treated as abandoned.
const PublishLease = 5 * time.Minute

// Result is the value returned by one drafting run; nothing is persisted yet.
type Result struct {
	Content string        `json:"content"`
	Policy  policy.Result `json:"violations"`
	Status  Status        `json:"status"`

	Fallback   bool   `json:"fallback"`
	ProviderID string `json:"provider_id,omitempty"`
}

// Draft is a stored reply candidate for one review.
type Draft struct {
	ID            string        `json:"id"`
	ReviewID      string        `json:"review_id"`
	TemplateID    string        `json:"template_id,omitempty"`
	ToneProfileID string        `json:"tone_profile_id,omitempty"`
	CustomPrompt  string        `json:"custom_prompt,omitempty"`
	Content       string        `json:"content"`
	Policy        policy.Result `json:"policy"`
	PolicyStale   bool          `json:"policy_stale"`
	Status        Status        `json:"status"`
	Fallback      bool          `json:"fallback"`
	ProviderID    string        `json:"provider_id,omitempty"`

	ProviderReplyID string     `json:"provider_reply_id,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	PublishingSince *time.Time `json:"publishing_since,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds an unsaved draft from a drafting result.
func New(reviewID string, r Result) *Draft {
	return &Draft{
		ReviewID:   reviewID,
		Content:    r.Content,
		Policy:     r.Policy,
		Status:     r.Status,
		Fallback:   r.Fallback,
		ProviderID: r.ProviderID,
	}
}

// Published reports whether the reply reached the platform.
func (d *Draft) Published() bool { return d.PublishedAt != nil }

// Publishing reports whether an approval holds a live publish claim at now.
func (d *Draft) Publishing(now time.Time) bool {
	return d.PublishingSince != nil && now.Sub(*d.PublishingSince) < PublishLease
}

// ListFilter narrows and pages draft listings.
type ListFilter struct {
	Status   Status
	ReviewID string
	Limit    int
	Offset   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage bounds page numbers so the offset cannot overflow.
	MaxPage = 10000
)

// Normalize clamps paging values into range.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
