// Package review defines the externally sourced entities a reply is drafted
// for: reviews, the business locations they belong to, and published replies.
package review

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Strob0t/ReplyForge/internal/domain"
)

// Platform names the site a review was posted on.
type Platform string

const (
	PlatformGoogle   Platform = "google"
	PlatformFacebook Platform = "facebook"
)

// Review is read-only to the drafting pipeline.
type Review struct {
	ID           string    `json:"id"`
	LocationID   string    `json:"location_id"`
	Platform     Platform  `json:"platform"`
	ExternalID   string    `json:"external_id"`
	Rating       int       `json:"rating"`
	Text         string    `json:"text"`
	Title        string    `json:"title,omitempty"`
	AuthorName   string    `json:"author_name,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	HasOwnerReply  bool       `json:"has_owner_reply"`
	OwnerReplyAt   *time.Time `json:"owner_reply_at,omitempty"`
	OwnerReplyText string     `json:"owner_reply_text,omitempty"`
}

// Validate enforces the star-rating range.
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating %d out of range [1,5]: %w", r.Rating, domain.ErrValidation)
	}
	return nil
}

// Positive reports whether the review counts as positive (four stars or more).
func (r *Review) Positive() bool { return r.Rating >= 4 }

// Location is a business location. It supplies the identity substituted into replies.
type Location struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Address     string              `json:"address,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	PlatformIDs map[Platform]string `json:"platform_ids,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// PlatformID returns the location's identifier on p, or "".
func (l *Location) PlatformID(p Platform) string {
	if l.PlatformIDs == nil {
		return ""
	}
	return l.PlatformIDs[p]
}

// Validate checks a location before it is stored.
func (l *Location) Validate() error {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(name) > 255 {
		return fmt.Errorf("name exceeds 255 characters: %w", domain.ErrValidation)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control characters: %w", domain.ErrValidation)
		}
	}
	for p := range l.PlatformIDs {
		if p != PlatformGoogle && p != PlatformFacebook {
			return fmt.Errorf("unknown platform %q: %w", p, domain.ErrValidation)
		}
	}
	return nil
}

// Reply records a reply that reached the platform.
type Reply struct {
	ID              string    `json:"id"`
	ReviewID        string    `json:"review_id"`
	DraftID         string    `json:"draft_id"`
	Content         string    `json:"content"`
	ProviderReplyID string    `json:"provider_reply_id"`
	PublishedAt     time.Time `json:"published_at"`
}
