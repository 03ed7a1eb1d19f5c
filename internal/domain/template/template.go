// Package template defines business-authored reply templates and renders them.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

// Placeholder tokens recognized in template bodies.
const (
	TokenBusinessName  = "{{business_name}}"
	TokenRating        = "{{rating}}"
	TokenReviewText    = "{{review_text}}"
	TokenAuthorName    = "{{author_name}}"
	TokenCustomContent = "{{custom_content}}"
)

const (
	defaultBusinessName = "our business"
	defaultAuthorName   = "the reviewer"
)

// Template is canned reply text, optionally restricted to a star-rating range.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	MinStars  *int      `json:"min_stars,omitempty"`
	MaxStars  *int      `json:"max_stars,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the body and the rating bounds.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("content is required: %w", domain.ErrValidation)
	}
	for _, b := range []*int{t.MinStars, t.MaxStars} {
		if b != nil && (*b < 1 || *b > 5) {
			return fmt.Errorf("star bound %d out of range [1,5]: %w", *b, domain.ErrValidation)
		}
	}
	if t.MinStars != nil && t.MaxStars != nil && *t.MinStars > *t.MaxStars {
		return fmt.Errorf("min_stars %d exceeds max_stars %d: %w", *t.MinStars, *t.MaxStars, domain.ErrValidation)
	}
	return nil
}

// AppliesTo reports whether the template is active and its bounds admit rating.
func (t *Template) AppliesTo(rating int) bool {
	if !t.Active {
		return false
	}
	if t.MinStars != nil && rating < *t.MinStars {
		return false
	}
	if t.MaxStars != nil && rating > *t.MaxStars {
		return false
	}
	return true
}

// Splices reports whether the body opts into splicing generated content.
func (t *Template) Splices() bool {
	return strings.Contains(t.Content, TokenCustomContent)
}

// Apply renders the template for a review. Identity tokens are substituted
// first; the first custom-content token is then replaced by content. Without
// that token the rendered body is returned and content is discarded.
func Apply(content string, t *Template, rv *review.Review, loc *review.Location) string {
	business := defaultBusinessName
	if loc != nil && loc.Name != "" {
		business = loc.Name
	}
	author := rv.AuthorName
	if author == "" {
		author = defaultAuthorName
	}

	out := strings.NewReplacer(
		TokenBusinessName, business,
		TokenRating, strconv.Itoa(rv.Rating),
		TokenReviewText, rv.Text,
		TokenAuthorName, author,
	).Replace(t.Content)

	return strings.Replace(out, TokenCustomContent, content, 1)
}
