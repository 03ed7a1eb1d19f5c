// Package prompt assembles the generation context for a review reply and
// holds the fixed authoring instructions and fallback replies.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
)

// Business is the identity block of a context.
type Business struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Review is the review block of a context.
type Review struct {
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
}

// Context is everything the generator sees about a review.
type Context struct {
	Business Business      `json:"business"`
	Review   Review        `json:"review"`
	Template string        `json:"template"`
	Tone     tone.Settings `json:"tone"`
}

// Build assembles a Context. tmpl and tp may be nil.
func Build(rv *review.Review, loc *review.Location, tmpl *template.Template, tp *tone.Profile) Context {
	c := Context{
		Review: Review{
			Rating:   rv.Rating,
			Text:     rv.Text,
			Title:    rv.Title,
			Author:   rv.AuthorName,
			Language: rv.LanguageCode,
		},
	}
	if loc != nil {
		c.Business = Business{Name: loc.Name, Address: loc.Address, Phone: loc.Phone}
	}
	if tmpl != nil {
		c.Template = tmpl.Content
	}
	if tp != nil {
		c.Tone = tp.Settings
	}
	return c
}

// JSON renders the context as indented JSON, the form sent to generators.
func (c Context) JSON() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		// Only plain strings and ints are marshaled.
		panic(fmt.Sprintf("prompt: marshal context: %v", err))
	}
	return string(b)
}

// SystemMessage is sent as the system role to chat-style backends.
const SystemMessage = "You are a helpful assistant that writes professional business review responses."

const defaultInstructions = `You are writing an owner response to a public review for a local business.

Keep your response:
- Short and human (under 150 words)
- Contextually specific to the review content
- Professional but warm
- Focused on the specific feedback

For positive reviews: Thank the reviewer genuinely and mention something specific from their feedback.

For negative reviews:
- Acknowledge the issue without making excuses
- State one concrete next step you'll take
- Invite them to contact you offline for resolution
- Avoid promises you cannot keep

Rules:
- No incentives, discounts, or requests to change the review
- Do not include personal data or order numbers
- Use the business name naturally
- Mirror the language of the review if possible
- If the review mentions safety concerns, recommend escalation

Generate a natural, helpful response:`

// Default returns the built-in instructions. The context travels separately
// and is appended by the generation backend.
func Default() string { return defaultInstructions }

// Select returns custom when it is non-empty and the default instructions otherwise.
func Select(custom string) string {
	if custom != "" {
		return custom
	}
	return defaultInstructions
}

// Fallback is the deterministic reply used when generation fails. It depends
// only on the rating and the business identity.
func Fallback(c Context) string {
	if c.Review.Rating >= 4 {
		name := c.Business.Name
		if name == "" {
			name = "our business"
		}
		return fmt.Sprintf("Thank you for your %d-star review! We're delighted that you had a great experience at %s. "+
			"Your feedback means a lot to us and helps us continue providing excellent service. "+
			"We look forward to serving you again soon!", c.Review.Rating, name)
	}

	contact := "please contact us directly"
	if c.Business.Phone != "" {
		contact = "please contact us at " + c.Business.Phone
	}
	return "Thank you for your feedback. We take all reviews seriously and appreciate you taking the time to share your experience. " +
		"We'd like to address your concerns directly - " + contact + " so we can work towards a resolution."
}
