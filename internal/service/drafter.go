package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	rfotel "github.com/Strob0t/ReplyForge/internal/adapter/otel"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/policy"
	"github.com/Strob0t/ReplyForge/internal/domain/prompt"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
)

// Generator produces reply text. *Gateway implements it.
type Generator interface {
	Generate(ctx context.Context, instructions string, c prompt.Context) (Generation, error)
}

// DraftInput is everything one drafting run needs. Template, Tone and
// CustomPrompt are optional.
type DraftInput struct {
	Review       *review.Review
	Location     *review.Location
	Template     *template.Template
	Tone         *tone.Profile
	CustomPrompt string
}

// Drafter turns a review into a checked reply candidate. It persists nothing.
type Drafter struct {
	gen     Generator
	checker *policy.Checker
	metrics *rfotel.Metrics
}

// NewDrafter creates a Drafter. A nil checker uses the built-in rules.
func NewDrafter(gen Generator, checker *policy.Checker, metrics *rfotel.Metrics) *Drafter {
	if checker == nil {
		checker = policy.Default()
	}
	return &Drafter{gen: gen, checker: checker, metrics: metrics}
}

// Checker returns the policy checker drafts are evaluated with.
func (d *Drafter) Checker() *policy.Checker { return d.checker }

// Orchestrate builds the context, generates content, checks it and assigns
// the initial status. Generation failures are absorbed by the fallback; the
// only error is a missing backend configuration.
func (d *Drafter) Orchestrate(ctx context.Context, in DraftInput) (draft.Result, Generation, error) {
	pc := prompt.Build(in.Review, in.Location, in.Template, in.Tone)

	gen, err := d.gen.Generate(ctx, prompt.Select(in.CustomPrompt), pc)
	if err != nil {
		return draft.Result{}, Generation{}, err
	}

	res := d.evaluate(gen.Text, in.Review)
	res.Fallback = gen.Fallback
	res.ProviderID = gen.ProviderID
	return res, gen, nil
}

// Draft is Orchestrate followed by template and tone rendering. Rendered
// text is checked again and the status recomputed from the final content.
// A template that does not apply to the review's rating is ignored.
func (d *Drafter) Draft(ctx context.Context, in DraftInput) (draft.Result, Generation, error) {
	ctx, span := rfotel.StartDraftSpan(ctx, in.Review.ID)
	defer span.End()

	if in.Template != nil && !in.Template.AppliesTo(in.Review.Rating) {
		slog.InfoContext(ctx, "template does not apply to rating, ignoring",
			"template_id", in.Template.ID, "rating", in.Review.Rating)
		in.Template = nil
	}

	res, gen, err := d.Orchestrate(ctx, in)
	if err != nil {
		return draft.Result{}, Generation{}, err
	}

	content := Render(res.Content, in)
	if content != res.Content {
		if in.Template != nil && !in.Template.Splices() {
			slog.InfoContext(ctx, "template has no custom content token, generated text replaced",
				"template_id", in.Template.ID)
		}
		fallback, provider := res.Fallback, res.ProviderID
		res = d.evaluate(content, in.Review)
		res.Fallback, res.ProviderID = fallback, provider
	}

	d.record(ctx, res)
	return res, gen, nil
}

// Render applies the template and then the tone profile to content.
func Render(content string, in DraftInput) string {
	if in.Template != nil {
		content = template.Apply(content, in.Template, in.Review, in.Location)
	}
	if in.Tone != nil {
		name := ""
		if in.Location != nil {
			name = in.Location.Name
		}
		content = tone.Apply(content, in.Tone.Settings, name)
	}
	return content
}

func (d *Drafter) evaluate(content string, rv *review.Review) draft.Result {
	res := d.checker.Check(content, rv.Rating, rv.LanguageCode)
	return draft.Result{
		Content: content,
		Policy:  res,
		Status:  draft.AssignStatus(res, rv.Rating),
	}
}

func (d *Drafter) record(ctx context.Context, res draft.Result) {
	if d.metrics == nil {
		return
	}
	d.metrics.DraftsGenerated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Bool("fallback", res.Fallback),
	))
	for _, v := range res.Policy.Violations {
		d.metrics.PolicyViolations.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(v.Kind))))
	}
}
