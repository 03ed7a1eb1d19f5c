package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Guards are optional middlewares for routes that call the generation
// backend or a review platform. Nil entries are skipped.
type Guards struct {
	RateLimit   func(http.Handler) http.Handler
	Idempotency func(http.Handler) http.Handler
}

func (g Guards) chain() []func(http.Handler) http.Handler {
	var mws []func(http.Handler) http.Handler
	if g.RateLimit != nil {
		mws = append(mws, g.RateLimit)
	}
	if g.Idempotency != nil {
		mws = append(mws, g.Idempotency)
	}
	return mws
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, g Guards) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Drafts
		r.Get("/drafts", h.ListDrafts)
		r.Get("/drafts/{id}", handleByID(h.Drafts.Get, "draft not found"))
		r.Put("/drafts/{id}", h.UpdateDraft)
		r.Post("/drafts/{id}/recheck", handleByID(h.Drafts.Recheck, "draft not found"))
		r.Post("/drafts/{id}/reject", handleByID(h.Drafts.Reject, "draft not found"))
		r.Group(func(r chi.Router) {
			r.Use(g.chain()...)
			r.Post("/drafts", h.GenerateDraft)
			r.Post("/drafts/{id}/approve", handleByID(h.Drafts.Approve, "draft not found"))
		})

		// Policy
		r.Post("/policy/check", h.CheckPolicy)
		r.Post("/policy/sanitize", h.SanitizePolicy)

		// Templates and tone profiles
		r.Get("/templates", handleList(h.Drafts.Templates))
		r.Post("/templates", h.CreateTemplate)
		r.Get("/tone-profiles", handleList(h.Drafts.ToneProfiles))
		r.Post("/tone-profiles", h.CreateToneProfile)

		// Review platforms
		r.Post("/locations/{id}/sync", h.SyncLocation)
		r.Get("/integrations/{provider}/auth-url", h.AuthURL)
		r.Post("/integrations/{provider}/exchange", h.ExchangeCode)
	})
}
