package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/policy"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
	"github.com/Strob0t/ReplyForge/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Drafts       *service.DraftService
	Sync         *service.SyncService
	Integrations *service.IntegrationService
	Policy       *policy.Checker
}

// ---------------------------------------------------------------------------
// Drafts
// ---------------------------------------------------------------------------

// GenerateDraft handles POST /api/v1/drafts.
func (h *Handlers) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.GenerateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.ReviewID, "review_id") {
		return
	}
	d, err := h.Drafts.Generate(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, "review not found")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type draftPage struct {
	Items []draft.Draft `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListDrafts handles GET /api/v1/drafts?status=&review_id=&page=&limit=.
func (h *Handlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	page, okPage := queryInt(r, "page")
	limit, okLimit := queryInt(r, "limit")
	if !okPage || !okLimit {
		writeError(w, http.StatusBadRequest, "page and limit must be non-negative integers")
		return
	}
	if page == 0 {
		page = 1
	}
	if page > draft.MaxPage {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("page must be at most %d", draft.MaxPage))
		return
	}

	f := draft.ListFilter{
		Status:   draft.Status(strings.ToUpper(r.URL.Query().Get("status"))),
		ReviewID: r.URL.Query().Get("review_id"),
		Limit:    limit,
	}
	f.Normalize()
	f.Offset = (page - 1) * f.Limit

	items, err := h.Drafts.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err, "not found")
		return
	}
	if items == nil {
		items = []draft.Draft{}
	}
	writeJSON(w, http.StatusOK, draftPage{Items: items, Page: page, Limit: f.Limit})
}

type updateDraftRequest struct {
	Content string `json:"content"`
}

// UpdateDraft handles PUT /api/v1/drafts/{id}.
func (h *Handlers) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[updateDraftRequest](w, r)
	if !ok {
		return
	}
	d, err := h.Drafts.Update(r.Context(), urlParam(r, "id"), req.Content)
	if err != nil {
		writeDomainError(w, r, err, "draft not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ---------------------------------------------------------------------------
// Policy
// ---------------------------------------------------------------------------

type policyCheckRequest struct {
	Content      string `json:"content"`
	Rating       int    `json:"rating"`
	LanguageCode string `json:"language_code,omitempty"`
}

type policyCheckResponse struct {
	policy.Result
	Status draft.Status `json:"status"`
	Rule   string       `json:"rule"`
}

// CheckPolicy handles POST /api/v1/policy/check. It reports the violations
// and the status a draft with this content would receive.
func (h *Handlers) CheckPolicy(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[policyCheckRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Content, "content") {
		return
	}
	rv := review.Review{Rating: req.Rating}
	if err := rv.Validate(); err != nil {
		writeDomainError(w, r, err, "")
		return
	}

	res := h.Policy.Check(req.Content, req.Rating, req.LanguageCode)
	status, rule := draft.Decide(res, req.Rating)
	writeJSON(w, http.StatusOK, policyCheckResponse{Result: res, Status: status, Rule: rule})
}

type sanitizeRequest struct {
	Content string `json:"content"`
}

type sanitizeResponse struct {
	Content  string   `json:"content"`
	PIIFound []string `json:"pii_found"`
}

// SanitizePolicy handles POST /api/v1/policy/sanitize.
func (h *Handlers) SanitizePolicy(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sanitizeRequest](w, r)
	if !ok {
		return
	}
	found := h.Policy.PIIFound(req.Content)
	if found == nil {
		found = []string{}
	}
	writeJSON(w, http.StatusOK, sanitizeResponse{Content: h.Policy.Sanitize(req.Content), PIIFound: found})
}

// ---------------------------------------------------------------------------
// Templates and tone profiles
// ---------------------------------------------------------------------------

type createTemplateRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	MinStars *int   `json:"min_stars,omitempty"`
	MaxStars *int   `json:"max_stars,omitempty"`
	Active   *bool  `json:"active,omitempty"` // default true
}

// CreateTemplate handles POST /api/v1/templates.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createTemplateRequest](w, r)
	if !ok {
		return
	}
	t := &template.Template{
		Name:     req.Name,
		Content:  req.Content,
		MinStars: req.MinStars,
		MaxStars: req.MaxStars,
		Active:   req.Active == nil || *req.Active,
	}
	if err := h.Drafts.CreateTemplate(r.Context(), t); err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type createToneProfileRequest struct {
	Name      string          `json:"name"`
	IsDefault bool            `json:"is_default"`
	Settings  json.RawMessage `json:"settings"`
}

// CreateToneProfile handles POST /api/v1/tone-profiles. Settings are
// validated against tone.SettingsSchema.
func (h *Handlers) CreateToneProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createToneProfileRequest](w, r)
	if !ok {
		return
	}
	raw := req.Settings
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	settings, err := tone.ParseSettings(raw)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	p := &tone.Profile{Name: req.Name, IsDefault: req.IsDefault, Settings: settings}
	if err := h.Drafts.CreateToneProfile(r.Context(), p); err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ---------------------------------------------------------------------------
// Sync and integrations
// ---------------------------------------------------------------------------

type syncResponse struct {
	Results []service.SyncResult `json:"results"`
	Error   string               `json:"error,omitempty"`
}

// SyncLocation handles POST /api/v1/locations/{id}/sync. Per-platform
// failures are reported in the body with 200; the call fails only when the
// location cannot be loaded or nothing could be synced.
func (h *Handlers) SyncLocation(w http.ResponseWriter, r *http.Request) {
	results, err := h.Sync.SyncLocation(r.Context(), urlParam(r, "id"))
	if err != nil && !anySynced(results) {
		writeDomainError(w, r, err, "location not found")
		return
	}
	resp := syncResponse{Results: results}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func anySynced(results []service.SyncResult) bool {
	for i := range results {
		if results[i].Error == "" {
			return true
		}
	}
	return false
}

// platformParam parses the {provider} URL parameter.
func platformParam(r *http.Request) (review.Platform, error) {
	p := review.Platform(strings.ToLower(urlParam(r, "provider")))
	switch p {
	case review.PlatformGoogle, review.PlatformFacebook:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q: %w", p, domain.ErrValidation)
}

type authURLResponse struct {
	URL string `json:"url"`
}

// AuthURL handles GET /api/v1/integrations/{provider}/auth-url?location_id=.
func (h *Handlers) AuthURL(w http.ResponseWriter, r *http.Request) {
	p, err := platformParam(r)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	locationID := r.URL.Query().Get("location_id")
	if !requireField(w, locationID, "location_id") {
		return
	}
	u, err := h.Integrations.AuthURL(r.Context(), locationID, p)
	if err != nil {
		writeDomainError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, authURLResponse{URL: u})
}

type exchangeRequest struct {
	State     string `json:"state"`
	Code      string `json:"code"`
	AccountID string `json:"account_id,omitempty"`
}

// ExchangeCode handles POST /api/v1/integrations/{provider}/exchange.
func (h *Handlers) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	p, err := platformParam(r)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	req, ok := readJSON[exchangeRequest](w, r)
	if !ok {
		return
	}
	in, err := h.Integrations.Exchange(r.Context(), p, req.State, req.Code, req.AccountID)
	if err != nil {
		writeDomainError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health returns a handler for GET /health. It answers 503 when any check fails.
func Health(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		writeJSON(w, code, resp)
	}
}
