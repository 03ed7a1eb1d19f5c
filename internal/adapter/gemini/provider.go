// Package gemini implements the llm.Provider port with the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Strob0t/ReplyForge/internal/adapter/llmhttp"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// Provider wraps a genai client for the Gemini API backend.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Gemini backend. An empty apiKey yields a provider that
// reports llm.ErrNotConfigured on every call. baseURL and httpClient are
// optional overrides.
func New(ctx context.Context, apiKey, baseURL, model string, httpClient *http.Client) (*Provider, error) {
	if model == "" {
		model = defaultModel
	}
	p := &Provider{model: model}
	if apiKey == "" {
		return p, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	p.client = client
	return p, nil
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return providerName }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.client == nil {
		return nil, fmt.Errorf("gemini: api key not set (GEMINI_API_KEY): %w", llm.ErrNotConfigured)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens) //nolint:gosec // bounded by config validation
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.UserContent()), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &llmhttp.StatusError{Backend: providerName, Code: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("gemini: response has no text")
	}

	out := &llm.Response{Text: text, Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
