// Package ollama implements the llm.Provider port against a local Ollama
// server's /api/generate endpoint.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Strob0t/ReplyForge/internal/adapter/llmhttp"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3"
)

var safeModelName = regexp.MustCompile(`^[a-zA-Z0-9:._/-]+$`)

// Provider talks to a local inference server. It needs no credentials.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an Ollama backend.
func New(baseURL, model string, client *http.Client) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if client == nil {
		client = llmhttp.NewClient()
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), model: model, httpClient: client}
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return providerName }

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	System  string  `json:"system,omitempty"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	if !safeModelName.MatchString(model) {
		return nil, fmt.Errorf("ollama: invalid model name %q: %w", model, llm.ErrNotConfigured)
	}

	var out generateResponse
	err := llmhttp.PostJSON(ctx, p.httpClient, providerName, p.baseURL+"/api/generate", nil,
		generateRequest{
			Model:   model,
			Prompt:  req.UserContent(),
			System:  req.System,
			Options: options{Temperature: req.Temperature, NumPredict: req.MaxTokens},
		}, &out)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return nil, errors.New("ollama: empty response")
	}

	return &llm.Response{
		Text:  text,
		Model: model,
		Usage: llm.Usage{PromptTokens: out.PromptEvalCount, CompletionTokens: out.EvalCount},
	}, nil
}
