// Package anthropic implements the llm.Provider port against the Anthropic
// messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Strob0t/ReplyForge/internal/adapter/llmhttp"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
)

const (
	providerName     = "anthropic"
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultModel     = "claude-3-5-haiku-latest"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 200
)

// Provider talks to /messages.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an Anthropic backend.
func New(apiKey, baseURL, model string, client *http.Client) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if client == nil {
		client = llmhttp.NewClient()
	}
	return &Provider{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, httpClient: client}
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return providerName }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key not set (ANTHROPIC_API_KEY): %w", llm.ErrNotConfigured)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var out messagesResponse
	err := llmhttp.PostJSON(ctx, p.httpClient, providerName, p.baseURL+"/messages",
		map[string]string{"x-api-key": p.apiKey, "anthropic-version": apiVersion},
		messagesRequest{
			Model:       model,
			System:      req.System,
			Messages:    []message{{Role: "user", Content: req.UserContent()}},
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
		}, &out)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return nil, errors.New("anthropic: response has no text content")
	}

	if out.Model != "" {
		model = out.Model
	}
	return &llm.Response{
		Text:  strings.TrimSpace(b.String()),
		Model: model,
		Usage: llm.Usage{PromptTokens: out.Usage.InputTokens, CompletionTokens: out.Usage.OutputTokens},
	}, nil
}
