// Package openai implements the llm.Provider port against the OpenAI chat
// completions API. Any OpenAI-compatible endpoint works through base_url.
package openai

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
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
)

// Provider talks to /chat/completions.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an OpenAI backend. An empty apiKey is reported on Complete.
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
	return &Provider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: client,
	}
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return providerName }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openai: api key not set (OPENAI_API_KEY): %w", llm.ErrNotConfigured)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	messages := make([]message, 0, 2)
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}
	messages = append(messages, message{Role: "user", Content: req.UserContent()})

	var out chatResponse
	err := llmhttp.PostJSON(ctx, p.httpClient, providerName, p.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		chatRequest{Model: model, Messages: messages, Temperature: req.Temperature, MaxTokens: req.MaxTokens},
		&out)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}

	if out.Model != "" {
		model = out.Model
	}
	return &llm.Response{
		Text:  strings.TrimSpace(out.Choices[0].Message.Content),
		Model: model,
		Usage: llm.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}, nil
}
