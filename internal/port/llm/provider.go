// Package llm defines the port for interchangeable text-generation backends.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a backend lacks the credentials or
// endpoint it needs. It is the only generation error surfaced to callers.
var ErrNotConfigured = errors.New("generation backend not configured")

// Request is a single completion request.
type Request struct {
	Model       string // empty = backend default
	System      string
	Prompt      string
	Context     string // serialized review context, appended to the prompt
	Temperature float64
	MaxTokens   int
}

// UserContent is the user message every backend sends: the prompt followed
// by the context block.
func (r Request) UserContent() string {
	if r.Context == "" {
		return r.Prompt
	}
	return r.Prompt + "\n\nContext: " + r.Context
}

// Usage is token accounting reported by a backend. Zero when unreported.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the generated text plus accounting.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Provider is a text-generation backend.
type Provider interface {
	// ID returns the registry name, e.g. "openai".
	ID() string
	// Complete generates a reply. Errors other than ErrNotConfigured are
	// treated as transient by callers.
	Complete(ctx context.Context, req Request) (*Response, error)
}
