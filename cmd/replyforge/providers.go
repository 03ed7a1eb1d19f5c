package main

// Backend and platform imports: each import activates a self-registering adapter.

import (
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/Strob0t/ReplyForge/internal/adapter/anthropic"
	_ "github.com/Strob0t/ReplyForge/internal/adapter/facebook"
	_ "github.com/Strob0t/ReplyForge/internal/adapter/gemini"
	_ "github.com/Strob0t/ReplyForge/internal/adapter/google"
	_ "github.com/Strob0t/ReplyForge/internal/adapter/ollama"
	_ "github.com/Strob0t/ReplyForge/internal/adapter/openai"

	"github.com/Strob0t/ReplyForge/internal/config"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

// generationConfig maps the selected backend's settings onto registry keys.
func generationConfig(cfg config.Generation) map[string]string {
	m := map[string]string{llm.ConfigModel: cfg.Model}
	switch cfg.Provider {
	case "openai":
		m[llm.ConfigAPIKey] = cfg.OpenAIKey
	case "anthropic":
		m[llm.ConfigAPIKey] = cfg.AnthropicKey
	case "gemini":
		m[llm.ConfigAPIKey] = cfg.GeminiKey
	case "ollama":
		m[llm.ConfigBaseURL] = cfg.OllamaBaseURL
	}
	return m
}

func newGenerationProvider(cfg config.Generation) (llm.Provider, error) {
	p, err := llm.New(cfg.Provider, generationConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("generation backend %s: %w", cfg.Provider, err)
	}
	return p, nil
}

// redirectURL is where a platform sends the user back after consent.
func redirectURL(base string, p review.Platform) string {
	return strings.TrimSuffix(base, "/") + "/integrations/" + string(p) + "/callback"
}

// newReviewProviders builds every registered platform adapter. Platforms
// without an OAuth client still load; their calls report not configured.
func newReviewProviders(cfg config.Integrations) ([]reviewprovider.Provider, error) {
	clients := map[review.Platform]config.OAuthClient{
		review.PlatformGoogle:   cfg.Google,
		review.PlatformFacebook: cfg.Facebook,
	}

	var out []reviewprovider.Provider
	for _, p := range reviewprovider.Available() {
		client, ok := clients[p]
		if !ok {
			continue
		}
		if client.ClientID == "" {
			slog.Warn("review platform has no oauth client", "platform", p)
		}
		prov, err := reviewprovider.New(p, map[string]string{
			reviewprovider.ConfigClientID:     client.ClientID,
			reviewprovider.ConfigClientSecret: client.ClientSecret,
			reviewprovider.ConfigRedirectURL:  redirectURL(cfg.RedirectBase, p),
			reviewprovider.ConfigBaseURL:      client.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("review platform %s: %w", p, err)
		}
		out = append(out, prov)
	}
	return out, nil
}
