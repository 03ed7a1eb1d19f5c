package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Strob0t/ReplyForge/internal/config"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPolicyCheckCleanPositive(t *testing.T) {
	out, err := execute(t, "", "policy", "check", "--rating", "5",
		"Thank you for the kind words! We look forward to seeing you again soon.")
	if err != nil {
		t.Fatalf("policy check: %v", err)
	}
	var got policyCheckOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Status != draft.StatusApproved {
		t.Errorf("status = %s, want %s", got.Status, draft.StatusApproved)
	}
	if got.Blocked || got.NeedsReview {
		t.Errorf("unexpected flags: %+v", got.Result)
	}
}

func TestPolicyCheckBlockedFromStdin(t *testing.T) {
	out, err := execute(t, "Enjoy a free dessert on your next visit!\n", "policy", "check", "--rating", "4")
	if !errors.Is(err, errBlocked) {
		t.Fatalf("err = %v, want errBlocked", err)
	}
	var got policyCheckOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !got.Blocked || got.Rule != "blocked" {
		t.Errorf("got %+v, want blocked", got)
	}
}

func TestPolicyCheckRejectsBadRating(t *testing.T) {
	if _, err := execute(t, "", "policy", "check", "--rating", "9", "Thanks!"); err == nil {
		t.Fatal("expected an error for rating 9")
	}
}

func TestPolicyCheckEmptyStdin(t *testing.T) {
	if _, err := execute(t, "  \n", "policy", "check"); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestPolicySanitize(t *testing.T) {
	out, err := execute(t, "", "policy", "sanitize", "Mail a@b.co or call 555-123-4567.")
	if err != nil {
		t.Fatalf("policy sanitize: %v", err)
	}
	var got sanitizeOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Content != "Mail [EMAIL] or call [PHONE]." {
		t.Errorf("content = %q", got.Content)
	}
	if !slices.Equal(got.PIIFound, []string{"email", "phone"}) {
		t.Errorf("pii_found = %v", got.PIIFound)
	}
}

func TestPolicyCustomRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("incentive:\n  - '(?i)\\bcookie\\b'\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "", "policy", "check", "--rules", path, "--rating", "5", "Have a cookie on us.")
	if !errors.Is(err, errBlocked) {
		t.Fatalf("err = %v, want errBlocked from custom incentive rule", err)
	}
	if _, err := execute(t, "", "policy", "check", "--rules", path, "--rating", "5", "Enjoy a free dessert!"); err != nil {
		t.Fatalf("built-in incentive rule should be replaced, got %v", err)
	}
}

func TestMigrateDownRejectsBadSteps(t *testing.T) {
	_, err := execute(t, "", "migrate", "down", "zero")
	if err == nil || !strings.Contains(err.Error(), "positive integer") {
		t.Fatalf("err = %v, want steps validation error", err)
	}
}

func TestGenerationConfig(t *testing.T) {
	cfg := config.Generation{
		Model:         "m",
		OpenAIKey:     "sk-openai",
		AnthropicKey:  "sk-ant",
		GeminiKey:     "g-key",
		OllamaBaseURL: "http://ollama:11434",
	}
	tests := []struct {
		provider string
		key      string
		want     string
	}{
		{"openai", llm.ConfigAPIKey, "sk-openai"},
		{"anthropic", llm.ConfigAPIKey, "sk-ant"},
		{"gemini", llm.ConfigAPIKey, "g-key"},
		{"ollama", llm.ConfigBaseURL, "http://ollama:11434"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg.Provider = tt.provider
			m := generationConfig(cfg)
			if m[tt.key] != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, m[tt.key], tt.want)
			}
			if m[llm.ConfigModel] != "m" {
				t.Errorf("model = %q", m[llm.ConfigModel])
			}
		})
	}
}

func TestEveryBackendRegistered(t *testing.T) {
	for _, name := range []string{"anthropic", "gemini", "ollama", "openai"} {
		p, err := newGenerationProvider(config.Generation{Provider: name})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if p.ID() != name {
			t.Errorf("ID = %q, want %q", p.ID(), name)
		}
	}
}

func TestNewReviewProviders(t *testing.T) {
	provs, err := newReviewProviders(config.Integrations{
		RedirectBase: "https://replyforge.example/",
		Google:       config.OAuthClient{ClientID: "g-id", ClientSecret: "g-secret"},
	})
	if err != nil {
		t.Fatalf("newReviewProviders: %v", err)
	}
	var platforms []review.Platform
	for _, p := range provs {
		platforms = append(platforms, p.Platform())
	}
	slices.Sort(platforms)
	want := []review.Platform{review.PlatformFacebook, review.PlatformGoogle}
	if !slices.Equal(platforms, want) {
		t.Errorf("platforms = %v, want %v", platforms, want)
	}
}

func TestRedirectURL(t *testing.T) {
	got := redirectURL("https://replyforge.example/", review.PlatformGoogle)
	if got != "https://replyforge.example/integrations/google/callback" {
		t.Errorf("redirectURL = %q", got)
	}
}

func TestEventSubjects(t *testing.T) {
	all, err := eventSubjects(nil)
	if err != nil || len(all) != len(messagequeue.Subjects()) {
		t.Fatalf("eventSubjects(nil) = %v, %v", all, err)
	}
	if _, err := eventSubjects([]string{"drafts.deleted"}); err == nil {
		t.Fatal("expected an error for an unknown subject")
	}
	got, err := eventSubjects([]string{messagequeue.SubjectReplyFailed})
	if err != nil || !slices.Equal(got, []string{messagequeue.SubjectReplyFailed}) {
		t.Fatalf("eventSubjects = %v, %v", got, err)
	}
}

func TestPrintEvents(t *testing.T) {
	var out bytes.Buffer
	h := printEvents(&out)
	if err := h(context.Background(), messagequeue.SubjectDraftApproved, []byte(`{"draft_id":"d1"}`)); err != nil {
		t.Fatal(err)
	}
	want := `{"subject":"drafts.approved","data":{"draft_id":"d1"}}` + "\n"
	if out.String() != want {
		t.Errorf("line = %q, want %q", out.String(), want)
	}
}
