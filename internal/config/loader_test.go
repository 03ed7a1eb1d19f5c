package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.MaxTokens != 200 {
		t.Errorf("expected max tokens 200, got %d", cfg.Generation.MaxTokens)
	}
	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected provider openai, got %s", cfg.Generation.Provider)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
generation:
  provider: "anthropic"
  model: "claude-3-haiku-20240307"
  max_tokens: 300
policy:
  rules_file: "/etc/replyforge/rules.yaml"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Generation.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", cfg.Generation.Provider)
	}
	if cfg.Generation.Model != "claude-3-haiku-20240307" {
		t.Errorf("unexpected model %s", cfg.Generation.Model)
	}
	if cfg.Generation.MaxTokens != 300 {
		t.Errorf("expected max tokens 300, got %d", cfg.Generation.MaxTokens)
	}
	if cfg.Policy.RulesFile != "/etc/replyforge/rules.yaml" {
		t.Errorf("unexpected rules file %s", cfg.Policy.RulesFile)
	}
	// Unchanged fields keep defaults
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("expected default temperature, got %v", cfg.Generation.Temperature)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("REPLYFORGE_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("REPLYFORGE_PG_MAX_CONNS", "25")
	t.Setenv("REPLYFORGE_LOG_LEVEL", "warn")
	t.Setenv("REPLYFORGE_BREAKER_TIMEOUT", "1m")
	t.Setenv("REPLYFORGE_AI_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Generation.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %s", cfg.Generation.Provider)
	}
	if cfg.Generation.OllamaBaseURL != "http://gpu-box:11434" {
		t.Errorf("unexpected ollama url %s", cfg.Generation.OllamaBaseURL)
	}
	if cfg.Generation.OpenAIKey != "sk-test" {
		t.Errorf("expected openai key from env, got %q", cfg.Generation.OpenAIKey)
	}
	if cfg.Integrations.Google.ClientID != "gid" {
		t.Errorf("expected google client id from env, got %q", cfg.Integrations.Google.ClientID)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "zero max_conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "unknown provider",
			modify: func(c *Config) { c.Generation.Provider = "markov" },
			errMsg: `generation.provider "markov" is not supported`,
		},
		{
			name:   "temperature out of range",
			modify: func(c *Config) { c.Generation.Temperature = 3 },
			errMsg: "generation.temperature must be within [0, 2]",
		},
		{
			name:   "zero max tokens",
			modify: func(c *Config) { c.Generation.MaxTokens = 0 },
			errMsg: "generation.max_tokens must be >= 1",
		},
		{
			name:   "zero retries",
			modify: func(c *Config) { c.Generation.Retries = 0 },
			errMsg: "generation.retries must be >= 1",
		},
		{
			name:   "otel without endpoint",
			modify: func(c *Config) { c.OTEL.Enabled = true },
			errMsg: "otel.endpoint is required when otel is enabled",
		},
		{
			name:   "zero sync concurrency",
			modify: func(c *Config) { c.Sync.MaxConcurrent = 0 },
			errMsg: "sync.max_concurrent must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

// Full LoadFrom pipeline: defaults < YAML < environment variables.

func TestLoadFrom_FullHierarchy(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
generation:
  provider: "gemini"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REPLYFORGE_PORT", "7070")
	t.Setenv("REPLYFORGE_AI_PROVIDER", "anthropic")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Generation.Provider != "anthropic" {
		t.Errorf("env should override YAML: got provider %q", cfg.Generation.Provider)
	}
}

func TestLoadFrom_EnvInvalidValues(t *testing.T) {
	// Invalid env values are silently ignored; defaults survive.
	t.Setenv("REPLYFORGE_PG_MAX_CONNS", "notanumber")
	t.Setenv("REPLYFORGE_BREAKER_TIMEOUT", "invalid-duration")
	t.Setenv("REPLYFORGE_AI_TEMPERATURE", "hot")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("invalid int env should be ignored: got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("invalid duration env should be ignored: got %v", cfg.Breaker.Timeout)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("invalid float env should be ignored: got %v", cfg.Generation.Temperature)
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte(`{{{invalid yaml`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
	if !strings.Contains(err.Error(), "config yaml") {
		t.Errorf("error should name the yaml stage, got %v", err)
	}
}

func TestLoadFrom_ValidationAfterOverride(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
generation:
  provider: "nope"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "config validate") {
		t.Errorf("error should name the validate stage, got %v", err)
	}
}
