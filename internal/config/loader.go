package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "replyforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "REPLYFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "REPLYFORGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "REPLYFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "REPLYFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "REPLYFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "REPLYFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "REPLYFORGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "REPLYFORGE_NATS_STREAM")
	setString(&cfg.Logging.Level, "REPLYFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "REPLYFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "REPLYFORGE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "REPLYFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "REPLYFORGE_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "REPLYFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "REPLYFORGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "REPLYFORGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "REPLYFORGE_RATE_MAX_IDLE_TIME")

	// Generation
	setString(&cfg.Generation.Provider, "REPLYFORGE_AI_PROVIDER")
	setString(&cfg.Generation.Model, "REPLYFORGE_AI_MODEL")
	setFloat64(&cfg.Generation.Temperature, "REPLYFORGE_AI_TEMPERATURE")
	setInt(&cfg.Generation.MaxTokens, "REPLYFORGE_AI_MAX_TOKENS")
	setDuration(&cfg.Generation.Timeout, "REPLYFORGE_AI_TIMEOUT")
	setInt(&cfg.Generation.Retries, "REPLYFORGE_AI_RETRIES")
	setString(&cfg.Generation.OpenAIKey, "OPENAI_API_KEY")
	setString(&cfg.Generation.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Generation.GeminiKey, "GEMINI_API_KEY")
	setString(&cfg.Generation.OllamaBaseURL, "OLLAMA_BASE_URL")
	setDuration(&cfg.Generation.CacheTTL, "REPLYFORGE_AI_CACHE_TTL")
	setInt64(&cfg.Generation.CacheSizeMB, "REPLYFORGE_AI_CACHE_SIZE_MB")

	setString(&cfg.Policy.RulesFile, "REPLYFORGE_POLICY_RULES")

	// Telemetry
	setBool(&cfg.OTEL.Enabled, "REPLYFORGE_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "REPLYFORGE_OTEL_INSECURE")

	// Integrations
	setString(&cfg.Integrations.RedirectBase, "REPLYFORGE_REDIRECT_BASE")
	setString(&cfg.Integrations.TokenSecret, "REPLYFORGE_TOKEN_SECRET")
	setString(&cfg.Integrations.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Integrations.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Integrations.Facebook.ClientID, "FACEBOOK_CLIENT_ID")
	setString(&cfg.Integrations.Facebook.ClientSecret, "FACEBOOK_CLIENT_SECRET")

	setInt(&cfg.Sync.MaxConcurrent, "REPLYFORGE_SYNC_MAX_CONCURRENT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	switch cfg.Generation.Provider {
	case "openai", "anthropic", "ollama", "gemini":
	default:
		return fmt.Errorf("generation.provider %q is not supported", cfg.Generation.Provider)
	}
	if cfg.Generation.Temperature < 0 || cfg.Generation.Temperature > 2 {
		return errors.New("generation.temperature must be within [0, 2]")
	}
	if cfg.Generation.MaxTokens < 1 {
		return errors.New("generation.max_tokens must be >= 1")
	}
	if cfg.Generation.Retries < 1 {
		return errors.New("generation.retries must be >= 1")
	}
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint == "" {
		return errors.New("otel.endpoint is required when otel is enabled")
	}
	if cfg.Integrations.TokenSecret == "" {
		return errors.New("integrations.token_secret is required")
	}
	if cfg.Sync.MaxConcurrent < 1 {
		return errors.New("sync.max_concurrent must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
