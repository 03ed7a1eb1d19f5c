package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/ReplyForge/internal/adapter/llmhttp"
	rfotel "github.com/Strob0t/ReplyForge/internal/adapter/otel"
	"github.com/Strob0t/ReplyForge/internal/config"
	"github.com/Strob0t/ReplyForge/internal/domain/prompt"
	"github.com/Strob0t/ReplyForge/internal/port/cache"
	"github.com/Strob0t/ReplyForge/internal/port/llm"
	"github.com/Strob0t/ReplyForge/internal/resilience"
)

// Generation is the outcome of one Gateway call. Text is never empty.
type Generation struct {
	Text       string    `json:"text"`
	Fallback   bool      `json:"fallback"`
	ProviderID string    `json:"provider_id"`
	Model      string    `json:"model,omitempty"`
	Usage      llm.Usage `json:"usage"`
	Cached     bool      `json:"cached,omitempty"`
}

// Fallback reasons, recorded on the fallback counter.
const (
	reasonBackendError = "backend_error"
	reasonCircuitOpen  = "circuit_open"
	reasonEmptyText    = "empty_text"
)

// Gateway sends prompts to the configured backend and falls back to the
// deterministic reply when the backend cannot answer.
type Gateway struct {
	provider llm.Provider
	cfg      config.Generation
	breaker  *resilience.Breaker
	retry    retry.Retry[*llm.Response]
	timeout  timeout.Timeout[*llm.Response]
	cache    cache.Cache
	metrics  *rfotel.Metrics
}

// GatewayOption configures optional Gateway collaborators.
type GatewayOption func(*Gateway)

// WithCompletionCache deduplicates identical requests for cfg.CacheTTL.
func WithCompletionCache(c cache.Cache) GatewayOption {
	return func(g *Gateway) { g.cache = c }
}

// WithGatewayMetrics records fallbacks and latency.
func WithGatewayMetrics(m *rfotel.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithBreaker replaces the breaker built from config.
func WithBreaker(b *resilience.Breaker) GatewayOption {
	return func(g *Gateway) { g.breaker = b }
}

// NewGateway creates a Gateway for provider. A nil provider makes every call
// fail with llm.ErrNotConfigured.
func NewGateway(provider llm.Provider, cfg config.Generation, bcfg config.Breaker, opts ...GatewayOption) *Gateway {
	attempts := max(cfg.Retries, 1)
	g := &Gateway{
		provider: provider,
		cfg:      cfg,
		retry: retry.New[*llm.Response](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  250 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
			IsRetryable:   retryable,
		}),
		timeout: timeout.New[*llm.Response](timeout.Config{DefaultTimeout: cfg.Timeout}),
	}
	g.breaker = resilience.NewBreaker(bcfg.MaxFailures, bcfg.Timeout,
		resilience.WithFailureFilter(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, llm.ErrNotConfigured)
		}),
		resilience.WithStateChange(func(from, to resilience.State) {
			slog.Warn("generation circuit breaker", "from", from.String(), "to", to.String())
		}),
	)
	for _, o := range opts {
		o(g)
	}
	return g
}

// ProviderID names the backend, or "" when none is configured.
func (g *Gateway) ProviderID() string {
	if g.provider == nil {
		return ""
	}
	return g.provider.ID()
}

// Generate produces reply text for instructions and c. Backend failures of
// any kind end in the fallback reply. The only error returned wraps
// llm.ErrNotConfigured.
func (g *Gateway) Generate(ctx context.Context, instructions string, c prompt.Context) (Generation, error) {
	if g.provider == nil {
		return Generation{}, fmt.Errorf("generate: %w", llm.ErrNotConfigured)
	}

	req := llm.Request{
		Model:       g.cfg.Model,
		System:      prompt.SystemMessage,
		Prompt:      instructions,
		Context:     c.JSON(),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}

	key := g.cacheKey(req)
	if gen, ok := g.cached(ctx, key); ok {
		return gen, nil
	}

	ctx, span := rfotel.StartGenerateSpan(ctx, g.provider.ID(), c.Review.Rating)
	defer span.End()

	start := time.Now()
	resp, err := g.complete(ctx, req)
	if g.metrics != nil {
		g.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("provider", g.provider.ID())))
	}

	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		span.SetStatus(codes.Error, "not configured")
		return Generation{}, fmt.Errorf("generate: %w", err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return g.fallback(ctx, c, reasonCircuitOpen), nil
	case err != nil:
		span.RecordError(err)
		slog.WarnContext(ctx, "generation failed", "provider", g.provider.ID(), "error", err)
		return g.fallback(ctx, c, reasonBackendError), nil
	case resp.Text == "":
		return g.fallback(ctx, c, reasonEmptyText), nil
	}

	gen := Generation{
		Text:       resp.Text,
		ProviderID: g.provider.ID(),
		Model:      resp.Model,
		Usage:      resp.Usage,
	}
	g.store(ctx, key, gen)
	return gen, nil
}

// complete runs one backend request behind the breaker, with per-attempt
// timeout and retries.
func (g *Gateway) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var resp *llm.Response
	err := g.breaker.Execute(func() error {
		r, err := g.retry.Do(ctx, func(ctx context.Context) (*llm.Response, error) {
			return g.timeout.Execute(ctx, g.cfg.Timeout, func(ctx context.Context) (*llm.Response, error) {
				return g.provider.Complete(ctx, req)
			})
		})
		if err != nil {
			return err
		}
		if r == nil {
			return errors.New("backend returned no response")
		}
		resp = r
		return nil
	})
	return resp, err
}

// retryable skips errors a second attempt cannot fix: missing configuration,
// cancellation and permanent backend statuses such as 401 or 400.
func retryable(err error) bool {
	if errors.Is(err, llm.ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	return llmhttp.Transient(err)
}

func (g *Gateway) fallback(ctx context.Context, c prompt.Context, reason string) Generation {
	slog.InfoContext(ctx, "using fallback reply", "provider", g.provider.ID(), "reason", reason, "rating", c.Review.Rating)
	if g.metrics != nil {
		g.metrics.Fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
	return Generation{
		Text:       prompt.Fallback(c),
		Fallback:   true,
		ProviderID: g.provider.ID(),
	}
}

func (g *Gateway) cacheKey(req llm.Request) string {
	h := sha256.New()
	for _, part := range []string{
		g.provider.ID(), req.Model, req.System, req.UserContent(),
		strconv.FormatFloat(req.Temperature, 'f', -1, 64), strconv.Itoa(req.MaxTokens),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "gen:" + hex.EncodeToString(h.Sum(nil))
}

func (g *Gateway) cached(ctx context.Context, key string) (Generation, bool) {
	if g.cache == nil || g.cfg.CacheTTL <= 0 {
		return Generation{}, false
	}
	data, ok, err := g.cache.Get(ctx, key)
	if err != nil || !ok {
		return Generation{}, false
	}
	var gen Generation
	if err := json.Unmarshal(data, &gen); err != nil || gen.Text == "" {
		return Generation{}, false
	}
	gen.Cached = true
	return gen, true
}

func (g *Gateway) store(ctx context.Context, key string, gen Generation) {
	if g.cache == nil || g.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(gen)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, data, g.cfg.CacheTTL); err != nil {
		slog.DebugContext(ctx, "completion cache set failed", "error", err)
	}
}
