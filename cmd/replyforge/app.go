package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	rfhttp "github.com/Strob0t/ReplyForge/internal/adapter/http"
	rfnats "github.com/Strob0t/ReplyForge/internal/adapter/nats"
	rfotel "github.com/Strob0t/ReplyForge/internal/adapter/otel"
	"github.com/Strob0t/ReplyForge/internal/adapter/postgres"
	"github.com/Strob0t/ReplyForge/internal/adapter/ristretto"
	"github.com/Strob0t/ReplyForge/internal/adapter/tiered"
	"github.com/Strob0t/ReplyForge/internal/config"
	"github.com/Strob0t/ReplyForge/internal/domain/integration"
	"github.com/Strob0t/ReplyForge/internal/domain/policy"
	"github.com/Strob0t/ReplyForge/internal/logger"
	"github.com/Strob0t/ReplyForge/internal/port/cache"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
	"github.com/Strob0t/ReplyForge/internal/service"
)

const (
	oauthStateCacheMB  = 1
	idempotencyCacheMB = 8

	oauthStateBucket  = "replyforge_oauth_state"
	idempotencyBucket = "replyforge_idempotency"
)

// app is the wired service graph shared by serve and sync.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	queue   *rfnats.Queue // nil when NATS is disabled
	checker *policy.Checker

	drafts       *service.DraftService
	sync         *service.SyncService
	integrations *service.IntegrationService
	idempotency  cache.Cache

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	a.closers = append(a.closers, logCloser.Close)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"generation_provider", cfg.Generation.Provider,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	// --- Infrastructure ---

	shutdownOTEL, err := rfotel.Setup(ctx, cfg.OTEL, cfg.Logging.Service)
	if err != nil {
		return a, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := shutdownOTEL(context.Background()); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	})
	metrics, err := rfotel.NewMetrics()
	if err != nil {
		return a, fmt.Errorf("otel metrics: %w", err)
	}

	a.pool, err = postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return a, fmt.Errorf("postgres: %w", err)
	}
	a.closers = append(a.closers, a.pool.Close)
	slog.Info("postgres connected")

	var mq messagequeue.Queue
	if cfg.NATS.URL != "" {
		a.queue, err = rfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			return a, fmt.Errorf("nats: %w", err)
		}
		a.closers = append(a.closers, func() { _ = a.queue.Drain() })
		mq = a.queue
	} else {
		slog.Info("nats disabled, events are not published")
	}

	// --- Policy and generation ---

	rules := policy.DefaultRules()
	if cfg.Policy.RulesFile != "" {
		rules, err = policy.LoadRules(cfg.Policy.RulesFile)
		if err != nil {
			return a, fmt.Errorf("policy rules: %w", err)
		}
		slog.Info("policy rules loaded", "file", cfg.Policy.RulesFile)
	}
	a.checker, err = policy.NewChecker(rules)
	if err != nil {
		return a, fmt.Errorf("policy: %w", err)
	}

	provider, err := newGenerationProvider(cfg.Generation)
	if err != nil {
		return a, err
	}
	gatewayOpts := []service.GatewayOption{service.WithGatewayMetrics(metrics)}
	if cfg.Generation.CacheTTL > 0 {
		completions, err := ristretto.NewMB(cfg.Generation.CacheSizeMB)
		if err != nil {
			return a, fmt.Errorf("completion cache: %w", err)
		}
		a.closers = append(a.closers, completions.Close)
		gatewayOpts = append(gatewayOpts, service.WithCompletionCache(completions))
	}
	gateway := service.NewGateway(provider, cfg.Generation, cfg.Breaker, gatewayOpts...)

	// --- Review platforms ---

	platforms, err := newReviewProviders(cfg.Integrations)
	if err != nil {
		return a, err
	}
	states, err := a.stateCache(ctx)
	if err != nil {
		return a, err
	}
	a.idempotency, err = a.idempotencyCache(ctx)
	if err != nil {
		return a, err
	}

	// --- Services ---

	store := postgres.NewStore(a.pool, integration.DeriveKey(cfg.Integrations.TokenSecret))
	events := service.NewEvents(mq)
	publisher := service.NewPublisher(platforms, store, metrics)
	drafter := service.NewDrafter(gateway, a.checker, metrics)

	a.drafts = service.NewDraftService(store, drafter, publisher, events)
	a.sync = service.NewSyncService(store, publisher, events, metrics, cfg.Sync.MaxConcurrent)
	a.integrations = service.NewIntegrationService(store, publisher, states)

	slog.Info("services ready", "generation_provider", gateway.ProviderID(), "platforms", len(platforms))
	return a, nil
}

// stateCache holds pending OAuth states. With NATS the states live only in
// a shared bucket, so a state consumed on one replica is gone on all.
func (a *app) stateCache(ctx context.Context) (cache.Cache, error) {
	if a.queue != nil {
		c, err := a.queue.KeyValue(ctx, oauthStateBucket, service.OAuthStateTTL)
		if err != nil {
			return nil, fmt.Errorf("oauth state cache: %w", err)
		}
		return c, nil
	}
	c, err := ristretto.NewMB(oauthStateCacheMB)
	if err != nil {
		return nil, fmt.Errorf("oauth state cache: %w", err)
	}
	a.closers = append(a.closers, c.Close)
	return c, nil
}

// idempotencyCache keeps replayable responses in process, backed by a shared
// bucket when NATS is enabled.
func (a *app) idempotencyCache(ctx context.Context) (cache.Cache, error) {
	local, err := ristretto.NewMB(idempotencyCacheMB)
	if err != nil {
		return nil, fmt.Errorf("idempotency cache: %w", err)
	}
	a.closers = append(a.closers, local.Close)
	if a.queue == nil {
		return local, nil
	}
	shared, err := a.queue.KeyValue(ctx, idempotencyBucket, idempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency cache: %w", err)
	}
	return tiered.New(local, shared, idempotencyTTL), nil
}

// healthChecks probes Postgres and, when enabled, NATS.
func (a *app) healthChecks() map[string]rfhttp.HealthCheck {
	checks := map[string]rfhttp.HealthCheck{
		"postgres": a.pool.Ping,
	}
	if a.queue != nil {
		checks["nats"] = func(context.Context) error {
			if !a.queue.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	return checks
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
