package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	rfhttp "github.com/Strob0t/ReplyForge/internal/adapter/http"
	rfotel "github.com/Strob0t/ReplyForge/internal/adapter/otel"
	"github.com/Strob0t/ReplyForge/internal/config"
	"github.com/Strob0t/ReplyForge/internal/middleware"
)

const (
	// Generation and publishing get a fifth of the general request budget.
	guardedRateDivisor = 5
	idempotencyTTL     = 24 * time.Hour
	shutdownTimeout    = 10 * time.Second
)

func newServeCmd(load configLoader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, migrate bool) error {
	if migrate {
		if err := runMigrateUp(ctx, cfg); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(ctx, a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter builds the chi router. ctx bounds the rate limiter cleanup loops.
func newRouter(ctx context.Context, a *app) http.Handler {
	cfg := a.cfg

	general := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	general.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	guarded := middleware.NewRateLimiter(
		cfg.Rate.RequestsPerSecond/guardedRateDivisor,
		max(cfg.Rate.Burst/guardedRateDivisor, 1),
	)
	guarded.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(rfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(rfhttp.SecurityHeaders)
	r.Use(rfhttp.CORS(cfg.Server.CORSOrigin))

	r.Get("/health", rfhttp.Health(a.healthChecks()))

	r.Group(func(r chi.Router) {
		r.Use(general.Handler)
		rfhttp.MountRoutes(r, &rfhttp.Handlers{
			Drafts:       a.drafts,
			Sync:         a.sync,
			Integrations: a.integrations,
			Policy:       a.checker,
		}, rfhttp.Guards{
			RateLimit:   guarded.Handler,
			Idempotency: middleware.Idempotency(a.idempotency, idempotencyTTL),
		})
	})

	return rfotel.HTTPMiddleware(cfg.Logging.Service)(r)
}
