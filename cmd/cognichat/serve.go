package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	cchttp "github.com/Strob0t/CogniChat/internal/adapter/http"
	"github.com/Strob0t/CogniChat/internal/adapter/natskv"
	ccotel "github.com/Strob0t/CogniChat/internal/adapter/otel"
	"github.com/Strob0t/CogniChat/internal/adapter/postgres"
	"github.com/Strob0t/CogniChat/internal/adapter/ristretto"
	"github.com/Strob0t/CogniChat/internal/adapter/ws"
	"github.com/Strob0t/CogniChat/internal/config"
	"github.com/Strob0t/CogniChat/internal/middleware"
	"github.com/Strob0t/CogniChat/internal/port/cache"
)

func runServe(cfg *config.Config) error {
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"store", cfg.Store.Backend,
		"embedding", cfg.Embedding.Provider,
		"nats", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := ccotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	if cfg.Store.Backend == "postgres" {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	handlers := &cchttp.Handlers{
		Sessions:       d.sessions,
		Chat:           d.chat,
		Memories:       d.memories,
		Breakers:       d.breakers,
		CookieName:     cfg.Session.CookieName,
		SecureCookie:   cfg.Session.SecureCookie,
		SessionTTL:     cfg.Session.TTL,
		RequestTimeout: cfg.Server.RequestTimeout,
	}

	idem, err := idempotencyCache(ctx, d)
	if err != nil {
		return err
	}
	handlers.Idempotency = idem
	handlers.IdempotencyTTL = idempotencyTTL

	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin), handlers.RunTurn)
	handlers.Connections = hub.ConnectionCount
	handlers.OnSignOut = hub.CloseUser

	// With NATS every instance relays events from the stream, including
	// its own; without it the services push to the hub directly.
	if d.queue != nil {
		stopRelay, err := ws.Relay(ctx, d.queue, hub)
		if err != nil {
			return fmt.Errorf("event relay: %w", err)
		}
		defer stopRelay()
	} else {
		d.memories.SetBroadcaster(hub)
		d.chat.SetBroadcaster(hub)
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst, cfg.Rate.MaxIdleTime)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cchttp.SecurityHeaders)
	r.Use(cchttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cchttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(ccotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(limiter.Handler)

	cchttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

const (
	idempotencyBucket = "COGNICHAT_IDEMPOTENCY"
	idempotencyTTL    = 24 * time.Hour
)

// idempotencyCache shares replayable chat responses across instances through
// NATS KV, or keeps them in process when NATS is not configured.
func idempotencyCache(ctx context.Context, d *deps) (cache.Cache, error) {
	if d.queue != nil {
		kv, err := d.queue.KeyValue(ctx, idempotencyBucket, idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency bucket: %w", err)
		}
		return natskv.New(kv), nil
	}
	c, err := ristretto.New(8)
	if err != nil {
		return nil, fmt.Errorf("idempotency cache: %w", err)
	}
	d.closers = append(d.closers, c.Close)
	return c, nil
}

// originPatterns turns the configured browser origin into the host pattern
// the WebSocket handshake checks.
func originPatterns(origin string) []string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
