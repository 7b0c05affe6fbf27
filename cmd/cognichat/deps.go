package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Strob0t/CogniChat/internal/adapter/chromem"
	"github.com/Strob0t/CogniChat/internal/adapter/deepseek"
	"github.com/Strob0t/CogniChat/internal/adapter/embedder/cached"
	"github.com/Strob0t/CogniChat/internal/adapter/embedder/hash"
	"github.com/Strob0t/CogniChat/internal/adapter/embedder/onnx"
	"github.com/Strob0t/CogniChat/internal/adapter/embedder/openai"
	"github.com/Strob0t/CogniChat/internal/adapter/gocache"
	"github.com/Strob0t/CogniChat/internal/adapter/gotrue"
		cfnats "github.com/Strob0t/CogniChat/internal/adapter/nats"
	"github.com/Strob0t/CogniChat/internal/adapter/natskv"
	ccotel "github.com/Strob0t/CogniChat/internal/adapter/otel"
	"github.com/Strob0t/CogniChat/internal/adapter/postgres"
	"github.com/Strob0t/CogniChat/internal/adapter/ristretto"
	"github.com/Strob0t/CogniChat/internal/adapter/tiered"
	"github.com/Strob0t/CogniChat/internal/adapter/vader"
	"github.com/Strob0t/CogniChat/internal/config"
	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/port/cache"
	"github.com/Strob0t/CogniChat/internal/port/embedder"
	"github.com/Strob0t/CogniChat/internal/port/memorystore"
	"github.com/Strob0t/CogniChat/internal/resilience"
	"github.com/Strob0t/CogniChat/internal/service"
)

// Breaker tuning for the hosted APIs.
const (
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// deps holds the process-wide singletons shared by every command.
type deps struct {
	queue    *cfnats.Queue // nil when NATS is not configured
	metrics  *ccotel.Metrics
	embed    embedder.Embedder
	store    memorystore.Store
	identity *gotrue.Client
	memories *service.MemoryService
	sessions *service.SessionService
	chat     *service.ChatService
	breakers []*resilience.Breaker

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps wires adapters to services. Required upstreams are set up in
// the order store, identity, completion. On error every resource acquired so
// far is released.
func buildDeps(ctx context.Context, cfg *config.Config) (_ *deps, err error) {
	d := &deps{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if cfg.NATS.URL != "" {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		d.queue = q
		d.closers = append(d.closers, func() {
			if err := q.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		})
	}

	d.metrics, err = ccotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if d.store, err = buildStore(ctx, cfg, d); err != nil {
		return nil, err
	}

	if d.embed, err = buildEmbedder(ctx, cfg, d); err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() { _ = d.embed.Close() })

	identityBreaker := resilience.NewBreaker("identity", breakerFailures, breakerCooldown)
	d.identity = gotrue.NewClient(cfg.Identity.URL, cfg.Identity.APIKey)
	d.identity.SetBreaker(identityBreaker)

	completionBreaker := resilience.NewBreaker("completion", breakerFailures, breakerCooldown)
	llm := deepseek.NewClient(cfg.Completion.URL, cfg.Completion.APIKey, cfg.Completion.Timeout)
	llm.SetBreaker(completionBreaker)
	d.breakers = []*resilience.Breaker{identityBreaker, completionBreaker}

	defaultLength, err := chat.ParseLength(cfg.Session.DefaultLength)
	if err != nil {
		return nil, fmt.Errorf("session.default_length: %w", err)
	}

	d.memories = service.NewMemoryService(d.store, d.embed, cfg.Store.MatchThreshold, cfg.Store.DefaultLimit)
	d.memories.SetMetrics(d.metrics)
	d.sessions = service.NewSessionService(d.identity, gocache.NewSessions(cfg.Session.TTL, cfg.Session.CleanupInterval), defaultLength)
	d.chat = service.NewChatService(d.memories, llm, vader.New(), cfg.Completion.Model, cfg.Completion.Temperature)
	d.chat.SetMetrics(d.metrics)
	if d.queue != nil {
		d.memories.SetQueue(d.queue)
		d.chat.SetQueue(d.queue)
	}
	return d, nil
}

func buildStore(ctx context.Context, cfg *config.Config, d *deps) (memorystore.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		slog.Warn("using the in-process memory store; memories are lost on restart")
		return chromem.New(cfg.Embedding.Dimensions), nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		slog.Info("postgres connected")
		return postgres.NewStore(pool), nil
	}
}

// buildEmbedder selects the provider and wraps it in the embedding cache:
// ristretto in process, backed by a NATS KV bucket when NATS is configured.
func buildEmbedder(ctx context.Context, cfg *config.Config, d *deps) (embedder.Embedder, error) {
	ec := cfg.Embedding
	var inner embedder.Embedder
	switch strings.ToLower(ec.Provider) {
	case "onnx":
		e, err := onnx.New(onnx.Config{
			ModelPath:     ec.ModelPath,
			TokenizerPath: ec.TokenizerPath,
			LibraryPath:   ec.LibraryPath,
			Dimensions:    ec.Dimensions,
		})
		if errors.Is(err, onnx.ErrUnavailable) {
			return nil, fmt.Errorf("embedding: %w (rebuild with -tags onnx or choose another provider)", err)
		}
		if err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
		inner = e
	case "http":
		inner = openai.NewClient(ec.URL, ec.APIKey, ec.Model, ec.Dimensions)
	default:
		slog.Warn("using the hash embedder; similarity is lexical only")
		inner = hash.New(ec.Dimensions)
	}

	if ec.CacheSizeMB <= 0 {
		return inner, nil
	}
	l1, err := ristretto.New(ec.CacheSizeMB)
	if err != nil {
		_ = inner.Close()
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	d.closers = append(d.closers, l1.Close)
	var c cache.Cache = l1
	if d.queue != nil {
		kv, err := d.queue.KeyValue(ctx, ec.CacheBucket, ec.CacheTTL)
		if err != nil {
			slog.Warn("embedding L2 cache unavailable", "bucket", ec.CacheBucket, "error", err)
		} else {
			c = tiered.New(l1, natskv.New(kv), ec.CacheTTL)
		}
	}
	return cached.New(inner, c, ec.CacheTTL, ec.Provider+":"+ec.Model), nil
}
