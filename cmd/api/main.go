// Command api is the composition root: it loads configuration, wires every
// collaborator (C1-C9 plus the ambient observability stack), and serves
// the core's HTTP surface, following the teacher's cmd/api/main.go shape
// (config load → dependency wiring → http.Server → signal-driven graceful
// shutdown).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/auth/tokenstore/memstore"
	"github.com/rawcontext/engram-sub001/internal/config"
	"github.com/rawcontext/engram-sub001/internal/graphstore"
	"github.com/rawcontext/engram-sub001/internal/httpapi"
	"github.com/rawcontext/engram-sub001/internal/memory"
	"github.com/rawcontext/engram-sub001/internal/ratelimit"
	"github.com/rawcontext/engram-sub001/internal/schema"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
	"github.com/rawcontext/engram-sub001/internal/telemetry"
	"github.com/rawcontext/engram-sub001/internal/tenant"
	"github.com/rawcontext/engram-sub001/internal/vectorsearch"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("api: loading configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("api: building logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	_, shutdownTracing, err := telemetry.NewTracerProvider("engram-core", os.Stderr)
	if err != nil {
		logger.Fatal("api: building tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("api: tracer shutdown", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(cfg.MetricsNamespace, registry)

	pool := taskpool.New(cfg.PoolWorkers, cfg.PoolQueueSize, logger)
	defer pool.Shutdown()

	engine := graphstore.NewEngine()
	backend := graphstore.NewTenantBackend(engine)
	router := tenant.NewRouter(backend, cfg.DefaultNamespace)

	var vector vectorsearch.Client
	if cfg.VectorSearchURL != "" {
		vsCfg := vectorsearch.DefaultConfig(cfg.VectorSearchURL)
		vsCfg.Timeout = cfg.VectorSearchTimeout
		vector = vectorsearch.NewHTTPClient(vsCfg)
	}

	svc := memory.New(router, vector, pool, logger)
	svc.SetMetrics(metrics)
	tokens := memstore.New()
	limiter := ratelimit.New(cfg.DefaultRateLimit)

	handler := httpapi.NewRouter(httpapi.Deps{
		Memory:    svc,
		Router:    router,
		Tokens:    tokens,
		Pool:      pool,
		Limiter:   limiter,
		Logger:    logger,
		Schema:    schema.Engram(),
		Metrics:   metrics,
		CORSAllow: cfg.CORSAllowOrigins,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("address", cfg.ListenAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
