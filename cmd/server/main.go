package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/analytics"
	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/internal/platform/logger"
	"github.com/nulzo/ai-bridge/internal/platform/otel"
	"github.com/nulzo/ai-bridge/internal/registry"
	"github.com/nulzo/ai-bridge/internal/server"
	"github.com/nulzo/ai-bridge/internal/store"
	"github.com/nulzo/ai-bridge/internal/store/cache"
	"github.com/nulzo/ai-bridge/internal/store/sqlite"
	"github.com/nulzo/ai-bridge/internal/version"

	// Adapters self-register via init().
	_ "github.com/nulzo/ai-bridge/internal/llm/compat"
	_ "github.com/nulzo/ai-bridge/internal/llm/deepseek"
	_ "github.com/nulzo/ai-bridge/internal/llm/litellm"
	_ "github.com/nulzo/ai-bridge/internal/llm/openai"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	go version.CheckForUpdates(log)

	if cfg.Tracing.Enabled {
		shutdownTracer, err := otel.InitTracer("ai-bridge", log, os.Stdout)
		if err != nil {
			log.Fatal("failed to init tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	// Persistence is optional; with no store path the request log is dropped.
	var repo store.Repository = store.Nop{}
	if cfg.Store.Path != "" {
		repo, err = sqlite.NewSQLiteStorage(cfg.Store.Path)
		if err != nil {
			log.Fatal("failed to open store", zap.Error(err))
		}
	}
	defer func() {
		_ = repo.Close()
	}()

	var statsCache cache.Cache
	if cfg.Redis.Enabled {
		statsCache, err = cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
	} else {
		statsCache = cache.NewMemory()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingestor := analytics.NewIngestor(log, repo)
	ingestor.Start(ctx)

	adapters, err := gateway.BuildAdapters(cfg.Providers)
	if err != nil {
		log.Fatal("failed to build provider adapters", zap.Error(err))
	}

	service := gateway.New(registry.NewDefault(), adapters, ingestor, log)

	// Warm the availability map and the dynamic model partition.
	startupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	available := service.AvailableProviders(startupCtx)
	cancel()
	for p, up := range available {
		log.Info("provider probed", zap.String("provider", string(p)), zap.Bool("available", up))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.New(cfg, log, service, repo, statsCache).Handler(),
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	ingestor.Stop()
}
