package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/knockerapp/fieldsync/api/routes"
	"github.com/knockerapp/fieldsync/internal/remote"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/internal/syncer"
	"github.com/knockerapp/fieldsync/internal/valuesets"
	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/db"
	"github.com/knockerapp/fieldsync/pkg/logger"
	"github.com/knockerapp/fieldsync/pkg/metrics"
	"github.com/knockerapp/fieldsync/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-agent"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-agent",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local store", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing local store", err)
		}
	}()

	if cfg.FeatureFlags.AutoMigrate {
		if err := migrate.EnsureSchema(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to prepare schema", err)
			os.Exit(1)
		}
	}

	st := store.New(dbClient.DB())

	remoteClient, err := remote.NewClient(remote.ClientParams{Config: cfg.Remote, Log: logg})
	if err != nil {
		logg.Error(ctx, "failed to build remote client", err)
		os.Exit(1)
	}
	prober, err := remote.NewProber(remote.ProberParams{Config: cfg.Remote, Log: logg})
	if err != nil {
		logg.Error(ctx, "failed to build reachability prober", err)
		os.Exit(1)
	}

	cache, err := valuesets.NewCache(valuesets.CacheParams{
		Storage: st,
		Fetcher: remoteClient,
		Log:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build value set cache", err)
		os.Exit(1)
	}
	if err := cache.Warmup(ctx, cfg.Schema.WarmupSets); err != nil {
		// Warmup failures degrade, they do not abort startup.
		logg.Error(ctx, "value set warmup incomplete", err)
	}

	registry := prometheus.NewRegistry()
	coordinator, err := syncer.New(syncer.Params{
		Storage: st,
		Pusher:  remoteClient,
		Prober:  prober,
		Config:  cfg.Sync,
		Log:     logg,
		Metrics: metrics.NewSyncMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to build sync coordinator", err)
		os.Exit(1)
	}

	go coordinator.Run(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	sctx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(sctx, "starting sync agent")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, st, cache, coordinator, registry),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(sctx, "sync agent stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(sctx, "sync agent stopped")
}
