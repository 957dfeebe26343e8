package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fever-marketplace/events/internal/bucketcache"
	"github.com/fever-marketplace/events/internal/composer"
	corecfg "github.com/fever-marketplace/events/internal/core/config"
	"github.com/fever-marketplace/events/internal/migrations"
	"github.com/fever-marketplace/events/internal/provider"
	"github.com/fever-marketplace/events/internal/scheduler"
	"github.com/fever-marketplace/events/internal/server"
	"github.com/fever-marketplace/events/internal/storage/postgres"
	syncpkg "github.com/fever-marketplace/events/internal/sync"
)

func main() {
	configPath := flag.String("config", "fever-events.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bucketStore := bucketcache.NewStore(
		cfg.Cache.Redis.Addr,
		cfg.Cache.Redis.DB,
		cfg.Cache.Redis.PoolSize,
		cfg.Cache.Redis.MinIdleConns,
		cfg.Cache.KeyPrefix,
	)
	defer bucketStore.Close()

	ttlPolicy := bucketcache.TTLPolicy{
		CurrentTTL:  time.Duration(cfg.Cache.CurrentMonthTTLHours) * time.Hour,
		NormalTTL:   time.Duration(cfg.Cache.TTLHours) * time.Hour,
		LongTermTTL: time.Duration(cfg.Cache.LongTermTTLHours) * time.Hour,
		Tiered:      cfg.Cache.EnableTieredTTL,
	}
	strategy := bucketcache.NewStrategy(bucketStore, dbAdapter, ttlPolicy, cfg.Cache.MaxMonthsPerQuery, ctx)

	rangeComposer := composer.New(strategy, dbAdapter)

	providerClient := provider.New(provider.Config{
		BaseURL:               cfg.Provider.BaseURL + "/api/events",
		Timeout:               time.Duration(cfg.Provider.TimeoutMs) * time.Millisecond,
		RetryAttempts:         cfg.Provider.Retry.MaxAttempts,
		RetryInitial:          time.Duration(cfg.Provider.Retry.WaitMs) * time.Millisecond,
		RetryMultiplier:       cfg.Provider.Retry.Multiplier,
		BreakerWindow:         cfg.Provider.Breaker.Window,
		BreakerFailureRate:    float64(cfg.Provider.Breaker.ThresholdPct) / 100.0,
		BreakerMinCalls:       cfg.Provider.Breaker.MinCalls,
		BreakerWaitWindow:     time.Duration(cfg.Provider.Breaker.OpenMs) * time.Millisecond,
		BreakerHalfOpenProbes: cfg.Provider.Breaker.HalfOpenProbes,
	})

	pipeline := syncpkg.New(providerClient, strategy, dbAdapter)

	syncScheduler := scheduler.New(cfg.Sync.Enabled, time.Duration(cfg.Sync.IntervalMs)*time.Millisecond, pipeline.SyncOnce)
	syncScheduler.Start(ctx)
	defer syncScheduler.Stop()

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode, rangeComposer)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
