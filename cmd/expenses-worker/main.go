package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/suggest"
	"expenses/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger(nil, applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting expenses-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}
	if cfg.SuggestCache != config.SuggestCacheRedis {
		// An in-process cache here is invisible to the API server.
		logger.Warn("Worker cache is not shared with the API server", "suggest_cache", cfg.SuggestCache)
	}

	ctx := context.Background()

	be, factory := cli.InitBackend(ctx, cfg)
	defer be.Cleanup()

	cacheRes := cli.InitSuggestionCache(cfg, factory)
	defer cacheRes.Cleanup()
	if cacheRes.Cache == nil {
		logger.Error("SUGGEST_CACHE must be enabled for the worker")
		os.Exit(1)
	}

	snapshot := suggest.NewCachedSource(be.Store, cacheRes.Cache, cacheRes.Generation)
	cacheWorker := worker.NewCacheWorker(snapshot)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A cold cache only costs the first request a store read.
	if err := cacheWorker.StartupWarm(runCtx); err != nil {
		logger.Error("Startup cache warm failed", "error", err)
	}

	go cacheWorker.PeriodicRefresh(runCtx, cfg.CacheRefreshPeriod)

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := amqpClient.Consume(runCtx, cacheWorker); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	shutdownCtx, done := cli.GracefulShutdown(shutdownTimeout, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		cancel()
		select {
		case <-consumeDone:
		case <-ctx.Done():
		}
	})

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped")
}
