package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/suggest"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger(nil, applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx := context.Background()

	be, factory := cli.InitBackend(ctx, cfg)
	if err := cli.SeedIfEnabled(ctx, cfg, be.Store); err != nil {
		logger.Error("Failed to seed store", "error", err)
		os.Exit(1)
	}

	cacheRes := cli.InitSuggestionCache(cfg, factory)

	// Without a cache the engine reads the store directly.
	var (
		source      suggest.ExampleSource = be.Store
		invalidator services.Invalidator
		sizer       apphttp.SizeReporter
	)
	if cacheRes.Cache != nil {
		cached := suggest.NewCachedSource(be.Store, cacheRes.Cache, cacheRes.Generation)
		if n, err := cached.Warm(ctx); err != nil {
			logger.Warn("Failed to warm suggestion cache", "error", err)
		} else {
			logger.Info("Suggestion cache warmed", "examples", n)
		}
		source, invalidator, sizer = cached, cached, cached
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled, change events will not be published")
	}

	svc := services.New(be.Store, invalidator, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Services:           svc,
		Suggester:          suggest.NewEngine(source),
		Store:              be.Store,
		Cache:              sizer,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
	})

	shutdownCtx, done := cli.GracefulShutdown(shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := cacheRes.Cleanup(); err != nil {
			logger.Error("Suggestion cache cleanup error", "error", err)
		}
		// Services.Close closes the store and the AMQP connection.
		if err := svc.Close(); err != nil {
			logger.Error("Services close error", "error", err)
		}
	})

	logger.Info("Starting expenses server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"suggest_cache", cfg.SuggestCache)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
