// Package cli holds the start-up steps shared by the expenses binaries.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expenses/internal/backend"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/seed"
)

// SetupLogger installs the configured slog handler as the default and
// returns it. A nil cfg gives text output at info level.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = applog.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store or exits.
func InitBackend(ctx context.Context, cfg *config.Config) (*backend.BackendResult, *backend.DefaultFactory) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		slog.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(slog.Default())
	res, err := factory.CreateBackend(ctx, bc)
	if err != nil {
		slog.Error("Failed to initialize backend", "error", err, "backend", bc.Type)
		os.Exit(1)
	}
	return res, factory
}

// InitSuggestionCache builds the configured snapshot cache or exits.
func InitSuggestionCache(cfg *config.Config, factory *backend.DefaultFactory) *backend.CacheResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		slog.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := factory.CreateSuggestionCache(bc)
	if err != nil {
		slog.Error("Failed to initialize suggestion cache", "error", err, "cache", cfg.SuggestCache)
		os.Exit(1)
	}
	return res
}

// SeedIfEnabled loads the seed data and applies it to an empty store.
func SeedIfEnabled(ctx context.Context, cfg *config.Config, store seed.Store) error {
	if !cfg.SeedOnStart {
		return nil
	}
	data, err := seed.LoadFile(cfg.SeedFile)
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, store, data)
	return err
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup. done closes once cleanup finished or timeout elapsed.
func GracefulShutdown(timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			slog.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			slog.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until shutdown has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
