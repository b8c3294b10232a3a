// Command basketd serves the shopping list API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/cache"
	"github.com/dukerupert/basket/internal/config"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/logging"
	"github.com/dukerupert/basket/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "basketd",
		Short:        "Shopping list and price comparison API server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./basket.yaml)")

	loadConfig := func() (config.Server, *slog.Logger, error) {
		cfg, err := config.LoadServer(configFile)
		if err != nil {
			return config.Server{}, nil, err
		}
		return cfg, logging.Setup(cfg.LogLevel), nil
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newSeedCmd(loadConfig),
		newCreateSuperuserCmd(loadConfig),
	)
	return root
}

type configLoader func() (config.Server, *slog.Logger, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	comparisons, closeCache, err := openComparisonCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	srv := server.New(db, comparisons, logger, server.WithTrustProxy(cfg.TrustProxy))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic cleanup of rate limiter windows
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("basketd listening", "addr", httpServer.Addr, "db", cfg.DBPath, "trust_proxy", cfg.TrustProxy)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openComparisonCache picks Redis when a URL is configured, otherwise an
// in-process cache. A zero TTL turns caching off.
func openComparisonCache(ctx context.Context, cfg config.Server, logger *slog.Logger) (cache.Comparisons, func(), error) {
	noop := func() {}
	if cfg.ComparisonTTL == 0 {
		logger.Info("comparison cache disabled")
		return nil, noop, nil
	}
	if cfg.RedisURL == "" {
		return cache.NewMemory(cfg.ComparisonTTL), noop, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	r, err := cache.NewRedis(pingCtx, cfg.RedisURL, cfg.ComparisonTTL)
	if err != nil {
		return nil, noop, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("comparison cache using redis", "ttl", cfg.ComparisonTTL)
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}, nil
}
