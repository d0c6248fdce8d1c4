// Command prestod runs the query gateway: an HTTP front end over the Presto
// execution adapter with query history and progress stats.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"presto-adapter/internal/api"
	"presto-adapter/internal/client"
	"presto-adapter/internal/config"
	"presto-adapter/internal/executor"
	"presto-adapter/internal/middleware"
	"presto-adapter/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close() //nolint:errcheck

	history := repository.NewQueryHistoryRepo(db)
	if err := history.Init(context.Background()); err != nil {
		return err
	}

	pool, err := executor.NewPool(cfg.MaxConcurrentQueries, cfg.WorkerIdleTimeout, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Release(10 * time.Second) }()

	sessions := func(ctx context.Context, query string) (executor.StatementSession, error) {
		return client.New(ctx, client.Config{
			ServerURL: cfg.PrestoURL,
			User:      cfg.PrestoUser,
			Source:    cfg.PrestoSource,
			Catalog:   cfg.PrestoCatalog,
			Schema:    cfg.PrestoSchema,
		}, query)
	}

	server := api.NewServer(api.ServerConfig{
		Runner:   pool,
		Sessions: sessions,
		History:  history,
		Logger:   logger,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gateway listening", "addr", cfg.ListenAddr, "presto_url", cfg.PrestoURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
