package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"wallet-service/config"
	apidocs "wallet-service/docs/api"
	httpHandler "wallet-service/internal/adapter/http/handler"
	"wallet-service/internal/adapter/http/middleware"
	"wallet-service/internal/adapter/storage/memory"
	pgStorage "wallet-service/internal/adapter/storage/postgres"
	redisStorage "wallet-service/internal/adapter/storage/redis"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/service"
	"wallet-service/pkg/metrics"

	"github.com/rs/zerolog"
)

// application is the wired service: its HTTP handler plus the resources to release on exit.
type application struct {
	handler http.Handler
	closers []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApplication wires storage, optional Redis, the wallet engine and the router.
func newApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*application, error) {
	app := &application{}
	m := metrics.New()

	var (
		walletRepo ports.WalletRepository
		transactor ports.DBTransactor
		retrier    ports.Retrier
		checkers   []ports.HealthChecker
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := runMigrations(cfg.Database, log, migrateUp); err != nil {
				return nil, err
			}
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		log.Info().Msg("PostgreSQL connected")

		walletRepo = pgStorage.NewWalletRepo(pool)
		transactor = pgStorage.NewTransactor(pool, cfg.Database.LockTimeout)
		retrier = pgStorage.NewRetrier(cfg.Retry, m, log)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))

	case config.StorageDriverMemory:
		store := memory.NewStore(cfg.Database.LockTimeout)
		walletRepo = store
		transactor = store
		checkers = append(checkers, store)
		log.Warn().Msg("using in-memory storage: wallets are lost on restart")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var rateLimitStore ports.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		log.Info().Msg("Redis connected")

		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	walletSvc := service.NewWalletService(walletRepo, transactor, retrier, cfg.Wallet.DefaultBalance, m, log)

	app.handler = httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		RateLimitStore: rateLimitStore,
		RateLimitRules: middleware.RateLimitRules(cfg.RateLimit),
		HealthCheckers: checkers,
		Metrics:        m,
		OpenAPISpec:    apidocs.OpenAPI,
		AppName:        cfg.App.Name,
		Debug:          cfg.App.Debug,
		Logger:         log,
	})
	return app, nil
}

// runServer serves HTTP until SIGINT/SIGTERM or ctx cancellation, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("storage", cfg.Storage.Driver).
		Bool("redis", cfg.Redis.Enabled).
		Int("port", cfg.Server.Port).
		Msg("Starting " + cfg.App.Name)

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}
