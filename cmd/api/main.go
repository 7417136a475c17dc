package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"electric_balance_backend/internal/balance"
	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/balance/service"
	"electric_balance_backend/internal/events"
	apphttp "electric_balance_backend/internal/http"
	"electric_balance_backend/internal/http/router"
	"electric_balance_backend/internal/ree"
	"electric_balance_backend/internal/scheduler"
	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/db"
	"electric_balance_backend/platform/logger"
	"electric_balance_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var (
		repo      repository.Repository
		closeRepo func()
	)
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		r, closeFn, err := repository.Open(ctx, cfg)
		if err != nil {
			return err
		}
		repo, closeRepo = r, closeFn
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer closeRepo()
	log.Info("database connected", "driver", db.DriverFor(cfg.DatabaseURL))

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	reeClient := ree.NewClient(cfg, log)

	refreshScheduler, closeScheduler := initRefreshScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules
	// ========================================================================

	balanceModule, err := balance.NewModule(repo, reeClient, refreshScheduler, val, eventBus, log)
	if err != nil {
		log.Error("failed to initialize balance module", "error", err)
		panic("failed to initialize balance module: " + err.Error())
	}

	balanceModule.RegisterHandlers(eventBus, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   repo,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			balanceModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		eventBus.Wait()
		os.Exit(1)
	}
	eventBus.Wait()
	log.Info("server stopped")
}

// initRefreshScheduler returns nil when Redis is not reachable, which hides
// the queued refresh endpoint.
func initRefreshScheduler(cfg config.SchedulerConfig, log *logger.Logger) (service.RefreshScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; queued refreshes disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize refresh scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
