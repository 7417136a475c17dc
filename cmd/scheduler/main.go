package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"electric_balance_backend/internal/balance"
	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/events"
	"electric_balance_backend/internal/ree"
	"electric_balance_backend/internal/scheduler"
	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/db"
	"electric_balance_backend/platform/logger"
	"electric_balance_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cron", cfg.RefreshCron, "timezone", cfg.RefreshLocation.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side wiring only; no HTTP routes are registered here.
	balanceModule, err := balance.NewModule(repo, ree.NewClient(cfg, log), nil, val, eventBus, log)
	if err != nil {
		log.Error("failed to initialize balance module", "error", err)
		panic("failed to initialize balance module: " + err.Error())
	}

	handler := scheduler.NewHandler(balanceModule.Service(), cfg.GetRefreshLocation(), log)
	worker, err := scheduler.NewWorker(cfg, handler, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return periodic.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		eventBus.Wait()
		os.Exit(1)
	}
	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
