package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"electric_balance_backend/internal/balance"
	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/balance/service"
	"electric_balance_backend/internal/events"
	"electric_balance_backend/internal/ree"
	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/db"
	"electric_balance_backend/platform/logger"
	"electric_balance_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

type chunk struct {
	start time.Time
	end   time.Time
}

func main() {
	from := flag.String("from", "", "first day to refresh (YYYY-MM-DD)")
	to := flag.String("to", "", "last day to refresh (YYYY-MM-DD)")
	concurrency := flag.Int("concurrency", 2, "months refreshed in parallel")
	flag.Parse()

	start, end, err := parseBounds(*from, *to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if *concurrency < 1 {
		*concurrency = 1
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting balance backfill", "from", *from, "to", *to, "concurrency", *concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, cfg); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	repo, closeRepo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer closeRepo()

	eventBus := events.NewInMemoryBus(log)
	balanceModule, err := balance.NewModule(repo, ree.NewClient(cfg, log), nil, validator.New(), eventBus, log)
	if err != nil {
		log.Error("failed to initialize balance module", "error", err)
		panic("failed to initialize balance module: " + err.Error())
	}
	svc := balanceModule.Service()

	chunks := monthChunks(start, end)
	var failed, written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for _, c := range chunks {
		g.Go(func() error {
			// Chunk failures are counted, not returned, so the remaining months still run.
			result, err := svc.RefreshRange(gctx, c.start, c.end, service.SourceBackfill)
			if err != nil {
				failed.Add(1)
				log.Error("backfill chunk failed",
					"startDate", c.start.Format(repository.DateLayout),
					"endDate", c.end.Format(repository.DateLayout),
					"error", err,
				)
				return nil
			}
			written.Add(int64(result.Count))
			return nil
		})
	}
	_ = g.Wait()
	eventBus.Wait()

	log.Info("balance backfill finished", "chunks", len(chunks), "failed", failed.Load(), "written", written.Load())
	if failed.Load() > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}

func parseBounds(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(repository.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("-from must be a date (YYYY-MM-DD), got %q", from)
	}
	end, err := time.Parse(repository.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("-to must be a date (YYYY-MM-DD), got %q", to)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("-from %s is after -to %s", from, to)
	}
	return start, end, nil
}

// monthChunks splits [start, end] at calendar month boundaries.
func monthChunks(start, end time.Time) []chunk {
	var chunks []chunk
	for cur := start; !cur.After(end); {
		monthEnd := time.Date(cur.Year(), cur.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		if monthEnd.After(end) {
			monthEnd = end
		}
		chunks = append(chunks, chunk{start: cur, end: monthEnd})
		cur = monthEnd.AddDate(0, 0, 1)
	}
	return chunks
}
