package scheduler

import (
	"context"
	"fmt"
	"time"

	"electric_balance_backend/internal/balance/repository"
	"electric_balance_backend/internal/balance/service"
	"electric_balance_backend/internal/balance/transport"
	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 2

// Refresher runs one ingestion of an inclusive date range.
type Refresher interface {
	RefreshRange(ctx context.Context, start, end time.Time, source string) (transport.RefreshResponse, error)
}

// Handler executes balance refresh tasks.
type Handler struct {
	refresher Refresher
	location  *time.Location
	log       *logger.Logger
	now       func() time.Time
}

func NewHandler(refresher Refresher, location *time.Location, log *logger.Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		refresher: refresher,
		location:  location,
		log:       log.WithComponent("scheduler"),
		now:       time.Now,
	}
}

// HandleBalanceRefresh refreshes the task's range. Failures that another
// attempt cannot fix are marked with asynq.SkipRetry.
func (h *Handler) HandleBalanceRefresh(ctx context.Context, task *asynq.Task) error {
	if taskID, ok := asynq.GetTaskID(ctx); ok {
		ctx = context.WithValue(ctx, logger.TaskIDKey, taskID)
	}
	log := h.log.WithContext(ctx)

	payload, err := ParseBalanceRefreshPayload(task)
	if err != nil {
		return fmt.Errorf("decode refresh payload: %v: %w", err, asynq.SkipRetry)
	}

	start, end, err := h.resolveRange(payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	startDate, endDate := start.Format(repository.DateLayout), end.Format(repository.DateLayout)
	result, err := h.refresher.RefreshRange(ctx, start, end, service.SourceScheduler)
	if err != nil {
		if !apperr.GetKind(err).Retryable() {
			return fmt.Errorf("refresh %s..%s: %v: %w", startDate, endDate, err, asynq.SkipRetry)
		}
		return fmt.Errorf("refresh %s..%s: %w", startDate, endDate, err)
	}

	log.Info("scheduled refresh finished", "startDate", startDate, "endDate", endDate, "count", result.Count)
	return nil
}

// resolveRange parses the payload dates. An empty payload selects the
// previous calendar day in the configured time zone.
func (h *Handler) resolveRange(payload RefreshPayload) (time.Time, time.Time, error) {
	if payload.StartDate == "" && payload.EndDate == "" {
		now := h.now().In(h.location)
		yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)
		return yesterday, yesterday, nil
	}

	start, err := time.Parse(repository.DateLayout, payload.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate %q", payload.StartDate)
	}
	end, err := time.Parse(repository.DateLayout, payload.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate %q", payload.EndDate)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate %s is after endDate %s", payload.StartDate, payload.EndDate)
	}
	return start, end, nil
}

// Worker runs the asynq server that processes refresh tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handler *Handler, log *logger.Logger) (*Worker, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "task", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskBalanceRefresh, handler.HandleBalanceRefresh)

	return &Worker{server: server, mux: mux, log: log}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}
