package scheduler

import (
	"context"

	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the daily refresh on the configured cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	cronspec  string
	queue     string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	log = log.WithComponent("periodic")
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: cfg.GetRefreshLocation(),
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("daily refresh enqueue failed", "error", err)
				return
			}
			log.Info("daily refresh enqueued", "taskId", info.ID, "queue", info.Queue)
		},
	})

	return &Periodic{
		scheduler: scheduler,
		cronspec:  cfg.GetRefreshCron(),
		queue:     queueName(cfg),
		log:       log,
	}, nil
}

// Register adds the daily refresh entry and returns its id.
func (p *Periodic) Register() (string, error) {
	task, err := NewBalanceRefreshTask(RefreshPayload{})
	if err != nil {
		return "", err
	}
	return p.scheduler.Register(p.cronspec, task, asynq.Queue(p.queue))
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) error {
	if _, err := p.Register(); err != nil {
		return err
	}
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	p.log.Info("periodic refresh scheduled", "cron", p.cronspec)

	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
