package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"electric_balance_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const defaultQueue = "balance"

// Client enqueues refresh tasks for the worker.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueRefresh queues a refresh of the given range and returns the task id.
func (c *Client) EnqueueRefresh(ctx context.Context, startDate, endDate string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}

	task, err := NewBalanceRefreshTask(RefreshPayload{StartDate: startDate, EndDate: endDate})
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func redisOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	return redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return defaultQueue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
