package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules a job for background processing
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Client enqueues bulk jobs on one asynq queue
type Client struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
}

// NewClient creates a client for queue. timeout bounds a whole run; the job
// lease is renewed row by row within it.
func NewClient(opt asynq.RedisConnOpt, queue string, timeout time.Duration) *Client {
	return &Client{
		client:  asynq.NewClient(opt),
		queue:   queue,
		timeout: timeout,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue adds a bulk:process task for jobID. Failed runs are not retried by
// the queue; a failed job is resumed explicitly.
func (c *Client) Enqueue(ctx context.Context, jobID string) error {
	task, err := NewProcessTask(jobID)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Timeout(c.timeout),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// RedisOpt converts a redis:// URL into asynq connection options
func RedisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return opt, nil
}
