package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Runner processes one bulk job to completion
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// Worker handles bulk:process tasks
type Worker struct {
	runner Runner
	log    zerolog.Logger
}

func NewWorker(runner Runner, log zerolog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// ProcessTask runs the job named in the task. Job failures are already
// recorded on the job document, so they are reported to asynq as SkipRetry.
// Only an interrupted run is returned as a plain error.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := ParsePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := w.log.With().Str("job_id", p.JobID).Logger()
	log.Info().Msg("Starting bulk job")

	err = w.runner.Run(ctx, p.JobID)
	switch {
	case err == nil:
		log.Info().Msg("Bulk job finished")
		return nil
	case errors.Is(err, models.ErrLeaseHeld):
		log.Warn().Err(err).Msg("Bulk job is already running elsewhere")
	case errors.Is(err, models.ErrJobNotFound):
		log.Warn().Err(err).Msg("Bulk job no longer exists")
	case ctx.Err() != nil:
		log.Warn().Err(err).Msg("Bulk job interrupted")
		return err
	default:
		log.Error().Err(err).Msg("Bulk job failed")
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// Mux routes bulk tasks to w
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBulkProcess, w.ProcessTask)
	return mux
}

// ServerConfig sizes the worker server
type ServerConfig struct {
	Queue       string
	Concurrency int
}

// NewServer creates an asynq server that logs through zerolog
func NewServer(opt asynq.RedisConnOpt, cfg ServerConfig) *asynq.Server {
	log := logger.For("queue")
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      &asynqLogger{log: log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("type", task.Type()).Bytes("payload", task.Payload()).Msg("Task failed")
		}),
	})
}

// asynqLogger adapts zerolog to asynq.Logger
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
