package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// LoggingMiddleware logs the start and outcome of every task
func LoggingMiddleware(logger *slog.Logger) func(asynq.Handler) asynq.Handler {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			taskID, _ := asynq.GetTaskID(ctx)
			retried, _ := asynq.GetRetryCount(ctx)

			logger.Debug("task started",
				slog.String("task_type", task.Type()),
				slog.String("task_id", taskID),
				slog.Int("retried", retried))

			err := next.ProcessTask(ctx, task)

			attrs := []any{
				slog.String("task_type", task.Type()),
				slog.String("task_id", taskID),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("task failed", append(attrs, slog.String("error", err.Error()))...)
				return err
			}
			logger.Info("task completed", attrs...)
			return nil
		})
	}
}
