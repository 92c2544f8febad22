package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/queue"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// PendingLister lists files waiting for a run
type PendingLister interface {
	PendingFiles(ctx context.Context, limit int) ([]domain.CatalogFile, error)
}

// Enqueuer puts tasks on the queue
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SchedulerConfig controls the sweep
type SchedulerConfig struct {
	Spec      string
	BatchSize int
	MaxRetry  int
	// UniqueFor keeps a file from being queued twice within the window
	UniqueFor time.Duration
}

// Scheduler periodically enqueues a reconcile task for every PENDING file
type Scheduler struct {
	cron   *cron.Cron
	files  PendingLister
	queue  Enqueuer
	config SchedulerConfig
	logger *slog.Logger
}

// NewScheduler creates a scheduler. Call Start to begin sweeping.
func NewScheduler(files PendingLister, q Enqueuer, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.UniqueFor <= 0 {
		cfg.UniqueFor = time.Hour
	}

	return &Scheduler{
		cron:   cron.New(),
		files:  files,
		queue:  q,
		config: cfg,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the sweep and starts the cron runner
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.config.Spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("pending sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.config.Spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("spec", s.config.Spec))
	return nil
}

// Schedule adds a named maintenance job to the cron runner
func (s *Scheduler) Schedule(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Sweep enqueues every pending file and returns how many tasks were added.
// Files that already have a queued task are skipped.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	files, err := s.files.PendingFiles(ctx, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending files: %w", err)
	}

	enqueued := 0
	var errs []error
	for _, f := range files {
		ok, err := s.EnqueueFile(ctx, f.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			enqueued++
		}
	}

	s.logger.Info("pending sweep completed",
		slog.Int("pending", len(files)),
		slog.Int("enqueued", enqueued))

	return enqueued, errors.Join(errs...)
}

// EnqueueFile queues a reconcile task for one file. It reports false when
// a task for the file is already queued.
func (s *Scheduler) EnqueueFile(ctx context.Context, fileID uuid.UUID) (bool, error) {
	task, err := queue.NewReconcileTask(fileID, s.config.MaxRetry, s.config.UniqueFor)
	if err != nil {
		return false, err
	}

	_, err = s.queue.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.QueueError(fmt.Errorf("enqueue %s: %w", fileID, err))
	}
	return true, nil
}
