package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hmreg/catalog-reconciler/internal/core/services/reconciliation"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/cache"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/queue"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// ReportTTL is how long the last run summary of a file is kept
const ReportTTL = 7 * 24 * time.Hour

// Runner executes one scheduled reconciliation
type Runner interface {
	RunScheduled(ctx context.Context, fileID uuid.UUID) (*reconciliation.Report, error)
}

// Locker serializes work per file across workers
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ReportSink keeps run summaries for later inspection
type ReportSink interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportRecord is the stored outcome of a completed run
type ReportRecord struct {
	FileID    uuid.UUID                 `json:"file_id"`
	OrderRef  string                    `json:"order_ref"`
	Summary   reconciliation.Summary    `json:"summary"`
	Clusters  int                       `json:"clusters"`
	RowErrors []reconciliation.RowError `json:"row_errors,omitempty"`
	Completed time.Time                 `json:"completed"`
}

// ReportKey is the cache key of a file's last run
func ReportKey(fileID uuid.UUID) string {
	return "catalog:report:" + fileID.String()
}

// ReconcileHandler processes catalog:reconcile tasks
type ReconcileHandler struct {
	runner  Runner
	locker  Locker
	reports ReportSink
	logger  *slog.Logger
}

// NewReconcileHandler creates a handler. reports may be nil.
func NewReconcileHandler(runner Runner, locker Locker, reports ReportSink, logger *slog.Logger) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{
		runner:  runner,
		locker:  locker,
		reports: reports,
		logger:  logger.With(slog.String("component", "reconcile_handler")),
	}
}

// ProcessTask implements asynq.Handler
func (h *ReconcileHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseReconcilePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	fileID := payload.FileID

	err = h.locker.WithLock(ctx, fileID.String(), func(ctx context.Context) error {
		report, err := h.runner.RunScheduled(ctx, fileID)
		if err != nil {
			return err
		}
		if report != nil {
			h.store(ctx, report)
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrLockHeld):
		h.logger.Info("file is being processed by another worker", slog.String("file_id", fileID.String()))
		return nil
	case apperrors.HasCode(err, apperrors.ErrCodeInvalidTransition), apperrors.IsNotFound(err):
		h.logger.Warn("catalog file not runnable",
			slog.String("file_id", fileID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

func (h *ReconcileHandler) store(ctx context.Context, report *reconciliation.Report) {
	if h.reports == nil {
		return
	}
	record := ReportRecord{
		FileID:    report.FileID,
		OrderRef:  report.OrderRef,
		Summary:   report.Summary(),
		Clusters:  len(report.Clusters),
		RowErrors: report.RowErrors,
		Completed: time.Now(),
	}
	if err := h.reports.SetJSON(ctx, ReportKey(report.FileID), record, ReportTTL); err != nil {
		h.logger.Warn("failed to store run report",
			slog.String("file_id", report.FileID.String()),
			slog.String("error", err.Error()))
	}
}
