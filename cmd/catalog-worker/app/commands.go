package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hmreg/catalog-reconciler/internal/infrastructure/cache"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/queue"
	"github.com/hmreg/catalog-reconciler/internal/jobs"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// NewServeCommand runs the queue worker and the pending-file scheduler
func (a *App) NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Process queued catalog files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := a.Logger()
			a.config.LogConfig()

			svc, err := a.Services()
			if err != nil {
				return err
			}
			redis, err := a.Redis()
			if err != nil {
				return err
			}

			server, err := queue.NewAsynqServer(&a.config.Queue, log)
			if err != nil {
				return err
			}
			handler := jobs.NewReconcileHandler(svc.Reconciliation, cache.NewFileLock(redis, a.LockTTL()), redis, log)
			server.Use(jobs.LoggingMiddleware(log))
			server.HandleFunc(queue.TaskTypeReconcile, handler.ProcessTask)

			scheduler, err := a.Scheduler(svc)
			if err != nil {
				return err
			}
			if days := a.config.Storage.RetentionDays; days > 0 {
				retention := time.Duration(days) * 24 * time.Hour
				err := scheduler.Schedule("@daily", "storage_cleanup", func(ctx context.Context) error {
					_, err := svc.Storage.CleanupOldFiles(ctx, retention)
					return err
				})
				if err != nil {
					return err
				}
			}
			if a.config.Scheduler.Enabled {
				if err := scheduler.Start(ctx); err != nil {
					return err
				}
				defer scheduler.Stop()
			}

			if err := server.Start(); err != nil {
				return err
			}
			log.Info("catalog worker running", slog.String("version", a.version))

			<-ctx.Done()
			server.Shutdown()
			return nil
		},
	}
}

// NewSubmitCommand stores a catalog file and registers it for processing
func (a *App) NewSubmitCommand() *cobra.Command {
	var (
		supplier  string
		createdBy string
		enqueue   bool
	)

	cmd := &cobra.Command{
		Use:     "submit <file>",
		GroupID: "core",
		Short:   "Submit a catalog file for reconciliation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			supplierID, err := parseID("supplier", supplier)
			if err != nil {
				return err
			}
			svc, err := a.Services()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			file, created, err := svc.Intake.Submit(cmd.Context(), jobs.SubmitRequest{
				SupplierID: supplierID,
				FileName:   filepath.Base(f.Name()),
				Content:    f,
				CreatedBy:  createdBy,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "already submitted as %s (%s)\n", file.ID, file.Status)
				return nil
			}
			fmt.Fprintf(out, "submitted %s\n", file.ID)

			if enqueue {
				scheduler, err := a.Scheduler(svc)
				if err != nil {
					return err
				}
				if _, err := scheduler.EnqueueFile(cmd.Context(), file.ID); err != nil {
					return err
				}
				fmt.Fprintln(out, "queued for processing")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier id (required)")
	cmd.Flags().StringVar(&createdBy, "created-by", "catalog-worker", "submitter recorded on the file")
	cmd.Flags().BoolVar(&enqueue, "enqueue", true, "queue the file right away instead of waiting for the scheduler")
	_ = cmd.MarkFlagRequired("supplier")

	return cmd
}

// NewPreviewCommand reconciles a local file without writing anything
func (a *App) NewPreviewCommand() *cobra.Command {
	var supplier string

	cmd := &cobra.Command{
		Use:     "preview <file>",
		GroupID: "core",
		Short:   "Show what a catalog file would change",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			supplierID, err := parseID("supplier", supplier)
			if err != nil {
				return err
			}
			svc, err := a.Services()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := svc.Parsers.ReadCatalog(cmd.Context(), f.Name(), f)
			if err != nil {
				return err
			}
			report, err := svc.Reconciliation.Preview(cmd.Context(), supplierID, rows)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier id (required)")
	_ = cmd.MarkFlagRequired("supplier")

	return cmd
}

// NewRetryCommand moves a failed file back to PENDING
func (a *App) NewRetryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "retry <file-id>",
		GroupID: "core",
		Short:   "Run a failed catalog file again",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			svc, err := a.Services()
			if err != nil {
				return err
			}
			if err := svc.Reconciliation.Retry(cmd.Context(), fileID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is pending again\n", fileID)
			return nil
		},
	}
}

// NewStatusCommand prints a file's status and its last run summary
func (a *App) NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status <file-id>",
		GroupID: "core",
		Short:   "Show the status of a catalog file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			svc, err := a.Services()
			if err != nil {
				return err
			}
			file, err := svc.Files.Get(cmd.Context(), fileID)
			if err != nil {
				return err
			}

			status := map[string]interface{}{"file": file}

			redis, err := a.Redis()
			if err != nil {
				return err
			}
			var record jobs.ReportRecord
			switch err := redis.GetJSON(cmd.Context(), jobs.ReportKey(fileID), &record); {
			case err == nil:
				status["last_run"] = record
			case !errors.Is(err, cache.ErrCacheMiss):
				return err
			}

			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
}

// NewSweepCommand enqueues every pending file once
func (a *App) NewSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "sweep",
		GroupID: "management",
		Short:   "Queue all pending catalog files now",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.Services()
			if err != nil {
				return err
			}
			scheduler, err := a.Scheduler(svc)
			if err != nil {
				return err
			}
			n, err := scheduler.Sweep(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d files\n", n)
			return err
		},
	}
}

// NewMigrateCommand creates or updates the catalog tables
func (a *App) NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		GroupID: "management",
		Short:   "Create or update database tables",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.Database()
			if err != nil {
				return err
			}
			return db.Migrate()
		},
	}
}

// NewHealthCommand reports database and Redis health
func (a *App) NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "health",
		GroupID: "management",
		Short:   "Check database and Redis connectivity",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.Database()
			if err != nil {
				return err
			}
			redis, err := a.Redis()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"database": db.Health(cmd.Context()),
				"redis":    redis.Health(cmd.Context()),
			})
		},
	}
}

func parseID(what, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.BadRequest(fmt.Sprintf("invalid %s id %q", what, value))
	}
	return id, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
