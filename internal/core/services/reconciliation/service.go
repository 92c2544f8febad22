package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/catalogdiff"
	"github.com/hmreg/catalog-reconciler/internal/core/services/clustering"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	"github.com/hmreg/catalog-reconciler/internal/core/services/projection"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
	"github.com/hmreg/catalog-reconciler/internal/pkg/logger"
)

// Service runs catalog files through normalization, diff, projection and clustering
type Service struct {
	store  Store
	files  FileRepository
	rows   RowSource
	config Config
	clock  func() time.Time
	logger *slog.Logger

	normalizer *normalizer.Normalizer
	differ     *catalogdiff.Engine
	clusterer  *clustering.Engine
}

// NewService creates a reconciliation service
func NewService(store Store, files FileRepository, rows RowSource, config Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:      store,
		files:      files,
		rows:       rows,
		config:     config,
		clock:      time.Now,
		logger:     log,
		normalizer: normalizer.New(log),
		differ:     catalogdiff.NewEngine(config.ForceUpdate, log),
		clusterer:  clustering.NewEngine(log),
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Preview reconciles rows without writing anything. Failing rows are reported
// and skipped; snapshot-level failures are returned as errors.
func (s *Service) Preview(ctx context.Context, supplierID uuid.UUID, raws []normalizer.RawRow) (*Report, error) {
	report, err := s.reconcile(ctx, supplierID, raws, PolicyCollect, s.clock())
	if err != nil {
		return nil, err
	}
	report.DryRun = true

	s.logger.Info("catalog preview computed",
		slog.String("order_ref", report.OrderRef),
		slog.Any("summary", report.Summary()))

	return report, nil
}

// RunScheduled reconciles one PENDING file and commits the result. Any failure
// moves the file to ERROR with the captured message and is not returned; the
// error result only reports that the file itself could not be read or saved.
func (s *Service) RunScheduled(ctx context.Context, fileID uuid.UUID) (*Report, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog file %s: %w", fileID, err)
	}
	if file.Status != domain.FileStatusPending {
		return nil, apperrors.InvalidTransition(string(file.Status), string(domain.FileStatusDone))
	}

	now := s.clock()
	startTime := time.Now()

	report, runErr := s.runFile(ctx, *file, now)
	if runErr != nil {
		s.logger.Error("catalog reconciliation failed",
			slog.String("file_id", file.ID.String()),
			slog.String("error", runErr.Error()))

		failed, err := file.MarkError(runErr.Error(), s.clock())
		if err != nil {
			return nil, err
		}
		if err := s.files.Save(ctx, &failed); err != nil {
			return nil, fmt.Errorf("failed to save catalog file status: %w", err)
		}
		return nil, nil
	}

	done, err := file.MarkDone(s.clock())
	if err != nil {
		return nil, err
	}
	done.OrderRef = report.OrderRef
	if err := s.files.Save(ctx, &done); err != nil {
		return nil, fmt.Errorf("failed to save catalog file status: %w", err)
	}

	logger.ForFile(s.logger, file.ID.String(), report.OrderRef).Info("catalog reconciliation completed",
		slog.Any("summary", report.Summary()),
		slog.Duration("duration", time.Since(startTime)))

	return report, nil
}

// Retry moves an ERROR file back to PENDING so the whole file runs again
func (s *Service) Retry(ctx context.Context, fileID uuid.UUID) error {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to load catalog file %s: %w", fileID, err)
	}

	pending, err := file.Retry(s.clock())
	if err != nil {
		return err
	}
	if err := s.files.Save(ctx, &pending); err != nil {
		return fmt.Errorf("failed to save catalog file status: %w", err)
	}

	s.logger.Info("catalog file queued for retry", slog.String("file_id", fileID.String()))
	return nil
}

// PendingFiles lists files waiting for a scheduled run
func (s *Service) PendingFiles(ctx context.Context, limit int) ([]domain.CatalogFile, error) {
	return s.files.ListByStatus(ctx, domain.FileStatusPending, limit)
}

func (s *Service) runFile(ctx context.Context, file domain.CatalogFile, now time.Time) (*Report, error) {
	raws, err := s.rows.LoadRows(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}

	report, err := s.reconcile(ctx, file.SupplierID, raws, PolicyAbort, now)
	if err != nil {
		return nil, err
	}
	report.FileID = file.ID

	changes := report.ChangeSet()
	if changes.IsEmpty() {
		return report, nil
	}
	if err := s.store.Apply(ctx, changes); err != nil {
		return nil, fmt.Errorf("failed to apply reconciliation: %w", err)
	}
	return report, nil
}

// reconcile computes a report without writing. Under PolicyAbort the first row
// failure is returned; under PolicyCollect it is recorded on the report.
func (s *Service) reconcile(ctx context.Context, supplierID uuid.UUID, raws []normalizer.RawRow, policy Policy, now time.Time) (*Report, error) {
	report := &Report{}

	snapshot := make([]domain.CatalogRow, 0, len(raws))
	rejected := make(map[string]struct{})
	for _, raw := range raws {
		res, err := s.normalizer.Normalize(raw, supplierID, now)
		if err != nil {
			if policy == PolicyAbort {
				return nil, err
			}
			if hms, hmsErr := normalizer.NormalizeHmsArtNr(raw.HmsArtNr); hmsErr == nil {
				rejected[hms] = struct{}{}
			}
			report.RowErrors = append(report.RowErrors, newRowError(raw.RowNumber, raw.HmsArtNr, StageNormalize, err))
			s.logger.Warn("row rejected", slog.Int("row_number", raw.RowNumber), slog.String("error", err.Error()))
			continue
		}
		snapshot = append(snapshot, res.Row)
		report.Warnings = append(report.Warnings, res.Warnings...)
	}

	if len(snapshot) == 0 {
		if len(report.RowErrors) > 0 {
			return report, nil
		}
		return nil, apperrors.ParseError("catalog snapshot is empty")
	}

	state, err := s.store.LoadState(ctx, snapshot[0].OrderRef, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciliation state: %w", err)
	}

	diff, err := s.differ.Diff(snapshot, state.PriorRows, now)
	if err != nil {
		return nil, err
	}
	report.OrderRef = diff.OrderRef
	// rejected rows are still listed in the file, so their articles stay open
	diff.Deactivated = excluding(diff.Deactivated, rejected)

	index := projection.NewIndex(state.Products, state.Agreements, state.SubClauses, state.Links)
	projector := projection.New(index, projection.Config{
		AllowMissingMainProducts: s.config.AllowMissingMainProducts,
	}, now, s.logger)

	failed := make(map[string]struct{})
	lists := []struct {
		rows []domain.CatalogRow
		kind projection.RowKind
	}{
		{diff.Inserted, projection.RowInserted},
		{diff.Updated, projection.RowUpdated},
		{diff.Deactivated, projection.RowDeactivated},
	}
	for _, list := range lists {
		for _, row := range list.rows {
			if err := projector.ProjectRow(row, list.kind); err != nil {
				if policy == PolicyAbort {
					return nil, err
				}
				failed[row.HmsArtNr] = struct{}{}
				report.RowErrors = append(report.RowErrors, newRowError(row.RowNumber, row.HmsArtNr, StageProject, err))
				s.logger.Warn("row not projected", slog.String("hms_art_nr", row.HmsArtNr), slog.String("error", err.Error()))
			}
		}
	}

	projected := projector.Result()
	clusters := s.clusterer.Run(projected.Unresolved(), now)
	projected.Replace(clusters.Links)

	report.Rows = Changes[domain.CatalogRow]{
		Inserted:    excluding(diff.Inserted, failed),
		Updated:     excluding(diff.Updated, failed),
		Deactivated: excluding(diff.Deactivated, failed),
	}
	report.Links = Changes[domain.AgreementLink]{
		Inserted:    projected.Inserted,
		Updated:     projected.Updated,
		Deactivated: projected.Deactivated,
	}
	report.NewSubClauses = projected.NewSubClauses
	report.NewSeries = clusters.NewSeries
	report.NewProducts = clusters.NewProducts
	report.Clusters = clusters.Groups

	return report, nil
}

// excluding drops rows whose HMS article number is in skip
func excluding(rows []domain.CatalogRow, skip map[string]struct{}) []domain.CatalogRow {
	if len(skip) == 0 {
		return rows
	}
	out := make([]domain.CatalogRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := skip[r.HmsArtNr]; !ok {
			out = append(out, r)
		}
	}
	return out
}
