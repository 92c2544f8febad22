package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/storage"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// FileStore keeps submitted file content
type FileStore interface {
	Save(ctx context.Context, fileID string, filename string, reader io.Reader) (*storage.FileMetadata, error)
	Delete(ctx context.Context, fileID string) error
}

// FileRegistry records submissions
type FileRegistry interface {
	Create(ctx context.Context, file *domain.CatalogFile) error
	FindByHash(ctx context.Context, hash string) (*domain.CatalogFile, error)
}

// FormatChecker tells whether a file extension can be parsed
type FormatChecker interface {
	IsSupported(fileExt string) bool
}

// SubmitRequest describes one catalog upload
type SubmitRequest struct {
	SupplierID uuid.UUID
	FileName   string
	Content    io.Reader
	CreatedBy  string
}

// Intake stores uploaded catalogs and registers them as PENDING files
type Intake struct {
	storage FileStore
	files   FileRegistry
	formats FormatChecker
	clock   func() time.Time
	logger  *slog.Logger
}

// NewIntake creates an intake
func NewIntake(store FileStore, files FileRegistry, formats FormatChecker, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		storage: store,
		files:   files,
		formats: formats,
		clock:   time.Now,
		logger:  logger,
	}
}

// Submit stores the content and creates a PENDING file. Content identical to an
// earlier submission returns that submission and created=false.
func (i *Intake) Submit(ctx context.Context, req SubmitRequest) (file *domain.CatalogFile, created bool, err error) {
	if req.SupplierID == uuid.Nil {
		return nil, false, apperrors.BadRequest("supplier id is required")
	}
	if ext := filepath.Ext(req.FileName); !i.formats.IsSupported(ext) {
		return nil, false, apperrors.UnsupportedFormat(ext)
	}

	id := uuid.New()
	meta, err := i.storage.Save(ctx, id.String(), req.FileName, req.Content)
	if err != nil {
		return nil, false, err
	}

	existing, err := i.files.FindByHash(ctx, meta.Hash)
	if err != nil {
		i.discard(ctx, id)
		return nil, false, err
	}
	if existing != nil {
		i.discard(ctx, id)
		i.logger.Info("catalog already submitted",
			slog.String("file_id", existing.ID.String()),
			slog.String("hash", meta.Hash))
		return existing, false, nil
	}

	now := i.clock()
	file = &domain.CatalogFile{
		ID:         id,
		FileName:   req.FileName,
		FileHash:   meta.Hash,
		StoredPath: meta.StoredPath,
		SupplierID: req.SupplierID,
		Status:     domain.FileStatusPending,
		CreatedBy:  req.CreatedBy,
		Created:    now,
		Updated:    now,
	}
	if err := i.files.Create(ctx, file); err != nil {
		i.discard(ctx, id)
		return nil, false, fmt.Errorf("failed to register catalog file: %w", err)
	}

	i.logger.Info("catalog file submitted",
		slog.String("file_id", id.String()),
		slog.String("supplier_id", req.SupplierID.String()),
		slog.String("filename", req.FileName),
		slog.Int64("size", meta.Size))

	return file, true, nil
}

func (i *Intake) discard(ctx context.Context, id uuid.UUID) {
	if err := i.storage.Delete(ctx, id.String()); err != nil {
		i.logger.Warn("failed to discard stored file",
			slog.String("file_id", id.String()),
			slog.String("error", err.Error()))
	}
}
