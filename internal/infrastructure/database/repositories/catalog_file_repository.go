package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/reconciliation"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// CatalogFileRepository persists catalog file submissions
type CatalogFileRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ reconciliation.FileRepository = (*CatalogFileRepository)(nil)

// NewCatalogFileRepository creates a new repository instance
func NewCatalogFileRepository(db *gorm.DB, logger *slog.Logger) *CatalogFileRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &CatalogFileRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new submission
func (r *CatalogFileRepository) Create(ctx context.Context, file *domain.CatalogFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(fmt.Sprintf("catalog file with hash %s already submitted", file.FileHash))
		}
		return apperrors.DatabaseError(fmt.Errorf("create catalog file: %w", err))
	}
	return nil
}

// Get returns a file by id
func (r *CatalogFileRepository) Get(ctx context.Context, id uuid.UUID) (*domain.CatalogFile, error) {
	var file domain.CatalogFile
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("catalog file", id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("get catalog file: %w", err))
	}
	return &file, nil
}

// FindByHash returns the submission with the given content hash, or nil
func (r *CatalogFileRepository) FindByHash(ctx context.Context, hash string) (*domain.CatalogFile, error) {
	var files []domain.CatalogFile
	if err := r.db.WithContext(ctx).Where("file_hash = ?", hash).Limit(1).Find(&files).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("find catalog file by hash: %w", err))
	}
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

// Save writes every column of file
func (r *CatalogFileRepository) Save(ctx context.Context, file *domain.CatalogFile) error {
	if err := r.db.WithContext(ctx).Save(file).Error; err != nil {
		return apperrors.DatabaseError(fmt.Errorf("save catalog file: %w", err))
	}
	r.logger.Debug("catalog file saved",
		slog.String("file_id", file.ID.String()),
		slog.String("status", string(file.Status)))
	return nil
}

// ListByStatus returns files in status, oldest first. A limit of 0 means no limit.
func (r *CatalogFileRepository) ListByStatus(ctx context.Context, status domain.FileStatus, limit int) ([]domain.CatalogFile, error) {
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("created ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var files []domain.CatalogFile
	if err := query.Find(&files).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("list catalog files: %w", err))
	}
	return files, nil
}
