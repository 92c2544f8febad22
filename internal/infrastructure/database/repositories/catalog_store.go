package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hmreg/catalog-reconciler/internal/core/services/reconciliation"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

const batchSize = 500

// CatalogStore implements reconciliation.Store using GORM
type CatalogStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ reconciliation.Store = (*CatalogStore)(nil)

// NewCatalogStore creates a new store instance
func NewCatalogStore(db *gorm.DB, logger *slog.Logger) *CatalogStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &CatalogStore{
		db:     db,
		logger: logger,
	}
}

// LoadState reads the prior rows of orderRef together with the supplier's
// products and links and every agreement with its sub-clauses
func (s *CatalogStore) LoadState(ctx context.Context, orderRef string, supplierID uuid.UUID) (*reconciliation.State, error) {
	db := s.db.WithContext(ctx)
	state := &reconciliation.State{}

	if err := db.Where("order_ref = ?", orderRef).Find(&state.PriorRows).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("load catalog rows: %w", err))
	}
	if err := db.Where("supplier_id = ?", supplierID).Find(&state.Products).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("load products: %w", err))
	}
	if err := db.Find(&state.Agreements).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("load agreements: %w", err))
	}
	if err := db.Find(&state.SubClauses).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("load sub-clauses: %w", err))
	}
	if err := db.Where("supplier_id = ?", supplierID).Find(&state.Links).Error; err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("load agreement links: %w", err))
	}

	s.logger.Debug("reconciliation state loaded",
		slog.String("order_ref", orderRef),
		slog.String("supplier_id", supplierID.String()),
		slog.Int("prior_rows", len(state.PriorRows)),
		slog.Int("products", len(state.Products)),
		slog.Int("agreements", len(state.Agreements)),
		slog.Int("links", len(state.Links)))

	return state, nil
}

// Apply writes a change set in one transaction. Referenced records are written
// before the records that point at them.
func (s *CatalogStore) Apply(ctx context.Context, changes *reconciliation.ChangeSet) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(changes.NewSubClauses) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(changes.NewSubClauses, batchSize).Error; err != nil {
				return fmt.Errorf("insert sub-clauses: %w", err)
			}
		}
		if len(changes.NewSeries) > 0 {
			if err := tx.CreateInBatches(changes.NewSeries, batchSize).Error; err != nil {
				return fmt.Errorf("insert series: %w", err)
			}
		}
		if len(changes.NewProducts) > 0 {
			if err := tx.CreateInBatches(changes.NewProducts, batchSize).Error; err != nil {
				return fmt.Errorf("insert products: %w", err)
			}
		}
		if rows := flatten(changes.Rows); len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("upsert catalog rows: %w", err)
			}
		}
		if links := flatten(changes.Links); len(links) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).CreateInBatches(links, batchSize).Error; err != nil {
				return fmt.Errorf("upsert agreement links: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to apply change set", slog.String("error", err.Error()))
		return apperrors.DatabaseError(err)
	}

	s.logger.Info("change set applied",
		slog.Any("rows", changes.Rows.Counts()),
		slog.Any("links", changes.Links.Counts()),
		slog.Int("new_sub_clauses", len(changes.NewSubClauses)),
		slog.Int("new_series", len(changes.NewSeries)),
		slog.Int("new_products", len(changes.NewProducts)))

	return nil
}

func flatten[T any](c reconciliation.Changes[T]) []T {
	out := make([]T, 0, len(c.Inserted)+len(c.Updated)+len(c.Deactivated))
	out = append(out, c.Inserted...)
	out = append(out, c.Updated...)
	return append(out, c.Deactivated...)
}
