package reconciliation

import (
	"context"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/clustering"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// State is the snapshot of persisted data a run works against
type State struct {
	PriorRows  []domain.CatalogRow
	Products   []domain.Product
	Agreements []domain.Agreement
	SubClauses []domain.SubClause
	Links      []domain.AgreementLink
}

// Store loads run-start state and commits a run's effects
type Store interface {
	// LoadState returns the rows of orderRef plus everything projection needs for supplierID
	LoadState(ctx context.Context, orderRef string, supplierID uuid.UUID) (*State, error)
	// Apply commits every effect of one run as a single unit
	Apply(ctx context.Context, changes *ChangeSet) error
}

// FileRepository persists catalog file status
type FileRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.CatalogFile, error)
	Save(ctx context.Context, file *domain.CatalogFile) error
	ListByStatus(ctx context.Context, status domain.FileStatus, limit int) ([]domain.CatalogFile, error)
}

// RowSource decodes the rows of a stored catalog file
type RowSource interface {
	LoadRows(ctx context.Context, file domain.CatalogFile) ([]normalizer.RawRow, error)
}

// Policy decides how row-level failures are contained
type Policy string

const (
	// PolicyCollect records failing rows and keeps going
	PolicyCollect Policy = "collect"
	// PolicyAbort stops at the first failing row
	PolicyAbort Policy = "abort"
)

// Config for the orchestrator
type Config struct {
	ForceUpdate              bool
	AllowMissingMainProducts bool
}

// Changes is the insert/update/deactivate split of one aggregate
type Changes[T any] struct {
	Inserted    []T `json:"inserted"`
	Updated     []T `json:"updated"`
	Deactivated []T `json:"deactivated"`
}

// Counts is the size of each list of a Changes
type Counts struct {
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
}

// Counts sizes each list
func (c Changes[T]) Counts() Counts {
	return Counts{Inserted: len(c.Inserted), Updated: len(c.Updated), Deactivated: len(c.Deactivated)}
}

// ChangeSet is everything one run writes
type ChangeSet struct {
	Rows          Changes[domain.CatalogRow]
	Links         Changes[domain.AgreementLink]
	NewSubClauses []domain.SubClause
	NewSeries     []domain.Series
	NewProducts   []domain.Product
}

// IsEmpty reports whether there is nothing to write
func (cs *ChangeSet) IsEmpty() bool {
	return cs.Rows.Counts() == (Counts{}) && cs.Links.Counts() == (Counts{}) &&
		len(cs.NewSubClauses)+len(cs.NewSeries)+len(cs.NewProducts) == 0
}

// Stage names where a row failed
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageProject   Stage = "project"
)

// RowError is a row-level failure recorded under PolicyCollect
type RowError struct {
	RowNumber int                 `json:"row_number"`
	HmsArtNr  string              `json:"hms_art_nr,omitempty"`
	Stage     Stage               `json:"stage"`
	Code      apperrors.ErrorCode `json:"code,omitempty"`
	Message   string              `json:"message"`
}

func newRowError(rowNumber int, hms string, stage Stage, err error) RowError {
	re := RowError{RowNumber: rowNumber, HmsArtNr: hms, Stage: stage, Message: err.Error()}
	if appErr, ok := apperrors.GetAppError(err); ok {
		re.Code = appErr.Code
	}
	return re
}

// Report is the structured outcome of one run
type Report struct {
	FileID        uuid.UUID                     `json:"file_id,omitempty"`
	OrderRef      string                        `json:"order_ref"`
	DryRun        bool                          `json:"dry_run"`
	Rows          Changes[domain.CatalogRow]    `json:"rows"`
	Links         Changes[domain.AgreementLink] `json:"links"`
	NewSubClauses []domain.SubClause            `json:"new_sub_clauses,omitempty"`
	NewSeries     []domain.Series               `json:"new_series,omitempty"`
	NewProducts   []domain.Product              `json:"new_products,omitempty"`
	Clusters      []clustering.GroupResult      `json:"clusters,omitempty"`
	Warnings      []normalizer.Warning          `json:"warnings,omitempty"`
	RowErrors     []RowError                    `json:"row_errors,omitempty"`
}

// Summary is the loggable shape of a report
type Summary struct {
	Rows          Counts `json:"rows"`
	Links         Counts `json:"links"`
	NewSubClauses int    `json:"new_sub_clauses"`
	NewSeries     int    `json:"new_series"`
	NewProducts   int    `json:"new_products"`
	Warnings      int    `json:"warnings"`
	RowErrors     int    `json:"row_errors"`
}

// Summary counts every list of the report
func (r *Report) Summary() Summary {
	return Summary{
		Rows:          r.Rows.Counts(),
		Links:         r.Links.Counts(),
		NewSubClauses: len(r.NewSubClauses),
		NewSeries:     len(r.NewSeries),
		NewProducts:   len(r.NewProducts),
		Warnings:      len(r.Warnings),
		RowErrors:     len(r.RowErrors),
	}
}

// ChangeSet returns the writes a report stands for
func (r *Report) ChangeSet() *ChangeSet {
	return &ChangeSet{
		Rows:          r.Rows,
		Links:         r.Links,
		NewSubClauses: r.NewSubClauses,
		NewSeries:     r.NewSeries,
		NewProducts:   r.NewProducts,
	}
}
