package reconciliation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// memoryStore is an in-memory Store
type memoryStore struct {
	rows       map[uuid.UUID]domain.CatalogRow
	products   []domain.Product
	agreements []domain.Agreement
	subClauses []domain.SubClause
	series     []domain.Series
	links      map[uuid.UUID]domain.AgreementLink
	applied    int
	applyErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rows:  make(map[uuid.UUID]domain.CatalogRow),
		links: make(map[uuid.UUID]domain.AgreementLink),
	}
}

func (m *memoryStore) LoadState(ctx context.Context, orderRef string, supplierID uuid.UUID) (*State, error) {
	state := &State{
		Agreements: append([]domain.Agreement(nil), m.agreements...),
		SubClauses: append([]domain.SubClause(nil), m.subClauses...),
	}
	for _, r := range m.rows {
		if r.OrderRef == orderRef {
			state.PriorRows = append(state.PriorRows, r)
		}
	}
	for _, p := range m.products {
		if p.SupplierID == supplierID {
			state.Products = append(state.Products, p)
		}
	}
	for _, l := range m.links {
		if l.SupplierID == supplierID {
			state.Links = append(state.Links, l)
		}
	}
	return state, nil
}

func (m *memoryStore) Apply(ctx context.Context, cs *ChangeSet) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied++
	for _, list := range [][]domain.CatalogRow{cs.Rows.Inserted, cs.Rows.Updated, cs.Rows.Deactivated} {
		for _, r := range list {
			m.rows[r.ID] = r
		}
	}
	for _, list := range [][]domain.AgreementLink{cs.Links.Inserted, cs.Links.Updated, cs.Links.Deactivated} {
		for _, l := range list {
			m.links[l.ID] = l
		}
	}
	m.subClauses = append(m.subClauses, cs.NewSubClauses...)
	m.series = append(m.series, cs.NewSeries...)
	m.products = append(m.products, cs.NewProducts...)
	return nil
}

// memoryFiles is an in-memory FileRepository
type memoryFiles struct {
	files map[uuid.UUID]domain.CatalogFile
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: make(map[uuid.UUID]domain.CatalogFile)}
}

func (m *memoryFiles) Get(ctx context.Context, id uuid.UUID) (*domain.CatalogFile, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, apperrors.NotFound("catalog file", id.String())
	}
	return &f, nil
}

func (m *memoryFiles) Save(ctx context.Context, file *domain.CatalogFile) error {
	m.files[file.ID] = *file
	return nil
}

func (m *memoryFiles) ListByStatus(ctx context.Context, status domain.FileStatus, limit int) ([]domain.CatalogFile, error) {
	var out []domain.CatalogFile
	for _, f := range m.files {
		if f.Status == status && (limit <= 0 || len(out) < limit) {
			out = append(out, f)
		}
	}
	return out, nil
}

// memoryRows serves raw rows per file id
type memoryRows struct {
	rows map[uuid.UUID][]normalizer.RawRow
}

func (m *memoryRows) LoadRows(ctx context.Context, file domain.CatalogFile) ([]normalizer.RawRow, error) {
	rows, ok := m.rows[file.ID]
	if !ok {
		return nil, errors.New("file not found in storage")
	}
	return rows, nil
}
