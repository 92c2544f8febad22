package jobs

import (
	"context"
	"fmt"
	"io"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	"github.com/hmreg/catalog-reconciler/internal/core/services/reconciliation"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/parsers"
)

// Opener reads stored files
type Opener interface {
	Open(ctx context.Context, storedPath string) (io.ReadCloser, error)
}

// FileRowSource decodes stored catalog files into raw rows
type FileRowSource struct {
	storage Opener
	parsers *parsers.ParserFactory
}

var _ reconciliation.RowSource = (*FileRowSource)(nil)

// NewFileRowSource creates a row source over stored files
func NewFileRowSource(storage Opener, factory *parsers.ParserFactory) *FileRowSource {
	return &FileRowSource{storage: storage, parsers: factory}
}

// LoadRows opens the stored copy of file and parses it by its original name
func (s *FileRowSource) LoadRows(ctx context.Context, file domain.CatalogFile) ([]normalizer.RawRow, error) {
	rc, err := s.storage.Open(ctx, file.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.FileName, err)
	}
	defer rc.Close()

	return s.parsers.ReadCatalog(ctx, file.FileName, rc)
}
