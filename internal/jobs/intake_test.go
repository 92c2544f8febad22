package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/parsers"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

const catalogCSV = `Bestillingsnr;HMS-nr;Isokode;Beskrivelse;Artikkelnavn;Lev.artnr;Leverandørnavn;Rammeavtalenr;Delkontraktnr;Dato fra;Dato til;Artikkeltype;Funksjonsendring
ORD-1;1;122203;Rullestol A;Rullestol A 45;R-1;Hjelpemidler AS;23-1234;1;2024-01-01;;Hj.middel;Nei
ORD-1;2;122203;Rullestol B;Rullestol B 50;R-2;Hjelpemidler AS;23-1234;1;2024-01-01;;Hj.middel;Nei
`

func TestIntake_SubmitAndLoadRows(t *testing.T) {
	store := newMemoryFileStore()
	registry := &memoryRegistry{}
	factory := parsers.NewParserFactory(nil)
	intake := NewIntake(store, registry, factory, nil)
	ctx := context.Background()
	supplierID := uuid.New()

	file, created, err := intake.Submit(ctx, SubmitRequest{
		SupplierID: supplierID,
		FileName:   "katalog.csv",
		Content:    strings.NewReader(catalogCSV),
		CreatedBy:  "import",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.FileStatusPending, file.Status)
	assert.NotEmpty(t, file.FileHash)

	rows, err := NewFileRowSource(store, factory).LoadRows(ctx, *file)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ORD-1", rows[0].OrderRef)
	assert.Equal(t, 3, rows[1].RowNumber)
}

func TestIntake_SameContentReturnsExistingFile(t *testing.T) {
	store := newMemoryFileStore()
	registry := &memoryRegistry{}
	intake := NewIntake(store, registry, parsers.NewParserFactory(nil), nil)
	ctx := context.Background()
	req := func() SubmitRequest {
		return SubmitRequest{SupplierID: uuid.New(), FileName: "katalog.csv", Content: strings.NewReader(catalogCSV)}
	}

	first, _, err := intake.Submit(ctx, req())
	require.NoError(t, err)

	again, created, err := intake.Submit(ctx, req())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, registry.files, 1)
	assert.Len(t, store.content, 1, "the duplicate upload is discarded")
}

func TestIntake_Rejects(t *testing.T) {
	intake := NewIntake(newMemoryFileStore(), &memoryRegistry{}, parsers.NewParserFactory(nil), nil)
	ctx := context.Background()

	_, _, err := intake.Submit(ctx, SubmitRequest{SupplierID: uuid.New(), FileName: "katalog.pdf", Content: strings.NewReader("x")})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnsupportedFormat))

	_, _, err = intake.Submit(ctx, SubmitRequest{FileName: "katalog.csv", Content: strings.NewReader("x")})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}

func TestFileRowSource_MissingFile(t *testing.T) {
	source := NewFileRowSource(newMemoryFileStore(), parsers.NewParserFactory(nil))

	_, err := source.LoadRows(context.Background(), domain.CatalogFile{FileName: "a.csv", StoredPath: "nope"})
	assert.True(t, apperrors.IsNotFound(err))
}
