package parsers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

const catalogCSV = `Bestillingsnr;HMS-nr.;Isokode;Beskrivelse;Artikkelnavn;Lev.artnr;Leverandørnavn;Rammeavtalenr;Delkontraktnr;Dato fra;Dato til;Artikkeltype;Funksjonsendring
ORD-1;123.0;122203;Rullestol A;Rullestol A 45;R-1;Hjelpemidler AS;23-1234;1,2r3;2024-01-01;;Hj.middel;Nei
;;;;;;;;;;;;
ORD-1;124;122203;Rullestol B;Rullestol B 50;R-2;Hjelpemidler AS;23-1234;1;2024-01-01;31.12.2026;HMS del;Ja
`

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestCSVParser_ParseStream_SniffsSemicolon(t *testing.T) {
	parser := NewCSVParser(nil)
	table, err := parser.ParseStream(context.Background(), strings.NewReader(catalogCSV))

	require.NoError(t, err)
	assert.Equal(t, "CSV", table.Format)
	assert.Len(t, table.Header, 13)
	assert.Equal(t, "Bestillingsnr", table.Header[0])

	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, 4, table.Rows[1].Line)
	assert.Equal(t, "Rullestol B", table.Rows[1].Cell(3))
	assert.Equal(t, 3, table.TotalRows)
	assert.Equal(t, 1, table.SkippedRows)
}

func TestCSVParser_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katalog.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Age\nJohn,30\nJane,25\n"), 0644))

	table, err := NewCSVParser(nil).Parse(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Age"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Jane", table.Rows[1].Cell(0))
}

func TestCSVParser_TrimWhitespaceAndBOM(t *testing.T) {
	content := "\ufeff  Name  ,  Age\n  John  ,  30\n"

	table, err := NewCSVParser(nil).ParseStream(context.Background(), bytes.NewReader([]byte(content)))

	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Age"}, table.Header)
	assert.Equal(t, []string{"John", "30"}, table.Rows[0].Cells)
}

func TestCSVParser_DecodesWindows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String(catalogCSV)
	require.NoError(t, err)
	require.False(t, utf8.ValidString(encoded))

	table, err := NewCSVParser(nil).ParseStream(context.Background(), strings.NewReader(encoded))
	require.NoError(t, err)

	_, err = DiscoverColumns(table.Header, CatalogColumns)
	require.NoError(t, err)
	assert.Contains(t, table.Header, "Leverandørnavn")
}

func TestCSVParser_ExplicitDelimiter(t *testing.T) {
	config := DefaultParserConfig()
	config.CSVDelimiter = '\t'

	table, err := NewCSVParser(config).ParseStream(context.Background(), strings.NewReader("a\tb\n1\t2\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Header)
}

func TestRow_Cell(t *testing.T) {
	row := Row{Cells: []string{"a"}}
	assert.Equal(t, "a", row.Cell(0))
	assert.Equal(t, "", row.Cell(3))
	assert.Equal(t, "", row.Cell(-1))
}

func TestExcelParser_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katalog.xlsx")
	writeWorkbook(t, path, [][]string{
		{"Bestillingsnr", "HMS-nr", "Beskrivelse"},
		{"ORD-1", "123", " Rullestol A "},
		{"", "", ""},
		{"ORD-1", "124", "Rullestol B"},
	})

	table, err := NewExcelParser(nil).Parse(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "XLSX", table.Format)
	assert.Equal(t, []string{"Bestillingsnr", "HMS-nr", "Beskrivelse"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Rullestol A", table.Rows[0].Cell(2))
	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, 4, table.Rows[1].Line)
}

func TestExcelParser_SupportedFormats(t *testing.T) {
	assert.Equal(t, []string{".xlsx", ".xlsm"}, NewExcelParser(nil).SupportedFormats())
}

func TestParserConfig_MaxFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a,b\n"), 1024), 0644))

	config := DefaultParserConfig()
	config.MaxFileSize = 100

	_, err := NewCSVParser(config).Parse(context.Background(), path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileTooLarge))
}

func TestContext_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVParser(nil).ParseStream(ctx, strings.NewReader("a,b\n1,2\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParserFactory(t *testing.T) {
	factory := NewParserFactory(nil)

	assert.Equal(t, []string{".csv", ".xlsm", ".xlsx"}, factory.SupportedFormats())
	assert.True(t, factory.IsSupported("XLSX"))
	assert.False(t, factory.IsSupported(".json"))

	_, err := factory.GetParser(".json")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnsupportedFormat))

	path := filepath.Join(t.TempDir(), "katalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalogCSV), 0644))
	table, err := factory.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestDiscoverColumns(t *testing.T) {
	table, err := NewCSVParser(nil).ParseStream(context.Background(), strings.NewReader(catalogCSV))
	require.NoError(t, err)

	index, err := DiscoverColumns(table.Header, CatalogColumns)
	require.NoError(t, err)

	assert.Equal(t, 0, index[ColOrderRef])
	assert.Equal(t, 1, index[ColHmsArtNr], "substring match on HMS-nr.")
	assert.Equal(t, 9, index[ColDateFrom], "whitespace is ignored")
	assert.Equal(t, 10, index[ColDateTo])
}

func TestDiscoverColumns_Precedence(t *testing.T) {
	columns := []Column{{Name: "title", Header: "Beskrivelse", Required: true}}

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"exact wins over earlier substring", []string{"Kort beskrivelse", "Beskrivelse lang", "Beskrivelse"}, 2},
		{"leftmost substring wins", []string{"Id", "Beskrivelse lang", "Beskrivelse kort"}, 1},
		{"case sensitive", []string{"beskrivelse", "Beskrivelse (no)"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, err := DiscoverColumns(tt.header, columns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, index["title"])
		})
	}
}

func TestDiscoverColumns_Missing(t *testing.T) {
	_, err := DiscoverColumns([]string{"Bestillingsnr"}, CatalogColumns)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingColumn))
	assert.ErrorContains(t, err, "HMS-nr")

	index, err := DiscoverColumns([]string{"A"}, []Column{{Name: "opt", Header: "Optional"}})
	require.NoError(t, err)
	assert.Equal(t, -1, index["opt"])
}

func TestToRawRows(t *testing.T) {
	table, err := NewCSVParser(nil).ParseStream(context.Background(), strings.NewReader(catalogCSV))
	require.NoError(t, err)
	index, err := DiscoverColumns(table.Header, CatalogColumns)
	require.NoError(t, err)

	rows := ToRawRows(table, index)

	require.Len(t, rows, 2)
	first := rows[0]
	assert.Equal(t, 2, first.RowNumber)
	assert.Equal(t, "ORD-1", first.OrderRef)
	assert.Equal(t, "123.0", first.HmsArtNr)
	assert.Equal(t, "Rullestol A", first.Title)
	assert.Equal(t, "1,2r3", first.SubClauseCode)
	assert.Equal(t, "", first.DateTo)
	assert.Equal(t, "Hj.middel", first.ArticleType)
	assert.Equal(t, "31.12.2026", rows[1].DateTo)
}

func TestParserFactory_ReadCatalog(t *testing.T) {
	factory := NewParserFactory(nil)
	ctx := context.Background()

	rows, err := factory.ReadCatalog(ctx, "katalog.CSV", strings.NewReader(catalogCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "124", rows[1].HmsArtNr)
	assert.Equal(t, 4, rows[1].RowNumber)

	_, err = factory.ReadCatalog(ctx, "katalog.pdf", strings.NewReader(catalogCSV))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnsupportedFormat))

	_, err = factory.ReadCatalog(ctx, "katalog.csv", strings.NewReader("Bestillingsnr;HMS-nr\nORD-1;1\n"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingColumn))
}
