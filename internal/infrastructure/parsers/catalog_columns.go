package parsers

import (
	"strings"

	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// Column is a logical catalog column and the header text that identifies it
type Column struct {
	Name     string
	Header   string
	Required bool
}

// Logical column names
const (
	ColOrderRef           = "order_ref"
	ColHmsArtNr           = "hms_art_nr"
	ColIsoCategory        = "iso_category"
	ColTitle              = "title"
	ColArticleName        = "article_name"
	ColSupplierRef        = "supplier_ref"
	ColSupplierName       = "supplier_name"
	ColAgreementReference = "agreement_reference"
	ColSubClauseCode      = "sub_clause_code"
	ColDateFrom           = "date_from"
	ColDateTo             = "date_to"
	ColArticleType        = "article_type"
	ColFunctionalChange   = "functional_change"
)

// CatalogColumns are the columns of a supplier catalog export
var CatalogColumns = []Column{
	{Name: ColOrderRef, Header: "Bestillingsnr", Required: true},
	{Name: ColHmsArtNr, Header: "HMS-nr", Required: true},
	{Name: ColIsoCategory, Header: "Isokode"},
	{Name: ColTitle, Header: "Beskrivelse", Required: true},
	{Name: ColArticleName, Header: "Artikkelnavn"},
	{Name: ColSupplierRef, Header: "Lev.artnr", Required: true},
	{Name: ColSupplierName, Header: "Leverandørnavn", Required: true},
	{Name: ColAgreementReference, Header: "Rammeavtalenr", Required: true},
	{Name: ColSubClauseCode, Header: "Delkontraktnr"},
	{Name: ColDateFrom, Header: "Datofra", Required: true},
	{Name: ColDateTo, Header: "Datotil"},
	{Name: ColArticleType, Header: "Artikkeltype", Required: true},
	{Name: ColFunctionalChange, Header: "Funksjonsendring"},
}

// ColumnIndex maps logical column names to cell positions; -1 means absent
type ColumnIndex map[string]int

// Get returns the cell of a logical column in row
func (ci ColumnIndex) Get(row Row, name string) string {
	i, ok := ci[name]
	if !ok {
		return ""
	}
	return row.Cell(i)
}

// DiscoverColumns locates every column in a header row. Header cells are compared
// with whitespace removed and case kept: an exact match wins over a substring
// match, and among substring matches the leftmost cell wins. A missing required
// column is a MissingColumn error.
func DiscoverColumns(header []string, columns []Column) (ColumnIndex, error) {
	compact := make([]string, len(header))
	for i, h := range header {
		compact[i] = normalizer.StripSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	index := make(ColumnIndex, len(columns))
	for _, col := range columns {
		want := normalizer.StripSpace(col.Header)
		index[col.Name] = findColumn(compact, want)
		if index[col.Name] < 0 && col.Required {
			return nil, apperrors.MissingColumn(col.Header)
		}
	}
	return index, nil
}

func findColumn(header []string, want string) int {
	for i, h := range header {
		if h == want {
			return i
		}
	}
	for i, h := range header {
		if strings.Contains(h, want) {
			return i
		}
	}
	return -1
}

// ToRawRows maps table rows to catalog rows through a discovered column index
func ToRawRows(table *Table, index ColumnIndex) []normalizer.RawRow {
	out := make([]normalizer.RawRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, normalizer.RawRow{
			RowNumber:          row.Line,
			OrderRef:           index.Get(row, ColOrderRef),
			HmsArtNr:           index.Get(row, ColHmsArtNr),
			IsoCategory:        index.Get(row, ColIsoCategory),
			Title:              index.Get(row, ColTitle),
			ArticleName:        index.Get(row, ColArticleName),
			SupplierRef:        index.Get(row, ColSupplierRef),
			SupplierName:       index.Get(row, ColSupplierName),
			AgreementReference: index.Get(row, ColAgreementReference),
			SubClauseCode:      index.Get(row, ColSubClauseCode),
			DateFrom:           index.Get(row, ColDateFrom),
			DateTo:             index.Get(row, ColDateTo),
			ArticleType:        index.Get(row, ColArticleType),
			FunctionalChange:   index.Get(row, ColFunctionalChange),
		})
	}
	return out
}
