package normalizer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// dateLayouts are tried in order for date cells
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"01-02-06", // excelize default date format
	time.RFC3339,
}

// Normalizer turns decoded catalog rows into validated domain rows
type Normalizer struct {
	logger *slog.Logger
}

// New creates a normalizer
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize validates one raw row and builds its CatalogRow. Malformed cells fail
// the row; an unclassifiable article type is returned as a warning instead.
func (n *Normalizer) Normalize(raw RawRow, supplierID uuid.UUID, now time.Time) (Result, error) {
	hms, err := NormalizeHmsArtNr(raw.HmsArtNr)
	if err != nil {
		return Result{}, rowError(raw.RowNumber, err)
	}

	if _, err := ParseSubClauseCode(raw.SubClauseCode); err != nil {
		return Result{}, rowError(raw.RowNumber, err)
	}

	dateFrom, err := parseDate(raw.DateFrom, now.Location())
	if err != nil {
		return Result{}, rowError(raw.RowNumber, err)
	}
	if dateFrom.IsZero() {
		return Result{}, rowError(raw.RowNumber, apperrors.ParseError("date from is required"))
	}
	dateTo, err := parseDate(raw.DateTo, now.Location())
	if err != nil {
		return Result{}, rowError(raw.RowNumber, err)
	}

	row := domain.CatalogRow{
		ID:                 uuid.New(),
		OrderRef:           CleanText(raw.OrderRef),
		HmsArtNr:           hms,
		IsoCategory:        CleanText(raw.IsoCategory),
		Title:              CleanText(raw.Title),
		ArticleName:        CleanText(raw.ArticleName),
		SupplierID:         supplierID,
		SupplierName:       CleanText(raw.SupplierName),
		SupplierRef:        CleanText(raw.SupplierRef),
		AgreementReference: CleanText(raw.AgreementReference),
		SubClauseCode:      CleanText(raw.SubClauseCode),
		DateFrom:           dateFrom,
		DateTo:             dateTo,
		ArticleType:        CleanText(raw.ArticleType),
		FunctionalChange:   CleanText(raw.FunctionalChange),
		RowNumber:          raw.RowNumber,
		Created:            now,
		Updated:            now,
	}

	result := Result{}
	classification, err := ClassifyArticleType(row.ArticleType, row.FunctionalChange)
	if err != nil {
		appErr, _ := apperrors.GetAppError(err)
		result.Warnings = append(result.Warnings, Warning{
			RowNumber: raw.RowNumber,
			HmsArtNr:  hms,
			Code:      appErr.Code,
			Message:   appErr.Message,
		})
		n.logger.Warn("article type not classified",
			slog.Int("row_number", raw.RowNumber),
			slog.String("hms_art_nr", hms),
			slog.String("article_type", row.ArticleType))
	}
	row.ArticleClassification = classification
	result.Row = row

	return result, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	s := CleanText(raw)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.ParseErrorf("invalid date %q", raw)
}

func rowError(rowNumber int, err error) error {
	return fmt.Errorf("row %d: %w", rowNumber, err)
}
