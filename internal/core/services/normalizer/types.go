package normalizer

import (
	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// RawRow is one decoded catalog row. Every cell is still text.
type RawRow struct {
	RowNumber          int    `json:"row_number"` // source line; the header is line 1
	OrderRef           string `json:"order_ref"`
	HmsArtNr           string `json:"hms_art_nr"`
	IsoCategory        string `json:"iso_category"`
	Title              string `json:"title"`
	ArticleName        string `json:"article_name"`
	SupplierRef        string `json:"supplier_ref"`
	SupplierName       string `json:"supplier_name"`
	AgreementReference string `json:"agreement_reference"`
	SubClauseCode      string `json:"sub_clause_code"`
	DateFrom           string `json:"date_from"`
	DateTo             string `json:"date_to"`
	ArticleType        string `json:"article_type"`
	FunctionalChange   string `json:"functional_change"`
}

// SubClauseRef is one (post, rank) pair parsed from a sub-clause cell
type SubClauseRef struct {
	PostCode string `json:"post_code"`
	Rank     int    `json:"rank"`
}

// Warning is a non-fatal finding on a row that was still accepted
type Warning struct {
	RowNumber int                 `json:"row_number"`
	HmsArtNr  string              `json:"hms_art_nr"`
	Code      apperrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
}

// Result is the outcome of normalizing one raw row
type Result struct {
	Row      domain.CatalogRow `json:"row"`
	Warnings []Warning         `json:"warnings,omitempty"`
}
