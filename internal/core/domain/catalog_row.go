package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRow is one persisted catalog snapshot entry. At most one row per
// (order_ref, hms_art_nr) exists; removal closes the date window instead of deleting.
type CatalogRow struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderRef           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_catalog_rows_order_hms" json:"order_ref"`
	HmsArtNr           string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_catalog_rows_order_hms" json:"hms_art_nr"`
	IsoCategory        string    `gorm:"type:varchar(20)" json:"iso_category"`
	Title              string    `gorm:"type:text;not null" json:"title"`
	ArticleName        string    `gorm:"type:text" json:"article_name"`
	SupplierID         uuid.UUID `gorm:"type:uuid;not null;index:idx_catalog_rows_supplier" json:"supplier_id"`
	SupplierName       string    `gorm:"type:varchar(255)" json:"supplier_name"`
	SupplierRef        string    `gorm:"type:varchar(255);not null" json:"supplier_ref"`
	AgreementReference string    `gorm:"type:varchar(100);not null" json:"agreement_reference"`
	SubClauseCode      string    `gorm:"type:varchar(255)" json:"sub_clause_code"` // raw cell
	DateFrom           time.Time `gorm:"not null" json:"date_from"`
	DateTo             time.Time `json:"date_to"`
	ArticleType        string    `gorm:"type:varchar(100)" json:"article_type"`
	FunctionalChange   string    `gorm:"type:varchar(50)" json:"functional_change"`
	RowNumber          int       `gorm:"-" json:"row_number,omitempty"`
	Created            time.Time `gorm:"not null" json:"created"`
	Updated            time.Time `gorm:"not null" json:"updated"`

	ArticleClassification `gorm:"embedded"`
}

// TableName specifies the table name for GORM
func (CatalogRow) TableName() string {
	return "catalog_rows"
}

// BeforeCreate GORM hook
func (r *CatalogRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SameContent compares every business field, ignoring identity, timestamps and row position
func (r CatalogRow) SameContent(o CatalogRow) bool {
	return r.OrderRef == o.OrderRef &&
		r.HmsArtNr == o.HmsArtNr &&
		r.IsoCategory == o.IsoCategory &&
		r.Title == o.Title &&
		r.ArticleName == o.ArticleName &&
		r.SupplierID == o.SupplierID &&
		r.SupplierName == o.SupplierName &&
		r.SupplierRef == o.SupplierRef &&
		r.AgreementReference == o.AgreementReference &&
		r.SubClauseCode == o.SubClauseCode &&
		r.DateFrom.Equal(o.DateFrom) &&
		r.DateTo.Equal(o.DateTo) &&
		r.ArticleType == o.ArticleType &&
		r.FunctionalChange == o.FunctionalChange &&
		r.ArticleClassification == o.ArticleClassification
}

// WithIdentityOf carries the persisted row's identity and creation time onto r
func (r CatalogRow) WithIdentityOf(prior CatalogRow, now time.Time) CatalogRow {
	r.ID = prior.ID
	r.Created = prior.Created
	r.Updated = now
	return r
}

// Closed ends the row's date window yesterday
func (r CatalogRow) Closed(now time.Time) CatalogRow {
	r.DateTo = Yesterday(now)
	r.Updated = now
	return r
}

// IsClosed reports whether the date window ended before today
func (r CatalogRow) IsClosed(now time.Time) bool {
	return !r.DateTo.IsZero() && r.DateTo.Before(StartOfDay(now))
}
