package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkStatus is the derived state of an agreement link
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "ACTIVE"
	LinkStatusInactive LinkStatus = "INACTIVE"
)

// DefaultRank is used when a sub-clause code carries no explicit rank
const DefaultRank = 99

// LinkKey is the business key of an agreement link
type LinkKey struct {
	SupplierID  uuid.UUID
	SupplierRef string
	AgreementID uuid.UUID
	Post        uuid.UUID
	Rank        int
}

// AgreementLink ties a catalog article to one sub-clause of an agreement
type AgreementLink struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SupplierID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_agreement_links_key" json:"supplier_id"`
	SupplierRef string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_agreement_links_key" json:"supplier_ref"`
	AgreementID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_agreement_links_key" json:"agreement_id"`
	SubClauseID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_agreement_links_key" json:"sub_clause_id"`
	Rank        int        `gorm:"not null;uniqueIndex:idx_agreement_links_key" json:"rank"`
	HmsArtNr    string     `gorm:"type:varchar(20);index:idx_agreement_links_hms" json:"hms_art_nr"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index:idx_agreement_links_product" json:"product_id,omitempty"`
	SeriesID    *uuid.UUID `gorm:"type:uuid" json:"series_id,omitempty"`
	Reference   string     `gorm:"type:varchar(100)" json:"reference"`
	Title       string     `gorm:"type:text" json:"title"`
	ArticleName string     `gorm:"type:text" json:"article_name"`
	IsoCategory string     `gorm:"type:varchar(20)" json:"iso_category"`
	Status      LinkStatus `gorm:"type:varchar(20);not null;default:'INACTIVE'" json:"status"`
	Published   time.Time  `json:"published"`
	Expired     time.Time  `json:"expired"`
	Created     time.Time  `gorm:"not null" json:"created"`
	Updated     time.Time  `gorm:"not null" json:"updated"`

	ArticleClassification `gorm:"embedded"`
}

// TableName specifies the table name for GORM
func (AgreementLink) TableName() string {
	return "agreement_links"
}

// BeforeCreate GORM hook
func (l *AgreementLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Key returns the link's business key
func (l AgreementLink) Key() LinkKey {
	return LinkKey{
		SupplierID:  l.SupplierID,
		SupplierRef: l.SupplierRef,
		AgreementID: l.AgreementID,
		Post:        l.SubClauseID,
		Rank:        l.Rank,
	}
}

// HasProduct reports whether the link is resolved to a registered product
func (l AgreementLink) HasProduct() bool {
	return l.ProductID != nil && *l.ProductID != uuid.Nil
}

// HasSeries reports whether the link belongs to a series
func (l AgreementLink) HasSeries() bool {
	return l.SeriesID != nil && *l.SeriesID != uuid.Nil
}

// WithProduct attaches the link to a product and its series
func (l AgreementLink) WithProduct(productID uuid.UUID, seriesID *uuid.UUID, now time.Time) AgreementLink {
	l.ProductID = &productID
	if seriesID != nil {
		id := *seriesID
		l.SeriesID = &id
	}
	l.Updated = now
	return l
}

// WithSeries attaches the link to a series without touching its product
func (l AgreementLink) WithSeries(seriesID uuid.UUID, now time.Time) AgreementLink {
	l.SeriesID = &seriesID
	l.Updated = now
	return l
}

// Deactivated forces the link inactive, expiring it now
func (l AgreementLink) Deactivated(now time.Time) AgreementLink {
	l.Status = LinkStatusInactive
	l.Expired = now
	l.Updated = now
	return l
}

// DeriveLinkStatus is ACTIVE only for a finished agreement whose window covers today
func DeriveLinkStatus(draft DraftStatus, from, to, now time.Time) LinkStatus {
	if draft == DraftStatusDone && WithinWindow(from, to, now) {
		return LinkStatusActive
	}
	return LinkStatusInactive
}
