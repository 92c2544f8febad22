package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminStatus is the review state of a product or series
type AdminStatus string

const (
	AdminStatusPending  AdminStatus = "PENDING"
	AdminStatusApproved AdminStatus = "APPROVED"
)

// EntityStatus is the active state of a product or series
type EntityStatus string

const (
	EntityStatusActive   EntityStatus = "ACTIVE"
	EntityStatusInactive EntityStatus = "INACTIVE"
)

// IsoCategoryUnknown is used when no member of a new series carries an iso category
const IsoCategoryUnknown = "0"

// Product is a registered article, identified by (hms_art_nr, supplier_id)
type Product struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SupplierID  uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_products_supplier_hms" json:"supplier_id"`
	HmsArtNr    string       `gorm:"type:varchar(20);uniqueIndex:idx_products_supplier_hms" json:"hms_art_nr"`
	SupplierRef string       `gorm:"type:varchar(255);not null" json:"supplier_ref"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	ArticleName string       `gorm:"type:text" json:"article_name"`
	SeriesID    *uuid.UUID   `gorm:"type:uuid;index:idx_products_series" json:"series_id,omitempty"`
	IsoCategory string       `gorm:"type:varchar(20)" json:"iso_category"`
	AdminStatus AdminStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"admin_status"`
	Status      EntityStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Created     time.Time    `gorm:"not null" json:"created"`
	Updated     time.Time    `gorm:"not null" json:"updated"`

	ArticleClassification `gorm:"embedded"`
}

// TableName specifies the table name for GORM
func (Product) TableName() string {
	return "products"
}

// BeforeCreate GORM hook
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Series groups product variants under one product family
type Series struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SupplierID  uuid.UUID    `gorm:"type:uuid;not null;index:idx_series_supplier" json:"supplier_id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	IsoCategory string       `gorm:"type:varchar(20);not null" json:"iso_category"`
	AdminStatus AdminStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"admin_status"`
	Status      EntityStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Created     time.Time    `gorm:"not null" json:"created"`
	Updated     time.Time    `gorm:"not null" json:"updated"`
}

// TableName specifies the table name for GORM
func (Series) TableName() string {
	return "series"
}

// BeforeCreate GORM hook
func (s *Series) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
