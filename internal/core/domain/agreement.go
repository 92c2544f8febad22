package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DraftStatus is the editorial state of an agreement
type DraftStatus string

const (
	DraftStatusDraft DraftStatus = "DRAFT"
	DraftStatusDone  DraftStatus = "DONE"
)

// AgreementStatus is the lifecycle state of an agreement
type AgreementStatus string

const (
	AgreementStatusActive   AgreementStatus = "ACTIVE"
	AgreementStatusInactive AgreementStatus = "INACTIVE"
	AgreementStatusDeleted  AgreementStatus = "DELETED"
)

// Agreement is a framework agreement that products are listed under
type Agreement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Reference   string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference"`
	Title       string          `gorm:"type:text" json:"title"`
	DraftStatus DraftStatus     `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"draft_status"`
	Status      AgreementStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Published   time.Time       `json:"published"`
	Expired     time.Time       `json:"expired"`
	Created     time.Time       `gorm:"not null" json:"created"`
	Updated     time.Time       `gorm:"not null" json:"updated"`

	// Relations
	SubClauses []SubClause `gorm:"foreignKey:AgreementID;constraint:OnDelete:CASCADE" json:"sub_clauses,omitempty"`
}

// TableName specifies the table name for GORM
func (Agreement) TableName() string {
	return "agreements"
}

// BeforeCreate GORM hook
func (a *Agreement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsDeleted reports whether the agreement is in the deleted lifecycle state
func (a Agreement) IsDeleted() bool {
	return a.Status == AgreementStatusDeleted
}

// SubClauseKind distinguishes numbered sub-clauses from the "no sub-clause" grouping
type SubClauseKind string

const (
	SubClauseKindWithPost SubClauseKind = "WITH_POST"
	SubClauseKindNoPost   SubClauseKind = "NO_POST"
)

const (
	// NoSubClauseSortNr is the fixed sort order of the "no sub-clause" grouping
	NoSubClauseSortNr = 99
	NoSubClauseTitle  = "Produkter uten delkontrakt"
)

// SubClause is a numbered partition ("post") of an agreement
type SubClause struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AgreementID uuid.UUID     `gorm:"type:uuid;not null;index:idx_sub_clauses_agreement" json:"agreement_id"`
	Code        string        `gorm:"type:varchar(20)" json:"code"`
	Title       string        `gorm:"type:text" json:"title"`
	SortNr      int           `gorm:"not null" json:"sort_nr"`
	Kind        SubClauseKind `gorm:"type:varchar(20);not null;default:'WITH_POST'" json:"kind"`
	Created     time.Time     `gorm:"not null" json:"created"`
	Updated     time.Time     `gorm:"not null" json:"updated"`
}

// TableName specifies the table name for GORM
func (SubClause) TableName() string {
	return "sub_clauses"
}

// BeforeCreate GORM hook
func (s *SubClause) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewNoSubClause builds the "no sub-clause" grouping of an agreement
func NewNoSubClause(agreementID uuid.UUID, now time.Time) SubClause {
	return SubClause{
		ID:          uuid.New(),
		AgreementID: agreementID,
		Title:       NoSubClauseTitle,
		SortNr:      NoSubClauseSortNr,
		Kind:        SubClauseKindNoPost,
		Created:     now,
		Updated:     now,
	}
}
