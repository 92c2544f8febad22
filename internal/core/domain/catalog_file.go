package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// FileStatus is the processing state of a submitted catalog file
type FileStatus string

const (
	FileStatusPending FileStatus = "PENDING"
	FileStatusDone    FileStatus = "DONE"
	FileStatusError   FileStatus = "ERROR"
)

// allowedFileTransitions lists every legal status change. ERROR -> PENDING is the only retry path.
var allowedFileTransitions = map[FileStatus][]FileStatus{
	FileStatusPending: {FileStatusDone, FileStatusError},
	FileStatusError:   {FileStatusPending},
}

// CatalogFile represents one supplier catalog submission
type CatalogFile struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FileName   string     `gorm:"type:varchar(500);not null" json:"file_name"`
	FileHash   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"file_hash"` // For idempotency
	StoredPath string     `gorm:"type:text" json:"stored_path"`
	OrderRef   string     `gorm:"type:varchar(100);index:idx_catalog_files_order" json:"order_ref"`
	SupplierID uuid.UUID  `gorm:"type:uuid;not null;index:idx_catalog_files_supplier" json:"supplier_id"`
	Status     FileStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_catalog_files_status" json:"status"`
	Message    string     `gorm:"type:text" json:"message,omitempty"`
	CreatedBy  string     `gorm:"type:varchar(255)" json:"created_by"`
	Created    time.Time  `gorm:"not null" json:"created"`
	Updated    time.Time  `gorm:"not null" json:"updated"`
}

// TableName specifies the table name for GORM
func (CatalogFile) TableName() string {
	return "catalog_files"
}

// BeforeCreate GORM hook - called before creating a record
func (f *CatalogFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Status == "" {
		f.Status = FileStatusPending
	}
	return nil
}

// ValidFileStatuses returns list of valid file statuses
func ValidFileStatuses() []FileStatus {
	return []FileStatus{FileStatusPending, FileStatusDone, FileStatusError}
}

// CanTransition reports whether a file may move from one status to another
func CanTransition(from, to FileStatus) bool {
	for _, s := range allowedFileTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MarkDone records a successful run
func (f CatalogFile) MarkDone(now time.Time) (CatalogFile, error) {
	return f.transition(FileStatusDone, "", now)
}

// MarkError records a failed run with the captured message
func (f CatalogFile) MarkError(message string, now time.Time) (CatalogFile, error) {
	return f.transition(FileStatusError, message, now)
}

// Retry resets a failed file so the whole file runs again
func (f CatalogFile) Retry(now time.Time) (CatalogFile, error) {
	return f.transition(FileStatusPending, "", now)
}

func (f CatalogFile) transition(to FileStatus, message string, now time.Time) (CatalogFile, error) {
	if !CanTransition(f.Status, to) {
		return f, apperrors.InvalidTransition(string(f.Status), string(to))
	}
	f.Status = to
	f.Message = message
	f.Updated = now
	return f, nil
}
