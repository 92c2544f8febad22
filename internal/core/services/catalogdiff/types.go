package catalogdiff

import "github.com/hmreg/catalog-reconciler/internal/core/domain"

// Result partitions a snapshot against the persisted rows of its order.
// Every hmsArtNr appears in at most one list.
type Result struct {
	OrderRef    string              `json:"order_ref"`
	Inserted    []domain.CatalogRow `json:"inserted"`
	Updated     []domain.CatalogRow `json:"updated"`
	Deactivated []domain.CatalogRow `json:"deactivated"`
	Unchanged   int                 `json:"unchanged"`
}

// Summary holds list sizes for logging and reports
type Summary struct {
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
	Unchanged   int `json:"unchanged"`
}

// Summary counts each list
func (r *Result) Summary() Summary {
	return Summary{
		Inserted:    len(r.Inserted),
		Updated:     len(r.Updated),
		Deactivated: len(r.Deactivated),
		Unchanged:   r.Unchanged,
	}
}

// HasChanges reports whether anything must be written
func (r *Result) HasChanges() bool {
	return len(r.Inserted)+len(r.Updated)+len(r.Deactivated) > 0
}

// Changed returns inserted, updated and deactivated rows in that order
func (r *Result) Changed() []domain.CatalogRow {
	out := make([]domain.CatalogRow, 0, len(r.Inserted)+len(r.Updated)+len(r.Deactivated))
	out = append(out, r.Inserted...)
	out = append(out, r.Updated...)
	return append(out, r.Deactivated...)
}
