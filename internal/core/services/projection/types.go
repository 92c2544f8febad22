package projection

import (
	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
)

// RowKind tells the projector which diff list a row came from
type RowKind string

const (
	RowInserted    RowKind = "inserted"
	RowUpdated     RowKind = "updated"
	RowDeactivated RowKind = "deactivated"
)

// Config for the projector
type Config struct {
	// AllowMissingMainProducts defers main-product rows without a registered
	// product to clustering, like accessory and spare-part rows
	AllowMissingMainProducts bool
}

// Result lists every link touched by one projection run
type Result struct {
	Inserted      []domain.AgreementLink `json:"inserted"`
	Updated       []domain.AgreementLink `json:"updated"`
	Deactivated   []domain.AgreementLink `json:"deactivated"`
	NewSubClauses []domain.SubClause     `json:"new_sub_clauses,omitempty"`
	Skipped       int                    `json:"skipped"`
}

// Unresolved returns inserted and updated links that still lack a product
func (r *Result) Unresolved() []domain.AgreementLink {
	var out []domain.AgreementLink
	for _, list := range [][]domain.AgreementLink{r.Inserted, r.Updated} {
		for _, l := range list {
			if !l.HasProduct() {
				out = append(out, l)
			}
		}
	}
	return out
}

// Replace swaps in links rewritten after projection, matched by id
func (r *Result) Replace(links []domain.AgreementLink) {
	byID := make(map[uuid.UUID]domain.AgreementLink, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}
	for _, list := range [][]domain.AgreementLink{r.Inserted, r.Updated, r.Deactivated} {
		for i, l := range list {
			if repl, ok := byID[l.ID]; ok {
				list[i] = repl
			}
		}
	}
}
