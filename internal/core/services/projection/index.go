package projection

import (
	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
)

type productKey struct {
	hmsArtNr   string
	supplierID uuid.UUID
}

type placementKey struct {
	productID   uuid.UUID
	agreementID uuid.UUID
	subClauseID uuid.UUID
}

// Index is the in-memory lookup over the run-start state. The projector adds the
// sub-clauses and links it creates so later rows of the same run see them.
type Index struct {
	products    map[productKey]domain.Product
	agreements  []domain.Agreement
	subClauses  map[uuid.UUID][]domain.SubClause
	links       []domain.AgreementLink
	byID        map[uuid.UUID]int
	byPlacement map[placementKey]int
	byKey       map[domain.LinkKey]int
}

// NewIndex builds an index. Inputs are copied; the caller's slices are never modified.
func NewIndex(products []domain.Product, agreements []domain.Agreement, subClauses []domain.SubClause, links []domain.AgreementLink) *Index {
	idx := &Index{
		products:    make(map[productKey]domain.Product, len(products)),
		agreements:  append([]domain.Agreement(nil), agreements...),
		subClauses:  make(map[uuid.UUID][]domain.SubClause),
		byID:        make(map[uuid.UUID]int, len(links)),
		byPlacement: make(map[placementKey]int, len(links)),
		byKey:       make(map[domain.LinkKey]int, len(links)),
	}
	for _, p := range products {
		idx.products[productKey{p.HmsArtNr, p.SupplierID}] = p
	}
	for _, sc := range subClauses {
		idx.addSubClause(sc)
	}
	for _, l := range links {
		idx.putLink(l)
	}
	return idx
}

// Agreements returns the indexed agreements
func (idx *Index) Agreements() []domain.Agreement {
	return idx.agreements
}

// Product looks a product up by its business key
func (idx *Index) Product(hmsArtNr string, supplierID uuid.UUID) (domain.Product, bool) {
	p, ok := idx.products[productKey{hmsArtNr, supplierID}]
	return p, ok
}

// SubClause finds a numbered sub-clause of an agreement by post code
func (idx *Index) SubClause(agreementID uuid.UUID, postCode string) (domain.SubClause, bool) {
	want := normalizer.MatchKey(postCode)
	for _, sc := range idx.subClauses[agreementID] {
		if sc.Kind != domain.SubClauseKindNoPost && normalizer.MatchKey(sc.Code) == want {
			return sc, true
		}
	}
	return domain.SubClause{}, false
}

// NoSubClause finds the "no sub-clause" grouping of an agreement
func (idx *Index) NoSubClause(agreementID uuid.UUID) (domain.SubClause, bool) {
	for _, sc := range idx.subClauses[agreementID] {
		if sc.Kind == domain.SubClauseKindNoPost {
			return sc, true
		}
	}
	return domain.SubClause{}, false
}

func (idx *Index) addSubClause(sc domain.SubClause) {
	idx.subClauses[sc.AgreementID] = append(idx.subClauses[sc.AgreementID], sc)
}

// findLink matches by placement when the product is known, then by business key
func (idx *Index) findLink(productID *uuid.UUID, key domain.LinkKey) (domain.AgreementLink, bool) {
	if productID != nil {
		if i, ok := idx.byPlacement[placementKey{*productID, key.AgreementID, key.Post}]; ok {
			return idx.links[i], true
		}
	}
	if i, ok := idx.byKey[key]; ok {
		return idx.links[i], true
	}
	return domain.AgreementLink{}, false
}

// ownedLinks lists the links one article holds on an agreement: by product when
// both sides know it, by supplier reference otherwise
func (idx *Index) ownedLinks(productID *uuid.UUID, supplierID uuid.UUID, supplierRef string, agreementID uuid.UUID) []domain.AgreementLink {
	var out []domain.AgreementLink
	for _, l := range idx.links {
		if l.AgreementID != agreementID {
			continue
		}
		owned := l.SupplierID == supplierID && l.SupplierRef == supplierRef
		if productID != nil && l.HasProduct() {
			owned = *l.ProductID == *productID
		}
		if owned {
			out = append(out, l)
		}
	}
	return out
}

// putLink inserts a link or replaces the one with the same id, re-keying it
func (idx *Index) putLink(l domain.AgreementLink) {
	if i, ok := idx.byID[l.ID]; ok {
		old := idx.links[i]
		delete(idx.byKey, old.Key())
		if old.HasProduct() {
			delete(idx.byPlacement, placementKey{*old.ProductID, old.AgreementID, old.SubClauseID})
		}
		idx.links[i] = l
		idx.keyLink(i)
		return
	}
	idx.links = append(idx.links, l)
	idx.byID[l.ID] = len(idx.links) - 1
	idx.keyLink(len(idx.links) - 1)
}

func (idx *Index) keyLink(i int) {
	l := idx.links[i]
	idx.byKey[l.Key()] = i
	if l.HasProduct() {
		idx.byPlacement[placementKey{*l.ProductID, l.AgreementID, l.SubClauseID}] = i
	}
}
