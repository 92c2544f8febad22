package projection

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

type change int

const (
	changeInserted change = iota
	changeUpdated
	changeDeactivated
)

type placement struct {
	subClause domain.SubClause
	rank      int
}

// Projector fans diffed catalog rows out into agreement links. One projector
// serves one reconciliation run.
type Projector struct {
	index  *Index
	config Config
	now    time.Time
	logger *slog.Logger

	agreements    map[string]domain.Agreement
	order         []uuid.UUID
	touched       map[uuid.UUID]change
	newSubClauses []domain.SubClause
	skipped       int
}

// New creates a projector over the run-start index
func New(index *Index, config Config, now time.Time, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		index:      index,
		config:     config,
		now:        now,
		logger:     logger,
		agreements: make(map[string]domain.Agreement),
		touched:    make(map[uuid.UUID]change),
	}
}

// ProjectRow turns one diffed row into one link per sub-clause assignment.
// Everything is resolved before the index changes, so a failing row leaves no trace.
func (p *Projector) ProjectRow(row domain.CatalogRow, kind RowKind) error {
	agreement, err := p.agreement(row.AgreementReference)
	if err != nil {
		return rowError(row, err)
	}

	refs, err := normalizer.ParseSubClauseCode(row.SubClauseCode)
	if err != nil {
		return rowError(row, err)
	}

	var productID *uuid.UUID
	product, hasProduct := p.index.Product(row.HmsArtNr, row.SupplierID)
	if hasProduct {
		productID = &product.ID
	}

	if kind == RowDeactivated {
		p.deactivate(row, agreement, refs, productID)
		return nil
	}

	if !hasProduct && !p.deferrable(row) {
		return rowError(row, fmt.Errorf("product must exist before agreement import: %w",
			apperrors.NotFound("product", row.HmsArtNr)))
	}

	placements, err := p.placements(agreement, refs)
	if err != nil {
		return rowError(row, err)
	}

	kept := make(map[uuid.UUID]struct{}, len(placements))
	for _, pl := range placements {
		key := domain.LinkKey{
			SupplierID:  row.SupplierID,
			SupplierRef: row.SupplierRef,
			AgreementID: agreement.ID,
			Post:        pl.subClause.ID,
			Rank:        pl.rank,
		}

		link, found := p.index.findLink(productID, key)
		if !found {
			link = domain.AgreementLink{ID: uuid.New(), Created: p.now}
		}

		var prod *domain.Product
		if hasProduct {
			prod = &product
		}
		link = projectLink(link, row, agreement, pl, prod, p.now)

		p.index.putLink(link)
		kept[link.ID] = struct{}{}
		if found {
			p.touch(link.ID, changeUpdated)
		} else {
			p.touch(link.ID, changeInserted)
		}
	}

	if kind == RowUpdated {
		p.retireDropped(row, agreement.ID, productID, kept)
	}
	return nil
}

// Result collects every link touched so far, in first-touch order
func (p *Projector) Result() *Result {
	result := &Result{
		NewSubClauses: append([]domain.SubClause(nil), p.newSubClauses...),
		Skipped:       p.skipped,
	}
	for _, id := range p.order {
		link := p.index.links[p.index.byID[id]]
		switch p.touched[id] {
		case changeInserted:
			result.Inserted = append(result.Inserted, link)
		case changeUpdated:
			result.Updated = append(result.Updated, link)
		case changeDeactivated:
			result.Deactivated = append(result.Deactivated, link)
		}
	}
	return result
}

func (p *Projector) deferrable(row domain.CatalogRow) bool {
	return row.IsAccessoryOrSparePart() || p.config.AllowMissingMainProducts
}

func (p *Projector) agreement(reference string) (domain.Agreement, error) {
	key := normalizer.MatchKey(reference)
	if a, ok := p.agreements[key]; ok {
		return a, nil
	}
	a, err := MatchAgreement(reference, p.index.Agreements())
	if err != nil {
		return domain.Agreement{}, err
	}
	p.agreements[key] = a
	return a, nil
}

// placements resolves every sub-clause of a row. An empty code list lands in the
// agreement's "no sub-clause" grouping, created at most once per agreement.
func (p *Projector) placements(agreement domain.Agreement, refs []normalizer.SubClauseRef) ([]placement, error) {
	if len(refs) == 0 {
		sc, ok := p.index.NoSubClause(agreement.ID)
		if !ok {
			sc = domain.NewNoSubClause(agreement.ID, p.now)
			p.index.addSubClause(sc)
			p.newSubClauses = append(p.newSubClauses, sc)
		}
		return []placement{{subClause: sc, rank: domain.DefaultRank}}, nil
	}

	out := make([]placement, 0, len(refs))
	for _, ref := range refs {
		sc, ok := p.index.SubClause(agreement.ID, ref.PostCode)
		if !ok {
			return nil, apperrors.NotFound("sub-clause", agreement.Reference+"/"+ref.PostCode)
		}
		out = append(out, placement{subClause: sc, rank: ref.Rank})
	}
	return out, nil
}

// deactivate closes every existing link of a removed row. Links that cannot be
// found have nothing to close.
func (p *Projector) deactivate(row domain.CatalogRow, agreement domain.Agreement, refs []normalizer.SubClauseRef, productID *uuid.UUID) {
	var candidates []placement
	if len(refs) == 0 {
		if sc, ok := p.index.NoSubClause(agreement.ID); ok {
			candidates = append(candidates, placement{subClause: sc, rank: domain.DefaultRank})
		}
	}
	for _, ref := range refs {
		if sc, ok := p.index.SubClause(agreement.ID, ref.PostCode); ok {
			candidates = append(candidates, placement{subClause: sc, rank: ref.Rank})
		}
	}

	closed := 0
	for _, pl := range candidates {
		key := domain.LinkKey{
			SupplierID:  row.SupplierID,
			SupplierRef: row.SupplierRef,
			AgreementID: agreement.ID,
			Post:        pl.subClause.ID,
			Rank:        pl.rank,
		}
		link, found := p.index.findLink(productID, key)
		if !found {
			continue
		}
		p.index.putLink(link.Deactivated(p.now))
		p.touch(link.ID, changeDeactivated)
		closed++
	}

	if closed == 0 {
		p.skipped++
		p.logger.Debug("no link to deactivate",
			slog.String("hms_art_nr", row.HmsArtNr),
			slog.String("agreement", agreement.Reference))
	}
}

// retireDropped closes the links an updated row held under sub-clauses it no
// longer lists. Links claimed by another row of this run are left alone.
func (p *Projector) retireDropped(row domain.CatalogRow, agreementID uuid.UUID, productID *uuid.UUID, kept map[uuid.UUID]struct{}) {
	for _, link := range p.index.ownedLinks(productID, row.SupplierID, row.SupplierRef, agreementID) {
		if _, ok := kept[link.ID]; ok {
			continue
		}
		if _, ok := p.touched[link.ID]; ok {
			continue
		}
		if link.Status == domain.LinkStatusInactive && !link.Expired.After(p.now) {
			continue
		}
		p.index.putLink(link.Deactivated(p.now))
		p.touch(link.ID, changeDeactivated)
	}
}

func (p *Projector) touch(id uuid.UUID, c change) {
	prev, seen := p.touched[id]
	if !seen {
		p.order = append(p.order, id)
		p.touched[id] = c
		return
	}
	if prev != changeInserted {
		p.touched[id] = c
	}
}

// projectLink copies the row's current state onto a link
func projectLink(link domain.AgreementLink, row domain.CatalogRow, agreement domain.Agreement, pl placement, product *domain.Product, now time.Time) domain.AgreementLink {
	expired := row.DateTo
	if expired.IsZero() {
		expired = agreement.Expired
	}

	link.SupplierID = row.SupplierID
	link.SupplierRef = row.SupplierRef
	link.AgreementID = agreement.ID
	link.SubClauseID = pl.subClause.ID
	link.Rank = pl.rank
	link.HmsArtNr = row.HmsArtNr
	link.Reference = agreement.Reference
	link.Title = row.Title
	link.ArticleName = row.ArticleName
	link.IsoCategory = row.IsoCategory
	link.Published = row.DateFrom
	link.Expired = expired
	link.Status = domain.DeriveLinkStatus(agreement.DraftStatus, row.DateFrom, expired, now)
	link.ArticleClassification = row.ArticleClassification
	if product != nil {
		link = link.WithProduct(product.ID, product.SeriesID, now)
	}
	link.Updated = now
	return link
}

func rowError(row domain.CatalogRow, err error) error {
	return fmt.Errorf("row %d (hms %s): %w", row.RowNumber, row.HmsArtNr, err)
}
