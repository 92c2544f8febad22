package clustering

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
)

// GroupResult describes how one cluster was resolved
type GroupResult struct {
	Key       string      `json:"key"`
	LinkIDs   []uuid.UUID `json:"link_ids"`
	SeriesID  uuid.UUID   `json:"series_id"`
	NewSeries bool        `json:"new_series"`
}

// Result of one clustering pass. Nothing here is persisted by the engine.
type Result struct {
	Groups      []GroupResult          `json:"groups"`
	NewSeries   []domain.Series        `json:"new_series,omitempty"`
	NewProducts []domain.Product       `json:"new_products,omitempty"`
	Links       []domain.AgreementLink `json:"links"`
}

// Engine assigns series and products to links that have no product
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a clustering engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

type productKey struct {
	hmsArtNr   string
	supplierID uuid.UUID
}

// Run clusters main products and accessory/spare-part links separately and
// resolves each group to one series
func (e *Engine) Run(links []domain.AgreementLink, now time.Time) *Result {
	var mains, parts []domain.AgreementLink
	for _, l := range links {
		if l.HasProduct() {
			continue
		}
		if l.IsAccessoryOrSparePart() {
			parts = append(parts, l)
		} else {
			mains = append(mains, l)
		}
	}

	result := &Result{}
	products := make(map[productKey]domain.Product)

	visited := Visited{}
	for _, partition := range [][]domain.AgreementLink{mains, parts} {
		var groups []Group
		groups, visited = Cluster(partition, visited)
		for _, g := range groups {
			result.Groups = append(result.Groups, e.resolve(g, products, result, now))
		}
	}

	e.logger.Info("clustering completed",
		slog.Int("link_count", len(result.Links)),
		slog.Int("group_count", len(result.Groups)),
		slog.Int("new_series_count", len(result.NewSeries)),
		slog.Int("new_product_count", len(result.NewProducts)))

	return result
}

func (e *Engine) resolve(g Group, products map[productKey]domain.Product, result *Result, now time.Time) GroupResult {
	gr := GroupResult{Key: g.Key}

	var seriesID uuid.UUID
	for _, m := range g.Members {
		if m.HasSeries() {
			seriesID = *m.SeriesID
			break
		}
	}

	if seriesID == uuid.Nil {
		series := newSeries(g.Members, now)
		result.NewSeries = append(result.NewSeries, series)
		seriesID = series.ID
		gr.NewSeries = true
	}
	gr.SeriesID = seriesID

	for _, m := range g.Members {
		key := productKey{m.HmsArtNr, m.SupplierID}
		product, ok := products[key]
		if !ok {
			product = newProduct(m, seriesID, now)
			products[key] = product
			result.NewProducts = append(result.NewProducts, product)
		}
		link := m.WithProduct(product.ID, product.SeriesID, now)
		result.Links = append(result.Links, link)
		gr.LinkIDs = append(gr.LinkIDs, link.ID)
	}

	e.logger.Debug("cluster resolved",
		slog.String("key", g.Key),
		slog.Int("member_count", len(g.Members)),
		slog.Bool("new_series", gr.NewSeries))

	return gr
}

// newSeries titles the series after the earliest created member
func newSeries(members []domain.AgreementLink, now time.Time) domain.Series {
	earliest := members[0]
	for _, m := range members[1:] {
		if m.Created.Before(earliest.Created) {
			earliest = m
		}
	}

	iso := members[0].IsoCategory
	if iso == "" {
		iso = domain.IsoCategoryUnknown
	}

	return domain.Series{
		ID:          uuid.New(),
		SupplierID:  members[0].SupplierID,
		Title:       earliest.Title,
		IsoCategory: iso,
		AdminStatus: domain.AdminStatusPending,
		Status:      domain.EntityStatusActive,
		Created:     now,
		Updated:     now,
	}
}

func newProduct(link domain.AgreementLink, seriesID uuid.UUID, now time.Time) domain.Product {
	return domain.Product{
		ID:                    uuid.New(),
		SupplierID:            link.SupplierID,
		HmsArtNr:              link.HmsArtNr,
		SupplierRef:           link.SupplierRef,
		Title:                 link.Title,
		ArticleName:           link.ArticleName,
		SeriesID:              &seriesID,
		IsoCategory:           link.IsoCategory,
		AdminStatus:           domain.AdminStatusPending,
		Status:                domain.EntityStatusActive,
		Created:               now,
		Updated:               now,
		ArticleClassification: link.ArticleClassification,
	}
}
