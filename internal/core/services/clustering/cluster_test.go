package clustering

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
)

var (
	now        = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	supplierID = uuid.New()
)

func link(title, hms string) domain.AgreementLink {
	return domain.AgreementLink{
		ID:          uuid.New(),
		SupplierID:  supplierID,
		SupplierRef: "R-" + hms,
		HmsArtNr:    hms,
		Title:       title,
		IsoCategory: "122203",
		Created:     now,
	}
}

func keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestSharedPrefix(t *testing.T) {
	tests := []struct {
		a, b   string
		want   string
		wantOK bool
	}{
		{"Rullestol A", "Rullestol B", "Rullestol", true},
		{"Rullestol Comfort 45", "Rullestol Comfort 50", "Rullestol Comfort", true},
		{"Rullestol", "Rullator", "", false},
		{"Pute X", "Rullestol A", "", false},
		{"Pute", "Pute", "Pute", true},
		{" Seng A", "Seng B ", "Seng", true},
		{"", "Seng", "", false},
		{"Økt sete A", "Økt sete B", "Økt sete", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			got, ok := SharedPrefix(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCluster_PrefixAndSingleton(t *testing.T) {
	links := []domain.AgreementLink{
		link("Pute X", "000003"),
		link("Rullestol B", "000002"),
		link("Rullestol A", "000001"),
	}

	groups, visited := Cluster(links, Visited{})

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"Pute X", "Rullestol"}, keys(groups))
	assert.Len(t, groups[0].Members, 1)
	require.Len(t, groups[1].Members, 2)
	assert.Equal(t, "Rullestol A", groups[1].Members[0].Title)
	assert.Len(t, visited, 3)
}

func TestCluster_VisitedIsNotMutated(t *testing.T) {
	skip := link("Rullestol C", "000009")
	in := Visited{skip.ID: {}}

	groups, out := Cluster([]domain.AgreementLink{skip, link("Rullestol A", "000001")}, in)

	assert.Len(t, in, 1, "input set must not change")
	assert.Len(t, out, 2)
	require.Len(t, groups, 1)
	assert.Equal(t, "Rullestol A", groups[0].Key, "visited link cannot join a cluster")
}

func TestEngine_NewSeriesForUnseriesedGroup(t *testing.T) {
	a := link("Rullestol A", "000001")
	a.Created = now.Add(time.Hour)
	b := link("Rullestol B", "000002")
	b.Created = now
	b.IsoCategory = ""

	result := NewEngine(nil).Run([]domain.AgreementLink{a, b}, now)

	require.Len(t, result.NewSeries, 1)
	series := result.NewSeries[0]
	assert.Equal(t, "Rullestol B", series.Title, "earliest created member names the series")
	assert.Equal(t, "122203", series.IsoCategory)
	assert.Equal(t, domain.AdminStatusPending, series.AdminStatus)
	assert.Equal(t, domain.EntityStatusActive, series.Status)

	require.Len(t, result.NewProducts, 2)
	for _, p := range result.NewProducts {
		assert.Equal(t, series.ID, *p.SeriesID)
		assert.Equal(t, supplierID, p.SupplierID)
	}

	require.Len(t, result.Links, 2)
	for _, l := range result.Links {
		assert.True(t, l.HasProduct())
		assert.Equal(t, series.ID, *l.SeriesID)
	}

	require.Len(t, result.Groups, 1)
	assert.True(t, result.Groups[0].NewSeries)
	assert.Equal(t, "Rullestol", result.Groups[0].Key)
}

func TestEngine_UnknownIsoCategory(t *testing.T) {
	a := link("Pute X", "000003")
	a.IsoCategory = ""

	result := NewEngine(nil).Run([]domain.AgreementLink{a}, now)

	require.Len(t, result.NewSeries, 1)
	assert.Equal(t, domain.IsoCategoryUnknown, result.NewSeries[0].IsoCategory)
}

func TestEngine_ExistingSeriesPropagated(t *testing.T) {
	existing := uuid.New()
	a := link("Rullestol A", "000001")
	b := link("Rullestol B", "000002")
	b.SeriesID = &existing

	result := NewEngine(nil).Run([]domain.AgreementLink{a, b}, now)

	assert.Empty(t, result.NewSeries)
	require.Len(t, result.Groups, 1)
	assert.False(t, result.Groups[0].NewSeries)
	assert.Equal(t, existing, result.Groups[0].SeriesID)
	for _, l := range result.Links {
		assert.Equal(t, existing, *l.SeriesID)
	}
}

func TestEngine_PartitionsMainAndParts(t *testing.T) {
	main := link("Rullestol A", "000001")
	part := link("Rullestol B", "000002")
	part.Accessory = true

	result := NewEngine(nil).Run([]domain.AgreementLink{main, part}, now)

	assert.Len(t, result.Groups, 2, "main and accessory links never share a cluster")
	assert.Len(t, result.NewSeries, 2)
}

func TestEngine_FannedOutLinksShareProduct(t *testing.T) {
	a := link("Pute", "000004")
	b := link("Pute", "000004")

	result := NewEngine(nil).Run([]domain.AgreementLink{a, b}, now)

	require.Len(t, result.NewProducts, 1)
	require.Len(t, result.Links, 2)
	assert.Equal(t, *result.Links[0].ProductID, *result.Links[1].ProductID)
}

func TestEngine_SkipsResolvedLinks(t *testing.T) {
	productID := uuid.New()
	resolved := link("Rullestol A", "000001")
	resolved.ProductID = &productID

	result := NewEngine(nil).Run([]domain.AgreementLink{resolved}, now)

	assert.Empty(t, result.Groups)
	assert.Empty(t, result.Links)
}
