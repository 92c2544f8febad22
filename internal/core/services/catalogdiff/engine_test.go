package catalogdiff

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

var (
	now        = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	supplierID = uuid.New()
)

func row(hms, title string) domain.CatalogRow {
	return domain.CatalogRow{
		ID:                 uuid.New(),
		OrderRef:           "ORD-1",
		HmsArtNr:           hms,
		Title:              title,
		SupplierID:         supplierID,
		SupplierName:       "Hjelpemidler AS",
		SupplierRef:        "R-" + hms,
		AgreementReference: "23-1234",
		DateFrom:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Created:            now,
		Updated:            now,
	}
}

// persisted simulates rows committed by an earlier run
func persisted(rows []domain.CatalogRow, at time.Time) []domain.CatalogRow {
	out := make([]domain.CatalogRow, len(rows))
	for i, r := range rows {
		r.ID = uuid.New()
		r.Created = at
		r.Updated = at
		out[i] = r
	}
	return out
}

func hmsSet(rows []domain.CatalogRow) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.HmsArtNr] = true
	}
	return out
}

func TestDiff_EmptyPrior(t *testing.T) {
	snapshot := []domain.CatalogRow{row("000001", "A"), row("000002", "B")}

	result, err := NewEngine(false, nil).Diff(snapshot, nil, now)
	require.NoError(t, err)

	assert.Len(t, result.Inserted, 2)
	assert.Empty(t, result.Updated)
	assert.Empty(t, result.Deactivated)
	assert.True(t, result.HasChanges())
}

func TestDiff_Partition(t *testing.T) {
	earlier := now.AddDate(0, -1, 0)
	prior := persisted([]domain.CatalogRow{
		row("000001", "A"),
		row("000002", "B"),
		row("000003", "C"),
	}, earlier)

	changed := row("000002", "B revised")
	snapshot := []domain.CatalogRow{row("000001", "A"), changed, row("000004", "D")}

	result, err := NewEngine(false, nil).Diff(snapshot, prior, now)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"000004": true}, hmsSet(result.Inserted))
	assert.Equal(t, map[string]bool{"000002": true}, hmsSet(result.Updated))
	assert.Equal(t, map[string]bool{"000003": true}, hmsSet(result.Deactivated))
	assert.Equal(t, 1, result.Unchanged)

	updated := result.Updated[0]
	assert.Equal(t, prior[1].ID, updated.ID)
	assert.Equal(t, earlier, updated.Created)
	assert.Equal(t, now, updated.Updated)
	assert.Equal(t, "B revised", updated.Title)

	closed := result.Deactivated[0]
	assert.Equal(t, prior[2].ID, closed.ID)
	assert.Equal(t, domain.Yesterday(now), closed.DateTo)

	// pairwise disjoint
	seen := map[string]int{}
	for _, r := range result.Changed() {
		seen[r.HmsArtNr]++
	}
	for hms, n := range seen {
		assert.Equal(t, 1, n, hms)
	}
}

func TestDiff_Idempotent(t *testing.T) {
	snapshot := []domain.CatalogRow{row("000001", "A"), row("000002", "B")}
	engine := NewEngine(false, nil)

	first, err := engine.Diff(snapshot, nil, now)
	require.NoError(t, err)

	committed := persisted(first.Inserted, now)
	again, err := engine.Diff([]domain.CatalogRow{row("000001", "A"), row("000002", "B")}, committed, now.Add(time.Hour))
	require.NoError(t, err)

	assert.False(t, again.HasChanges())
	assert.Equal(t, 2, again.Unchanged)
}

func TestDiff_AlreadyClosedNotDeactivatedAgain(t *testing.T) {
	gone := row("000009", "Z").Closed(now.AddDate(0, 0, -10))
	prior := []domain.CatalogRow{gone}

	result, err := NewEngine(false, nil).Diff([]domain.CatalogRow{row("000001", "A")}, prior, now)
	require.NoError(t, err)

	assert.Empty(t, result.Deactivated)
}

func TestDiff_ForceUpdate(t *testing.T) {
	prior := persisted([]domain.CatalogRow{row("000001", "A")}, now)

	result, err := NewEngine(true, nil).Diff([]domain.CatalogRow{row("000001", "A")}, prior, now)
	require.NoError(t, err)

	require.Len(t, result.Updated, 1)
	assert.Equal(t, prior[0].ID, result.Updated[0].ID)
}

func TestDiff_PreconditionFailures(t *testing.T) {
	mutated := func(mut func(r *domain.CatalogRow)) []domain.CatalogRow {
		second := row("000002", "B")
		mut(&second)
		return []domain.CatalogRow{row("000001", "A"), second}
	}

	tests := []struct {
		name     string
		snapshot []domain.CatalogRow
		contains string
	}{
		{"empty", nil, "empty"},
		{"mixed order", mutated(func(r *domain.CatalogRow) { r.OrderRef = "ORD-2" }), "order references"},
		{"mixed supplier", mutated(func(r *domain.CatalogRow) { r.SupplierName = "Other AS" }), "suppliers"},
		{"mixed agreement", mutated(func(r *domain.CatalogRow) { r.AgreementReference = "22-9999" }), "agreement references"},
		{"duplicate hms", mutated(func(r *domain.CatalogRow) { r.HmsArtNr = "000001" }), "listed twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(false, nil).Diff(tt.snapshot, nil, now)
			assert.True(t, apperrors.IsParseError(err))
			assert.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestDiff_SupplierNameComparedLoosely(t *testing.T) {
	second := row("000002", "B")
	second.SupplierName = "hjelpemidler  as"

	_, err := NewEngine(false, nil).Diff([]domain.CatalogRow{row("000001", "A"), second}, nil, now)
	assert.NoError(t, err)
}

func TestSummary(t *testing.T) {
	r := &Result{
		Inserted:    make([]domain.CatalogRow, 3),
		Deactivated: make([]domain.CatalogRow, 1),
		Unchanged:   5,
	}
	assert.Equal(t, Summary{Inserted: 3, Deactivated: 1, Unchanged: 5}, r.Summary())
	assert.Len(t, r.Changed(), 4)
}
