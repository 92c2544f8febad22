package catalogdiff

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// Engine computes the three-way diff of a catalog snapshot
type Engine struct {
	forceUpdate bool
	logger      *slog.Logger
}

// NewEngine creates a diff engine. With forceUpdate every matched row counts as updated.
func NewEngine(forceUpdate bool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{forceUpdate: forceUpdate, logger: logger}
}

// Diff compares a full snapshot of one order with the rows persisted for it
func (e *Engine) Diff(snapshot, prior []domain.CatalogRow, now time.Time) (*Result, error) {
	orderRef, err := validateSnapshot(snapshot)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]domain.CatalogRow, len(prior))
	for _, p := range prior {
		if p.OrderRef != orderRef {
			continue
		}
		existing[p.HmsArtNr] = p
	}

	result := &Result{OrderRef: orderRef}
	seen := make(map[string]struct{}, len(snapshot))

	for _, row := range snapshot {
		seen[row.HmsArtNr] = struct{}{}

		old, ok := existing[row.HmsArtNr]
		switch {
		case !ok:
			result.Inserted = append(result.Inserted, row)
		case e.forceUpdate || !row.SameContent(old):
			result.Updated = append(result.Updated, row.WithIdentityOf(old, now))
		default:
			result.Unchanged++
		}
	}

	var gone []domain.CatalogRow
	for hms, old := range existing {
		if _, ok := seen[hms]; ok || old.IsClosed(now) {
			continue
		}
		gone = append(gone, old.Closed(now))
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].HmsArtNr < gone[j].HmsArtNr })
	result.Deactivated = gone

	s := result.Summary()
	e.logger.Info("catalog diff computed",
		slog.String("order_ref", orderRef),
		slog.Int("inserted_count", s.Inserted),
		slog.Int("updated_count", s.Updated),
		slog.Int("deactivated_count", s.Deactivated),
		slog.Int("unchanged_count", s.Unchanged),
		slog.Bool("force_update", e.forceUpdate))

	return result, nil
}

// validateSnapshot rejects empty, mixed or duplicated snapshots and returns the order reference
func validateSnapshot(snapshot []domain.CatalogRow) (string, error) {
	if len(snapshot) == 0 {
		return "", apperrors.ParseError("catalog snapshot is empty")
	}

	first := snapshot[0]
	supplierKey := normalizer.MatchKey(first.SupplierName)
	agreementKey := normalizer.MatchKey(first.AgreementReference)
	hms := make(map[string]int, len(snapshot))

	for _, row := range snapshot {
		if row.OrderRef != first.OrderRef {
			return "", apperrors.ParseErrorf("snapshot mixes order references %q and %q", first.OrderRef, row.OrderRef)
		}
		if normalizer.MatchKey(row.SupplierName) != supplierKey {
			return "", apperrors.ParseErrorf("snapshot mixes suppliers %q and %q", first.SupplierName, row.SupplierName)
		}
		if normalizer.MatchKey(row.AgreementReference) != agreementKey {
			return "", apperrors.ParseErrorf("snapshot mixes agreement references %q and %q", first.AgreementReference, row.AgreementReference)
		}
		if at, dup := hms[row.HmsArtNr]; dup {
			return "", apperrors.ParseErrorf("HMS article number %s listed twice (rows %d and %d)", row.HmsArtNr, at, row.RowNumber)
		}
		hms[row.HmsArtNr] = row.RowNumber
	}

	return first.OrderRef, nil
}
