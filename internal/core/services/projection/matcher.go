package projection

import (
	"strings"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// ReferenceMatcher decides whether an agreement reference matches a row reference.
// Both arguments are already in normalizer.MatchKey form.
type ReferenceMatcher struct {
	Name  string
	Match func(agreementKey, rowKey string) bool
}

// ReferenceMatchers in precedence order. The first tier with any candidate wins.
var ReferenceMatchers = []ReferenceMatcher{
	{Name: "exact", Match: func(a, r string) bool { return a == r }},
	{Name: "agreement_contains_row", Match: strings.Contains},
	{Name: "row_contains_agreement", Match: func(a, r string) bool { return strings.Contains(r, a) }},
}

// MatchAgreement resolves a row's agreement reference. Deleted agreements are
// skipped when a live one matches at the same tier; more than one live candidate
// is ambiguous, and a tier matching only deleted agreements fails.
func MatchAgreement(reference string, agreements []domain.Agreement) (domain.Agreement, error) {
	rowKey := normalizer.MatchKey(reference)
	if rowKey == "" {
		return domain.Agreement{}, apperrors.ParseError("agreement reference is empty")
	}

	for _, m := range ReferenceMatchers {
		var candidates []domain.Agreement
		for _, a := range agreements {
			agreementKey := normalizer.MatchKey(a.Reference)
			if agreementKey != "" && m.Match(agreementKey, rowKey) {
				candidates = append(candidates, a)
			}
		}

		if len(candidates) == 0 {
			continue
		}

		var live []domain.Agreement
		for _, c := range candidates {
			if !c.IsDeleted() {
				live = append(live, c)
			}
		}

		switch len(live) {
		case 0:
			return domain.Agreement{}, apperrors.AgreementDeleted(candidates[0].Reference)
		case 1:
			return live[0], nil
		default:
			refs := make([]string, len(live))
			for i, c := range live {
				refs[i] = c.Reference
			}
			return domain.Agreement{}, apperrors.AmbiguousReference(reference, refs)
		}
	}

	return domain.Agreement{}, apperrors.NotFound("agreement", reference)
}
