package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

const (
	labelMainProduct = "hj.middel"
	labelHmsPart     = "hms del"
	labelService     = "servicetjeneste"
	changeYes        = "ja"
	changeNo         = "nei"
)

// subClausePattern matches one (post, rank) assignment. The letter class skips
// "r" so "2r3" reads as post 2, rank 3.
var subClausePattern = regexp.MustCompile(`(?i)(?:delkontrakt|post|d)?(\d+)([a-qs-z]*)(?:r(\d*))?[,/;]?`)

// NormalizeHmsArtNr drops everything from the first "." and left-pads the number to six digits
func NormalizeHmsArtNr(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", apperrors.ParseErrorf("invalid HMS article number %q", raw)
	}
	return fmt.Sprintf("%06d", n), nil
}

// ClassifyArticleType derives the classification flags from the article type and
// functional change labels. A label that matches no rule is an Unclassified error;
// callers decide whether that is fatal.
func ClassifyArticleType(typeLabel, changeLabel string) (domain.ArticleClassification, error) {
	hmsPart := containsFold(typeLabel, labelHmsPart)
	main := containsFold(typeLabel, labelMainProduct)

	c := domain.ArticleClassification{
		MainProduct: main,
		Accessory:   (hmsPart || main) && containsFold(changeLabel, changeYes),
		SparePart:   hmsPart && containsFold(changeLabel, changeNo),
		Service:     containsFold(typeLabel, labelService),
	}
	if c.IsZero() {
		return c, apperrors.Unclassified(typeLabel)
	}
	return c, nil
}

// ParseSubClauseCode reads every (post, rank) pair of a sub-clause cell, left to right.
// A blank cell means no explicit sub-clause and yields an empty list.
func ParseSubClauseCode(raw string) ([]SubClauseRef, error) {
	s := StripSpace(raw)
	if s == "" {
		return nil, nil
	}

	matches := subClausePattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil, apperrors.ParseErrorf("invalid sub-clause code %q", raw)
	}

	refs := make([]SubClauseRef, 0, len(matches))
	for _, m := range matches {
		rank, err := strconv.Atoi(m[3])
		if err != nil {
			rank = domain.DefaultRank
		}
		refs = append(refs, SubClauseRef{
			PostCode: m[1] + strings.ToUpper(m[2]),
			Rank:     rank,
		})
	}
	return refs, nil
}
