package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// CleanText trims a cell and brings it to NFC form
func CleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// StripSpace removes every whitespace rune
func StripSpace(s string) string {
	out, _, err := transform.String(runes.Remove(runes.In(unicode.White_Space)), s)
	if err != nil {
		return strings.Join(strings.Fields(s), "")
	}
	return out
}

// MatchKey is the comparison form of free text: whitespace removed, NFC, case-folded
func MatchKey(s string) string {
	return folder.String(norm.NFC.String(StripSpace(s)))
}

// containsFold is a case-insensitive substring test
func containsFold(s, substr string) bool {
	return strings.Contains(folder.String(s), folder.String(substr))
}
