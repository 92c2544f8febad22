package clustering

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
)

// Visited is the set of link ids already assigned to a cluster
type Visited map[uuid.UUID]struct{}

// Clone returns an independent copy
func (v Visited) Clone() Visited {
	out := make(Visited, len(v))
	for id := range v {
		out[id] = struct{}{}
	}
	return out
}

// Has reports whether id was already assigned
func (v Visited) Has(id uuid.UUID) bool {
	_, ok := v[id]
	return ok
}

// Group is one transient cluster of links sharing a title prefix
type Group struct {
	Key     string
	Members []domain.AgreementLink
}

// Cluster greedily groups links by shared title prefix. Links already in visited
// are ignored. The input set is not modified; the returned set adds every link
// assigned here.
func Cluster(links []domain.AgreementLink, visited Visited) ([]Group, Visited) {
	seen := visited.Clone()

	sorted := append([]domain.AgreementLink(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Title < sorted[j].Title })

	var groups []Group
	for i, c := range sorted {
		if seen.Has(c.ID) {
			continue
		}
		seen[c.ID] = struct{}{}
		group := Group{Members: []domain.AgreementLink{c}}

		for _, o := range sorted[i+1:] {
			if seen.Has(o.ID) {
				continue
			}
			key, ok := SharedPrefix(c.Title, o.Title)
			if !ok {
				continue
			}
			if group.Key == "" {
				group.Key = key
			}
			group.Members = append(group.Members, o)
			seen[o.ID] = struct{}{}
		}

		if group.Key == "" {
			group.Key = strings.TrimSpace(c.Title)
		}
		groups = append(groups, group)
	}
	return groups, seen
}

// SharedPrefix returns the longest common leading run of two titles. It is only
// accepted when it ends a whole word, i.e. a space follows a non-space inside the
// run, or when both titles are identical.
func SharedPrefix(a, b string) (string, bool) {
	ta, tb := strings.TrimSpace(a), strings.TrimSpace(b)
	if ta == "" || tb == "" {
		return "", false
	}
	if ta == tb {
		return ta, true
	}

	ra, rb := []rune(ta), []rune(tb)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	prefix := ra[:n]

	wordSeen := false
	for _, r := range prefix {
		if unicode.IsSpace(r) {
			if wordSeen {
				return strings.TrimSpace(string(prefix)), true
			}
			continue
		}
		wordSeen = true
	}
	return "", false
}
