package search

import (
	"strings"

	"findonlu-backend/internal/domain"
)

// Facet narrows lost-found results by kind. Other categories ignore it.
type Facet string

const (
	FacetAll   Facet = "all"
	FacetLost  Facet = "lost"
	FacetFound Facet = "found"
)

// ParseFacet maps a query value to a Facet. Empty means all.
func ParseFacet(s string) (Facet, error) {
	switch Facet(strings.ToLower(strings.TrimSpace(s))) {
	case "", FacetAll:
		return FacetAll, nil
	case FacetLost:
		return FacetLost, nil
	case FacetFound:
		return FacetFound, nil
	}
	verr := domain.NewValidationError()
	verr.Add("type", "Type filter must be all, lost or found")
	return "", verr
}

// Filter keeps items whose title or description contains query (case-insensitive)
// and that match facet. Input order is preserved and items is not modified.
func Filter[T domain.Listing](items []T, query string, facet Facet) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if matchesQuery(it, q) && matchesFacet(it, facet) {
			out = append(out, it)
		}
	}
	return out
}

func matchesQuery(l domain.Listing, q string) bool {
	if q == "" {
		return true
	}
	b := l.Base()
	return strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Description), q)
}

func matchesFacet(l domain.Listing, f Facet) bool {
	if f == "" || f == FacetAll {
		return true
	}
	lf, ok := l.(*domain.LostFoundItem)
	if !ok {
		return true
	}
	return string(lf.Kind) == string(f)
}
