package usecase

import (
	"cmp"
	"slices"

	"github.com/shopsense/backend/internal/domain"
)

// relaxedMinReviews is the review floor of the relaxed rule
const relaxedMinReviews = 10

// FilterRule is one rung of the relaxation ladder
type FilterRule struct {
	Name string
	Keep func(p domain.Product, f domain.SearchFilters) bool
}

// RelaxationLadder lists the filter rules from strictest to none. The first
// rule that keeps at least one product wins.
var RelaxationLadder = []FilterRule{
	{
		Name: "strict",
		Keep: func(p domain.Product, f domain.SearchFilters) bool {
			return p.Rating >= f.MinRating && p.ReviewCount >= f.MinReviews
		},
	},
	{
		Name: "relaxed",
		Keep: func(p domain.Product, _ domain.SearchFilters) bool {
			return p.ReviewCount > relaxedMinReviews || p.Rating > 0
		},
	},
	{
		Name: "unfiltered",
		Keep: func(domain.Product, domain.SearchFilters) bool { return true },
	},
}

// ApplyFilters walks the ladder and returns the first non-empty selection with
// the name of the rule that produced it. Empty input yields an empty result.
func ApplyFilters(products []domain.Product, filters domain.SearchFilters) ([]domain.Product, string) {
	if len(products) == 0 {
		return []domain.Product{}, ""
	}
	for _, rule := range RelaxationLadder {
		kept := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if rule.Keep(p, filters) {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			return kept, rule.Name
		}
	}
	// unreachable while the ladder ends with an accept-all rule
	return products, "unfiltered"
}

// compareRelevance orders by relevance, rating, review count (all descending)
// and finally ASIN so equal products always land in the same order
func compareRelevance(a, b domain.Product) int {
	if c := cmp.Compare(b.RelevanceScore, a.RelevanceScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ReviewCount, a.ReviewCount); c != 0 {
		return c
	}
	return cmp.Compare(a.ASIN, b.ASIN)
}

// SortByRelevance sorts products in place, relevance first
func SortByRelevance(products []domain.Product) {
	slices.SortStableFunc(products, compareRelevance)
}

// Truncate keeps at most limit products. A non-positive limit keeps none.
func Truncate(products []domain.Product, limit int) []domain.Product {
	if limit <= 0 {
		return products[:0]
	}
	if len(products) > limit {
		return products[:limit]
	}
	return products
}

// presentationOrders maps a sort option to its primary key. Ties fall back to
// compareRelevance.
var presentationOrders = map[string]func(a, b domain.Product) int{
	domain.SortPriceHigh:   func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) },
	domain.SortPriceLow:    func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) },
	domain.SortRatingHigh:  func(a, b domain.Product) int { return cmp.Compare(b.Rating, a.Rating) },
	domain.SortRatingLow:   func(a, b domain.Product) int { return cmp.Compare(a.Rating, b.Rating) },
	domain.SortReviewsHigh: func(a, b domain.Product) int { return cmp.Compare(b.ReviewCount, a.ReviewCount) },
	domain.SortReviewsLow:  func(a, b domain.Product) int { return cmp.Compare(a.ReviewCount, b.ReviewCount) },
}

// IsValidSort reports whether option is a known sort option
func IsValidSort(option string) bool {
	_, ok := presentationOrders[option]
	return ok || option == domain.SortRelevance
}

// ApplyPresentation applies the price window and the requested ordering to a
// copy of products, then caps the result at MaxResults. Unknown sort options
// order by relevance.
func ApplyPresentation(products []domain.Product, filters domain.SearchFilters) []domain.Product {
	shown := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Price >= filters.PriceMin && p.Price <= filters.PriceMax {
			shown = append(shown, p)
		}
	}

	primary, ok := presentationOrders[filters.SortBy]
	if !ok {
		SortByRelevance(shown)
	} else {
		slices.SortStableFunc(shown, func(a, b domain.Product) int {
			if c := primary(a, b); c != 0 {
				return c
			}
			return compareRelevance(a, b)
		})
	}

	return Truncate(shown, filters.MaxResults)
}
