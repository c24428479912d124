package amazon

import "github.com/shopsense/backend/internal/domain"

// MockProducts returns the canned products served when scraping yields nothing
func MockProducts() []domain.Product {
	return []domain.Product{
		mockProduct("B08N5WRWNW", "YETI Rambler 36 oz Vacuum Insulated Stainless Steel Bottle", 50.00, 4.8, 12543,
			"https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=400"),
		mockProduct("B07VNSVY31", "Hydro Flask Water Bottle - Stainless Steel Insulated", 44.95, 4.7, 8932,
			"https://images.unsplash.com/photo-1523362628745-0c100150b504?w=400"),
		mockProduct("B09KLJN3TR", "CamelBak Chute Mag BPA Free Water Bottle - 32 oz", 35.00, 4.6, 5421,
			"https://images.unsplash.com/photo-1590879491867-b8e2e5e5b1c2?w=400"),
		mockProduct("B083QDVPS1", "Nalgene Tritan Wide Mouth BPA-Free Water Bottle", 12.99, 4.5, 3456,
			"https://images.unsplash.com/photo-1612464040571-d4ed9b7eb579?w=400"),
	}
}

func mockProduct(asin, title string, price, rating float64, reviews int, image string) domain.Product {
	return domain.Product{
		ID:          asin,
		ASIN:        asin,
		Title:       title,
		Price:       price,
		Rating:      rating,
		ReviewCount: reviews,
		ImageURL:    image,
		AmazonLink:  ProductLink(asin),
	}
}
