package domain

import "time"

// Product represents a single marketplace listing extracted from a search results page
type Product struct {
	ID             string   `json:"id"`
	ASIN           string   `json:"asin"`
	Title          string   `json:"title"`
	Price          float64  `json:"price"`
	Rating         float64  `json:"rating"`      // 0 means unknown
	ReviewCount    int      `json:"reviewCount"` // 0 means unknown
	ImageURL       string   `json:"imageUrl"`
	AmazonLink     string   `json:"amazonLink"`
	RelevanceScore int      `json:"relevanceScore"`
	Reviews        []Review `json:"reviews,omitempty"`
}

// IsRetainable reports whether the product carries enough data to be shown.
// A product needs a title, a positive price and at least one rating signal.
func (p Product) IsRetainable() bool {
	return p.Title != "" && p.Price > 0 && (p.Rating > 0 || p.ReviewCount > 0)
}

// Review represents a customer review attached to a product
type Review struct {
	Rating   float64 `json:"rating"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Reviewer string  `json:"reviewer"`
	Date     string  `json:"date"` // "Jan 2, 2006", "Recent" or "N/A"
}

// CacheEntry is a stored search result keyed by the normalized query
type CacheEntry struct {
	Query     string    `json:"query" db:"query"`
	Results   []byte    `json:"results" db:"results"` // JSON encoded []Product
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IsFresh reports whether the entry is still inside the ttl window at now.
func (e *CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) < ttl
}
