package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopsense/backend/internal/domain"
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	priceColor  = color.New(color.FgGreen)
	ratingColor = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
	warnColor   = color.New(color.FgYellow)
)

// printer renders products for the terminal or as JSON
type printer struct {
	out  io.Writer
	json bool
}

func (p *printer) products(products []domain.Product, cached bool) error {
	if p.json {
		return p.encode(domain.SearchResponse{Products: products, Cached: cached})
	}

	if len(products) == 0 {
		warnColor.Fprintln(p.out, "No products found")
		return nil
	}

	source := "live"
	if cached {
		source = "cached"
	}
	dimColor.Fprintf(p.out, "%d products (%s)\n\n", len(products), source)

	for i, product := range products {
		titleColor.Fprintf(p.out, "%d. %s\n", i+1, product.Title)
		priceColor.Fprintf(p.out, "   $%.2f", product.Price)
		ratingColor.Fprintf(p.out, "  %s %.1f", stars(product.Rating), product.Rating)
		fmt.Fprintf(p.out, "  (%d reviews)  score %d\n", product.ReviewCount, product.RelevanceScore)
		dimColor.Fprintf(p.out, "   %s\n", product.AmazonLink)
		for _, review := range product.Reviews {
			p.review(review, "   ")
		}
		fmt.Fprintln(p.out)
	}
	return nil
}

func (p *printer) reviews(reviews []domain.Review) error {
	if p.json {
		return p.encode(reviews)
	}
	if len(reviews) == 0 {
		warnColor.Fprintln(p.out, "No reviews found")
		return nil
	}
	for _, review := range reviews {
		p.review(review, "")
	}
	return nil
}

func (p *printer) review(review domain.Review, indent string) {
	ratingColor.Fprintf(p.out, "%s> %s", indent, stars(review.Rating))
	fmt.Fprintf(p.out, " %s", review.Title)
	dimColor.Fprintf(p.out, " - %s, %s\n", review.Reviewer, review.Date)
	if review.Body != "" {
		fmt.Fprintf(p.out, "%s  %s\n", indent, review.Body)
	}
}

func (p *printer) encode(v any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// stars renders a rating as filled and empty stars, rounded to the nearest whole star
func stars(rating float64) string {
	filled := int(rating + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}
