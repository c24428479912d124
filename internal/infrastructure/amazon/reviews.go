package amazon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopsense/backend/internal/domain"
)

// Review extraction bounds
const (
	MaxReviews          = 3
	MaxReviewCandidates = 8
	MaxReviewBodyLength = 300
	RecencyWindowMonths = 3
)

const (
	defaultReviewer   = "Amazon Customer"
	recentDateLabel   = "Recent"
	reviewDateDisplay = "Jan 2, 2006"
)

var reviewSelectors = []string{
	`[data-hook="review"]`,
	`.review`,
}

var reviewRatingSelectors = []string{
	`[data-hook="review-star-rating"]`,
	`[data-hook="cmps-review-star-rating"]`,
}

var (
	reviewDatePattern   = regexp.MustCompile(`on\s+([A-Za-z]+)\s+(\d{1,2}),\s*(\d{4})`)
	reviewRatingPattern = regexp.MustCompile(`(?i)([\d.]+)\s*out\s*of`)
	titleStarsPrefix    = regexp.MustCompile(`(?i)^\s*[\d.]+\s*out\s*of\s*5\s*stars\s*`)
	readMoreSuffix      = regexp.MustCompile(`(?i)\s*read\s+more\s*$`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// ExtractReviews parses a review page and returns at most MaxReviews recent
// reviews. Only the first MaxReviewCandidates review nodes are inspected.
func ExtractReviews(html string, now time.Time) []domain.Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return ParseReviews(doc, now)
}

// ParseReviews applies the review extraction rules to a parsed document
func ParseReviews(doc *goquery.Document, now time.Time) []domain.Review {
	var nodes *goquery.Selection
	for _, selector := range reviewSelectors {
		nodes = doc.Find(selector)
		if nodes.Length() > 0 {
			break
		}
	}

	cutoff := now.AddDate(0, -RecencyWindowMonths, 0)
	reviews := make([]domain.Review, 0, MaxReviews)
	inspected := 0

	nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if inspected >= MaxReviewCandidates || len(reviews) >= MaxReviews {
			return false
		}
		inspected++

		review, err := parseReviewNode(node, cutoff)
		if err == nil {
			reviews = append(reviews, review)
		}
		return len(reviews) < MaxReviews
	})

	return reviews
}

func parseReviewNode(node *goquery.Selection, cutoff time.Time) (review domain.Review, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic while parsing review: %v", domain.ErrParse, r)
		}
	}()

	date, dated := parseReviewDate(node.Find(`[data-hook="review-date"]`).First().Text())
	if dated && date.Before(cutoff) {
		return review, fmt.Errorf("%w: review from %s is older than cutoff", domain.ErrParse, date.Format(reviewDateDisplay))
	}

	rating := reviewRating(node)
	if rating <= 0 {
		return review, fmt.Errorf("%w: review without rating", domain.ErrParse)
	}

	title := collapse(node.Find(`[data-hook="review-title"]`).First().Text())
	title = strings.TrimSpace(titleStarsPrefix.ReplaceAllString(title, ""))

	body := collapse(node.Find(`[data-hook="review-body"]`).First().Text())
	body = truncate(strings.TrimSpace(readMoreSuffix.ReplaceAllString(body, "")), MaxReviewBodyLength)

	if title == "" && body == "" {
		return review, fmt.Errorf("%w: empty review", domain.ErrParse)
	}

	reviewer := collapse(node.Find(".a-profile-name").First().Text())
	if reviewer == "" {
		reviewer = defaultReviewer
	}

	display := recentDateLabel
	if dated {
		display = date.Format(reviewDateDisplay)
	}

	return domain.Review{
		Rating:   rating,
		Title:    title,
		Body:     body,
		Reviewer: reviewer,
		Date:     display,
	}, nil
}

// parseReviewDate reads "... on March 5, 2024" style text
func parseReviewDate(text string) (time.Time, bool) {
	match := reviewDatePattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}
	value := fmt.Sprintf("%s %s, %s", match[1], match[2], match[3])
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func reviewRating(node *goquery.Selection) float64 {
	for _, selector := range reviewRatingSelectors {
		match := reviewRatingPattern.FindStringSubmatch(node.Find(selector).First().Text())
		if match == nil {
			continue
		}
		if rating, ok := parseRating(match[1]); ok {
			return rating
		}
	}
	return 0
}

// PlaceholderReview is substituted when a product ends up with no reviews
func PlaceholderReview(productRating float64) domain.Review {
	rating := productRating
	if rating <= 0 {
		rating = 4.5
	}
	return domain.Review{
		Rating:   rating,
		Title:    "No recent reviews",
		Body:     "",
		Reviewer: "System",
		Date:     "N/A",
	}
}

func collapse(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
