package usecase

import (
	"strings"

	"github.com/shopsense/backend/internal/domain"
)

// Relevance score weights
const (
	phraseMatchScore  = 100
	tokenMatchScore   = 10
	maxPositionBonus  = 20
	minScoredTokenLen = 3
)

// Score rates how well a product title matches the search keywords.
// Matching is case-insensitive and the result is never negative.
func Score(title, keywords string) int {
	title = strings.ToLower(title)
	keywords = strings.ToLower(strings.TrimSpace(keywords))
	if title == "" || keywords == "" {
		return 0
	}

	score := 0
	if strings.Contains(title, keywords) {
		score += phraseMatchScore
	}

	tokens := strings.Fields(keywords)
	for _, token := range tokens {
		if len(token) >= minScoredTokenLen && strings.Contains(title, token) {
			score += tokenMatchScore
		}
	}

	// earlier mention of the leading keyword ranks higher
	if idx := strings.Index(title, tokens[0]); idx >= 0 {
		score += max(0, maxPositionBonus-idx)
	}

	return score
}

// Annotate sets RelevanceScore on every product in place
func Annotate(products []domain.Product, keywords string) {
	for i := range products {
		products[i].RelevanceScore = Score(products[i].Title, keywords)
	}
}
