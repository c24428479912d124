package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/domain"
)

// KeywordSource reports which path produced the keywords
type KeywordSource string

const (
	SourceModel    KeywordSource = "llm"
	SourceFallback KeywordSource = "fallback"
)

// KeywordResult is the outcome of normalizing a raw query
type KeywordResult struct {
	Keywords string
	Source   KeywordSource
}

var (
	// Conversational lead-ins and vague qualifiers that never help a marketplace search
	stopPhrasePattern = regexp.MustCompile(`\b(i need|i want|i'm|im|looking for|best|find me|show me|get me|good|great)\b`)

	// Characters the model sometimes wraps its answer in
	completionNoisePattern = regexp.MustCompile(`[\r\n"]`)
)

// stopWords are articles and prepositions dropped by the local transform
var stopWords = map[string]bool{
	"a":    true,
	"an":   true,
	"the":  true,
	"for":  true,
	"to":   true,
	"in":   true,
	"on":   true,
	"at":   true,
	"with": true,
}

const keywordPromptTemplate = `Simplify this shopping request into a marketplace search: "%s"

Extract 2-5 essential keywords. Remove filler words (I want, I need, looking for, best, good, great, a, an, the).
Keep brand names and product names exactly as written.

Examples:
"I want a good water bottle for school" -> water bottle school
"looking for sony wireless headphones with noise cancelling" -> sony wireless headphones noise cancelling
"I need running shoes for a marathon" -> running shoes marathon

Answer with the keywords only:`

// KeywordNormalizer turns a free-text request into a short search phrase
type KeywordNormalizer struct {
	generator domain.KeywordGenerator
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewKeywordNormalizer creates a normalizer. A nil generator means every
// query takes the local path.
func NewKeywordNormalizer(generator domain.KeywordGenerator, timeout time.Duration, logger zerolog.Logger) *KeywordNormalizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeywordNormalizer{
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// BuildKeywordPrompt renders the fixed instruction for a query
func BuildKeywordPrompt(query string) string {
	return fmt.Sprintf(keywordPromptTemplate, strings.ReplaceAll(query, `"`, `'`))
}

// Normalize never fails: any generator problem resolves to FallbackKeywords
func (n *KeywordNormalizer) Normalize(ctx context.Context, rawQuery string) KeywordResult {
	keywords, err := n.generate(ctx, rawQuery)
	if err == nil {
		keywords = cleanCompletion(keywords)
		if keywords == "" {
			err = fmt.Errorf("%w: answer was only noise", domain.ErrEmptyCompletion)
		}
	}

	if err != nil {
		fallback := FallbackKeywords(rawQuery)
		n.logger.Debug().
			Err(err).
			Str("kind", domain.Classify(err).String()).
			Str("action", string(ResolveFallback(OpKeywords, err))).
			Str("keywords", fallback).
			Msg("keyword model unavailable, using local transform")
		return KeywordResult{Keywords: fallback, Source: SourceFallback}
	}

	n.logger.Debug().Str("query", rawQuery).Str("keywords", keywords).Msg("keywords from model")
	return KeywordResult{Keywords: keywords, Source: SourceModel}
}

// generate calls the model, converting a panic into an error
func (n *KeywordNormalizer) generate(ctx context.Context, rawQuery string) (keywords string, err error) {
	if n.generator == nil {
		return "", domain.ErrGeneratorDisabled
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("keyword generator panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.generator.GenerateKeywords(ctx, BuildKeywordPrompt(rawQuery))
}

// cleanCompletion strips newlines and quotes and collapses whitespace
func cleanCompletion(s string) string {
	s = completionNoisePattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// FallbackKeywords is the deterministic local transform. It returns the raw
// query unchanged when nothing survives.
func FallbackKeywords(rawQuery string) string {
	cleaned := strings.ToLower(rawQuery)
	cleaned = stopPhrasePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, ",", " ")

	words := strings.Fields(cleaned)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !stopWords[word] {
			kept = append(kept, word)
		}
	}

	if len(kept) == 0 {
		return rawQuery
	}
	return strings.Join(kept, " ")
}
