package amazon

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strategy extracts one field from a product node. The bool reports success.
type strategy[T any] func(node *goquery.Selection) (T, bool)

// firstOf applies the strategies in order and returns the first success
func firstOf[T any](node *goquery.Selection, strategies ...strategy[T]) (T, bool) {
	for _, s := range strategies {
		if value, ok := s(node); ok {
			return value, true
		}
	}
	var zero T
	return zero, false
}

var (
	dollarAmountPattern  = regexp.MustCompile(`\$([\d,.]+)`)
	starsLabelPattern    = regexp.MustCompile(`(?i)([\d.]+)\s*out\s*of\s*5\s*stars`)
	leadingNumberPattern = regexp.MustCompile(`([\d.]+)`)
	outOfFivePattern     = regexp.MustCompile(`(?i)([\d.]+)\s*out\s*of\s*5`)
	countLabelPattern    = regexp.MustCompile(`(?i)([\d,]+)\s*(rating|review)s?`)

	// tried in order against the node text, first match wins
	countTextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([\d,]+)\s*ratings?`),
		regexp.MustCompile(`(?i)([\d,]+)\s*reviews?`),
		regexp.MustCompile(`\(([\d,]+)\)`),
	}
)

// textAt returns a strategy reading the trimmed text under selector
func textAt(selector string) strategy[string] {
	return func(node *goquery.Selection) (string, bool) {
		text := strings.TrimSpace(node.Find(selector).Text())
		return text, text != ""
	}
}

// attrAt returns a strategy reading an attribute of the first match of selector
func attrAt(selector, attr string) strategy[string] {
	return func(node *goquery.Selection) (string, bool) {
		value := strings.TrimSpace(node.Find(selector).First().AttrOr(attr, ""))
		return value, value != ""
	}
}

// ariaLabels collects every aria-label below the node in document order
func ariaLabels(node *goquery.Selection) []string {
	var labels []string
	node.Find("[aria-label]").Each(func(_ int, s *goquery.Selection) {
		if label, ok := s.Attr("aria-label"); ok {
			labels = append(labels, label)
		}
	})
	return labels
}

func identifier(node *goquery.Selection) (string, bool) {
	asin := strings.TrimSpace(node.AttrOr("data-asin", ""))
	return asin, asin != ""
}

var titleStrategies = []strategy[string]{
	textAt("h2 a span"),
	textAt("h2 span"),
	textAt(".a-text-normal"),
}

func priceFromWholeAndFraction(node *goquery.Selection) (float64, bool) {
	whole := strings.TrimSpace(node.Find(".a-price-whole").First().Text())
	whole = strings.NewReplacer(",", "", "$", "").Replace(whole)
	// the whole part is rendered with its decimal point, e.g. "24."
	whole = strings.TrimRight(whole, ".")
	if whole == "" {
		return 0, false
	}
	fraction := strings.TrimSpace(node.Find(".a-price-fraction").First().Text())
	if fraction == "" {
		fraction = "00"
	}
	return positiveFloat(whole + "." + fraction)
}

func priceFromOffscreen(node *goquery.Selection) (float64, bool) {
	text := node.Find(".a-price .a-offscreen").First().Text()
	match := dollarAmountPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	return positiveFloat(strings.ReplaceAll(match[1], ",", ""))
}

var priceStrategies = []strategy[float64]{
	priceFromWholeAndFraction,
	priceFromOffscreen,
}

func ratingFromAriaLabel(node *goquery.Selection) (float64, bool) {
	for _, label := range ariaLabels(node) {
		if match := starsLabelPattern.FindStringSubmatch(label); match != nil {
			return parseRating(match[1])
		}
	}
	return 0, false
}

func ratingFromIconAlt(node *goquery.Selection) (float64, bool) {
	text := node.Find(".a-icon-star-small .a-icon-alt").First().Text()
	match := leadingNumberPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	return parseRating(match[1])
}

func ratingFromText(node *goquery.Selection) (float64, bool) {
	match := outOfFivePattern.FindStringSubmatch(node.Text())
	if match == nil {
		return 0, false
	}
	return parseRating(match[1])
}

var ratingStrategies = []strategy[float64]{
	ratingFromAriaLabel,
	ratingFromIconAlt,
	ratingFromText,
}

// reviewCountFromAriaLabels takes the largest count across all labels since a
// node may carry several conflicting ones
func reviewCountFromAriaLabels(node *goquery.Selection) (int, bool) {
	best := 0
	for _, label := range ariaLabels(node) {
		match := countLabelPattern.FindStringSubmatch(label)
		if match == nil {
			continue
		}
		if count, ok := parseCount(match[1]); ok && count > best {
			best = count
		}
	}
	return best, best > 0
}

func reviewCountFromText(node *goquery.Selection) (int, bool) {
	text := node.Text()
	for _, pattern := range countTextPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return parseCount(match[1])
		}
	}
	return 0, false
}

var reviewCountStrategies = []strategy[int]{
	reviewCountFromAriaLabels,
	reviewCountFromText,
}

var imageStrategies = []strategy[string]{
	attrAt(".s-image", "src"),
	attrAt("img", "src"),
}

func positiveFloat(s string) (float64, bool) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func parseRating(s string) (float64, bool) {
	value, ok := positiveFloat(s)
	if !ok || value > 5 {
		return 0, false
	}
	return value, true
}

func parseCount(s string) (int, bool) {
	value, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}
