package marketplace

import (
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dealmungchi/bestdeal/helpers"
)

var leadingNumber = regexp.MustCompile(`^[-+]?[\d.,]*\d`)

// lookup resolves a dotted path ("salePrice.value") inside a raw item
func lookup(item RawItem, path string) interface{} {
	var current interface{} = item
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// stringValue coerces a scalar into a trimmed string
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// firstString returns the first non-empty value among paths
func firstString(item RawItem, paths ...string) string {
	for _, path := range paths {
		if s := stringValue(lookup(item, path)); s != "" {
			return s
		}
	}
	return ""
}

// toFloat coerces numbers and numeric strings. Strings such as
// "4.5 out of 5 stars" or "4,2 von 5 Sternen" yield their leading number.
func toFloat(v interface{}) (float64, bool) {
	return toNumber(v, helpers.NormalizeSeparators)
}

// toInt coerces like toFloat and truncates. Dot-grouped strings such as
// "1.234" count as thousands.
func toInt(v interface{}) (int, bool) {
	f, ok := toNumber(v, helpers.NormalizeCount)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func toNumber(v interface{}, normalize func(string) string) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		match := leadingNumber.FindString(strings.TrimSpace(val))
		if match == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(normalize(match), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// firstNonZeroFloat mirrors `a or b or 0` over numeric fields
func firstNonZeroFloat(item RawItem, paths ...string) float64 {
	for _, path := range paths {
		if f, ok := toFloat(lookup(item, path)); ok && f != 0 {
			return f
		}
	}
	return 0
}

// firstNonZeroInt mirrors `a or b or 0` over integer fields
func firstNonZeroInt(item RawItem, paths ...string) int {
	for _, path := range paths {
		if n, ok := toInt(lookup(item, path)); ok && n != 0 {
			return n
		}
	}
	return 0
}

// clampRating keeps a rating inside the 0-5 scale
func clampRating(rating float64) float64 {
	return math.Max(0, math.Min(5, rating))
}

// clampCount keeps a review count non-negative
func clampCount(count int) int {
	if count < 0 {
		return 0
	}
	return count
}

// ExtractReviews applies the shared review rule:
// rating = rating or stars or 0, review count = reviewsCount or numberOfReviews or 0.
func ExtractReviews(item RawItem) (float64, int) {
	rating := firstNonZeroFloat(item, "rating", "stars")
	count := firstNonZeroInt(item, "reviewsCount", "numberOfReviews")
	return clampRating(rating), clampCount(count)
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// formatAmount renders a number the way a price label shows it ("19.99", "50")
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// priceFrom renders one price candidate. Strings pass through, numbers get a
// dollar sign, and {value, currency} objects use their currency.
func priceFrom(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case map[string]interface{}:
		amount, ok := toFloat(val["value"])
		if !ok {
			return ""
		}
		return currencyPrefix(stringValue(val["currency"])) + formatAmount(amount)
	default:
		amount, ok := toFloat(val)
		if !ok {
			return ""
		}
		return "$" + formatAmount(amount)
	}
}

func currencyPrefix(currency string) string {
	switch {
	case currency == "":
		return "$"
	case currencySymbols[strings.ToUpper(currency)] != "":
		return currencySymbols[strings.ToUpper(currency)]
	case len([]rune(currency)) <= 2:
		return currency
	default:
		return strings.ToUpper(currency) + " "
	}
}

// firstPrice returns the first renderable price among paths
func firstPrice(item RawItem, paths ...string) string {
	for _, path := range paths {
		if price := priceFrom(lookup(item, path)); price != "" {
			return price
		}
	}
	return ""
}

// priceRange renders a min/max pair as "$5-$9", or "$5" when both ends match
func priceRange(item RawItem, minPath, maxPath string) string {
	low, hasLow := toFloat(lookup(item, minPath))
	high, hasHigh := toFloat(lookup(item, maxPath))

	switch {
	case hasLow && hasHigh && low == high:
		return "$" + formatAmount(low)
	case hasLow && hasHigh:
		return "$" + formatAmount(low) + "-$" + formatAmount(high)
	case hasLow:
		return "$" + formatAmount(low)
	case hasHigh:
		return "$" + formatAmount(high)
	default:
		return ""
	}
}

// orUnavailable substitutes the N/A sentinel for an empty price
func orUnavailable(price string) string {
	if price == "" {
		return PriceUnavailable
	}
	return price
}

// markupTag matches something shaped like an HTML tag; hasMarkup then checks
// the name so plain-text tokens such as "<Type-C>" are left alone.
var markupTag = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(\s[^<>]*)?/?>`)

var markupElements = map[atom.Atom]bool{
	atom.A: true, atom.B: true, atom.Br: true, atom.Div: true, atom.Em: true,
	atom.Font: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.I: true,
	atom.Li: true, atom.Mark: true, atom.P: true, atom.Small: true, atom.Span: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true, atom.U: true, atom.Ul: true,
}

func hasMarkup(s string) bool {
	for _, m := range markupTag.FindAllStringSubmatch(s, -1) {
		if markupElements[atom.Lookup([]byte(strings.ToLower(m[1])))] {
			return true
		}
	}
	return false
}

// cleanText reduces HTML fragments to their text, decodes entities and
// collapses whitespace. Strings without known tags are never parsed as HTML.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if hasMarkup(s) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	} else if strings.Contains(s, "&") {
		s = html.UnescapeString(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// resolveURL makes a scraped link absolute against the source's base URL
func resolveURL(base, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}

	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return link
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

// boolValue accepts booleans and "true"/"false" strings
func boolValue(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(val))
		return b
	default:
		return false
	}
}
