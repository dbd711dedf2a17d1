package marketplace

import (
	"strconv"
	"strings"

	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// newProduct builds a product, dropping it when title or url is missing
func newProduct(source, title, price, link string, rating float64, reviewCount int) (*Product, error) {
	if title == "" {
		return nil, errors.NewNormalization(source, "missing title")
	}
	if link == "" {
		return nil, errors.NewNormalization(source, "missing url for "+title)
	}

	return &Product{
		Title:       title,
		Price:       orUnavailable(price),
		URL:         link,
		Rating:      clampRating(rating),
		ReviewCount: clampCount(reviewCount),
	}, nil
}

// normalizeRegion lowercases a region and strips a leading dot ("co.uk")
func normalizeRegion(region string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(region)), ".")
}

// dollarPrice renders numeric strings as "$v" and defers everything else to priceFrom
func dollarPrice(v interface{}) string {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return "$" + s
		}
		return s
	}
	return priceFrom(v)
}
