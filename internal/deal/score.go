// Package deal ranks normalized products and picks the best deal.
package deal

import (
	"math"
	"strconv"
	"strings"

	"github.com/dealmungchi/bestdeal/helpers"
	"github.com/dealmungchi/bestdeal/internal/marketplace"
)

// Score weights. Rating dominates, then price, then review volume.
const (
	RatingWeight = 0.5
	PriceWeight  = 0.3
	ReviewWeight = 0.2

	maxRating        = 5.0
	reviewSaturation = 1000.0
	priceScale       = 1000.0
)

var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "")

// Score combines rating, price and review count into a value in (0, 1].
// It is only meaningful as a sort key between products scored together.
func Score(p marketplace.Product) float64 {
	ratingScore := p.Rating / maxRating
	reviewScore := math.Min(float64(p.ReviewCount)/reviewSaturation, 1.0)

	priceScore := 0.0
	if price := ExtractNumericPrice(p.Price); !math.IsInf(price, 1) {
		priceScore = priceScale / (price + priceScale)
	}

	return RatingWeight*ratingScore + PriceWeight*priceScore + ReviewWeight*reviewScore
}

// ExtractNumericPrice parses a display price such as "$1,299.99" or "123,45 €".
// It returns +Inf for anything it cannot read, so unpriced products never win
// on price.
func ExtractNumericPrice(price string) float64 {
	s := currencyStripper.Replace(price)
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return math.Inf(1)
	}

	value, err := strconv.ParseFloat(helpers.NormalizeSeparators(s), 64)
	if err != nil || math.IsNaN(value) || value < 0 {
		return math.Inf(1)
	}
	return value
}
