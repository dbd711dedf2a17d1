package deal

import (
	"github.com/dealmungchi/bestdeal/internal/marketplace"
	"github.com/dealmungchi/bestdeal/logger"
)

// SelectBest returns the highest scoring product that has a title, price and url.
// Ties go to the earliest product. It returns nil when nothing qualifies.
func SelectBest(products []marketplace.Product) *marketplace.Product {
	return selectBest(products, Score)
}

func selectBest(products []marketplace.Product, score func(marketplace.Product) float64) *marketplace.Product {
	if len(products) == 0 {
		return nil
	}

	valid := make([]marketplace.Product, 0, len(products))
	for _, p := range products {
		if p.Title != "" && p.Price != "" && p.URL != "" {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	best := maxByScore(valid, score)
	return &best
}

// maxByScore falls back to the first product if scoring panics
func maxByScore(valid []marketplace.Product, score func(marketplace.Product) float64) (best marketplace.Product) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Error selecting best deal: %v", r)
			best = valid[0]
		}
	}()

	best = valid[0]
	bestScore := score(best)
	for _, p := range valid[1:] {
		if s := score(p); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best
}

// BestByRating returns the product with the highest rating, earliest first
// on ties. It is the cheaper ranking used for per-source picks in the
// combined view.
func BestByRating(products []marketplace.Product) *marketplace.Product {
	if len(products) == 0 {
		return nil
	}

	best := 0
	for i := 1; i < len(products); i++ {
		if products[i].Rating > products[best].Rating {
			best = i
		}
	}

	p := products[best]
	return &p
}
