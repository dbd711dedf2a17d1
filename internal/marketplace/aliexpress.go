package marketplace

import (
	"net/url"
	"strings"
)

const (
	aliexpressActor   = "piotrv1001/aliexpress-listings-scraper"
	aliexpressBaseURL = "https://www.aliexpress.com"
)

// AliExpressAdapter normalizes results of the AliExpress listings actor
type AliExpressAdapter struct {
	ShipTo   string
	MaxItems int
}

func NewAliExpressAdapter(shipTo string, maxItems int) *AliExpressAdapter {
	shipTo = strings.ToUpper(strings.TrimSpace(shipTo))
	if shipTo == "" {
		shipTo = "US"
	}
	return &AliExpressAdapter{ShipTo: shipTo, MaxItems: maxItems}
}

func (a *AliExpressAdapter) Name() string    { return "aliexpress" }
func (a *AliExpressAdapter) ActorID() string { return aliexpressActor }

// WithRegion sets the destination country prices and shipping are quoted for
func (a *AliExpressAdapter) WithRegion(region string) Adapter {
	return NewAliExpressAdapter(region, a.MaxItems)
}

func (a *AliExpressAdapter) BuildQuery(term string) QuerySpec {
	return QuerySpec{
		"search":   term,
		"maxItems": a.MaxItems,
		"shipTo":   a.ShipTo,
	}
}

func (a *AliExpressAdapter) Normalize(item RawItem) (*Product, error) {
	title := cleanText(firstString(item, "title", "name"))

	price := firstPrice(item, "price", "salePrice", "originalPrice")
	if price == "" {
		price = priceRange(item, "minPrice", "maxPrice")
	}

	link := resolveURL(aliexpressBaseURL, firstString(item, "url", "productUrl", "link"))
	if link == "" {
		if id := firstString(item, "productId", "id"); id != "" {
			link = aliexpressBaseURL + "/item/" + url.PathEscape(id) + ".html"
		}
	}

	rating, reviewCount := ExtractReviews(item)
	if rating == 0 {
		rating = firstNonZeroFloat(item, "averageStar")
	}
	if reviewCount == 0 {
		reviewCount = firstNonZeroInt(item, "reviewCount")
	}

	return newProduct(a.Name(), title, price, link, rating, reviewCount)
}
