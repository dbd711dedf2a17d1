package marketplace

const (
	alibabaActor   = "piotrv1001/alibaba-listings-scraper"
	alibabaBaseURL = "https://www.alibaba.com"
)

// AlibabaAdapter normalizes results of the Alibaba listings actor.
// Listings are usually priced as a min/max range.
type AlibabaAdapter struct {
	MaxItems int
}

func NewAlibabaAdapter(maxItems int) *AlibabaAdapter {
	return &AlibabaAdapter{MaxItems: maxItems}
}

func (a *AlibabaAdapter) Name() string    { return "alibaba" }
func (a *AlibabaAdapter) ActorID() string { return alibabaActor }

func (a *AlibabaAdapter) BuildQuery(term string) QuerySpec {
	return QuerySpec{
		"search":    term,
		"maxItems":  a.MaxItems,
		"minOrders": 0,
	}
}

func (a *AlibabaAdapter) Normalize(item RawItem) (*Product, error) {
	title := cleanText(firstString(item, "title", "name"))

	price := priceRange(item, "minPrice", "maxPrice")
	if price == "" {
		price = firstPrice(item, "price")
	}

	link := resolveURL(alibabaBaseURL, firstString(item, "detailUrl", "url"))

	rating, reviewCount := ExtractReviews(item)
	return newProduct(a.Name(), title, price, link, rating, reviewCount)
}
