package marketplace

import "net/url"

const (
	temuActor   = "LTBzVVq592mKgR6lU"
	temuBaseURL = "https://www.temu.com"
)

// TemuAdapter normalizes results of the Temu scraper actor.
// Temu nests prices and ratings in {value} objects.
type TemuAdapter struct {
	MaxItems int
}

func NewTemuAdapter(maxItems int) *TemuAdapter {
	return &TemuAdapter{MaxItems: maxItems}
}

func (a *TemuAdapter) Name() string    { return "temu" }
func (a *TemuAdapter) ActorID() string { return temuActor }

func (a *TemuAdapter) BuildQuery(term string) QuerySpec {
	return QuerySpec{
		"searchQueries": []interface{}{term},
		"maxItems":      a.MaxItems,
		"getReviews":    true,
		"saveImages":    false,
		"saveVideos":    false,
	}
}

func (a *TemuAdapter) Normalize(item RawItem) (*Product, error) {
	title := cleanText(firstString(item, "name", "title"))

	// Sale price wins over the original price
	price := dollarPrice(lookup(item, "salePrice.value"))
	if price == "" {
		price = dollarPrice(lookup(item, "originalPrice.value"))
	}
	if price == "" {
		price = firstPrice(item, "price")
	}

	link := resolveURL(temuBaseURL, firstString(item, "url"))
	if link == "" {
		if id := firstString(item, "id", "goodsId"); id != "" {
			link = temuBaseURL + "/" + url.PathEscape(id) + ".html"
		}
	}

	rating := firstNonZeroFloat(item, "rating.value", "rating")
	reviewCount := firstNonZeroInt(item, "reviewsCount")
	if reviews, ok := item["reviews"].([]interface{}); ok && len(reviews) > 0 {
		reviewCount = len(reviews)
	}

	product, err := newProduct(a.Name(), title, price, link, rating, reviewCount)
	if err != nil {
		return nil, err
	}

	shipping := firstString(item, "shipping.deliveryDays")
	if shipping == "" {
		shipping = PriceUnavailable
	}
	seller := firstString(item, "seller.name")
	if seller == "" {
		seller = "Temu"
	}
	product.Extras = map[string]string{
		ExtraShipping: shipping,
		ExtraSeller:   seller,
	}
	return product, nil
}
