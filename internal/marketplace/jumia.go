package marketplace

import "strings"

const jumiaActor = "easyapi/jumia-product-scraper"

// jumiaHosts maps the actor's country names to storefront hosts
var jumiaHosts = map[string]string{
	"kenya":       "https://www.jumia.co.ke",
	"nigeria":     "https://www.jumia.com.ng",
	"egypt":       "https://www.jumia.com.eg",
	"morocco":     "https://www.jumia.ma",
	"ghana":       "https://www.jumia.com.gh",
	"uganda":      "https://www.jumia.ug",
	"ivory-coast": "https://www.jumia.ci",
	"senegal":     "https://www.jumia.sn",
	"tunisia":     "https://www.jumia.com.tn",
	"algeria":     "https://www.jumia.dz",
}

// JumiaAdapter normalizes results of the Jumia product scraper actor
type JumiaAdapter struct {
	Country  string
	MaxItems int
}

func NewJumiaAdapter(country string, maxItems int) *JumiaAdapter {
	country = strings.ReplaceAll(normalizeRegion(country), " ", "-")
	if country == "" {
		country = "kenya"
	}
	return &JumiaAdapter{Country: country, MaxItems: maxItems}
}

func (a *JumiaAdapter) Name() string    { return "jumia" }
func (a *JumiaAdapter) ActorID() string { return jumiaActor }

func (a *JumiaAdapter) WithRegion(region string) Adapter {
	return NewJumiaAdapter(region, a.MaxItems)
}

func (a *JumiaAdapter) BuildQuery(term string) QuerySpec {
	return QuerySpec{
		"search":      term,
		"maxProducts": a.MaxItems,
		"country":     a.Country,
	}
}

func (a *JumiaAdapter) Normalize(item RawItem) (*Product, error) {
	title := cleanText(firstString(item, "name", "title"))
	price := firstPrice(item, "price")

	// Jumia results carry no identifier to rebuild a link from
	link := firstString(item, "url", "link")
	if host, ok := jumiaHosts[a.Country]; ok {
		link = resolveURL(host, link)
	}

	rating, reviewCount := ExtractReviews(item)
	return newProduct(a.Name(), title, price, link, rating, reviewCount)
}
