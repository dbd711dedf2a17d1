package marketplace

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

const (
	amazonActor         = "junglee/Amazon-crawler"
	defaultAmazonRegion = "com"
)

// amazonRegion is a storefront TLD such as "com", "de" or "co.uk"
var amazonRegion = regexp.MustCompile(`^[a-z]{2,3}(\.[a-z]{2})?$`)

// AmazonAdapter normalizes results of the Amazon crawler actor
type AmazonAdapter struct {
	Region   string
	MaxItems int
}

// NewAmazonAdapter creates an adapter for amazon.<region>. Anything that is
// not a storefront TLD falls back to amazon.com.
func NewAmazonAdapter(region string, maxItems int) *AmazonAdapter {
	if region = normalizeRegion(region); !amazonRegion.MatchString(region) {
		region = defaultAmazonRegion
	}
	return &AmazonAdapter{Region: region, MaxItems: maxItems}
}

func (a *AmazonAdapter) Name() string    { return "amazon" }
func (a *AmazonAdapter) ActorID() string { return amazonActor }

// WithRegion returns a copy of the adapter for another Amazon storefront.
// An invalid region keeps the receiver's storefront.
func (a *AmazonAdapter) WithRegion(region string) Adapter {
	if region = normalizeRegion(region); !amazonRegion.MatchString(region) {
		region = a.Region
	}
	return NewAmazonAdapter(region, a.MaxItems)
}

func (a *AmazonAdapter) baseURL() string {
	return "https://www.amazon." + a.Region
}

// BuildQuery searches through the storefront's search page only
func (a *AmazonAdapter) BuildQuery(term string) QuerySpec {
	searchURL := fmt.Sprintf("%s/s?k=%s", a.baseURL(), url.QueryEscape(term))

	return QuerySpec{
		"categoryOrProductUrls":                []interface{}{map[string]interface{}{"url": searchURL}},
		"maxItemsPerStartUrl":                  a.MaxItems,
		"proxyCountry":                         "AUTO_SELECT_PROXY_COUNTRY",
		"maxOffers":                            0,
		"scrapeSellers":                        false,
		"ensureLoadedProductDescriptionFields": false,
		"useCaptchaSolver":                     false,
		"scrapeProductVariantPrices":           false,
		"scrapeProductDetails":                 false,
		"locationDeliverableRoutes":            []interface{}{"SEARCH"},
	}
}

func (a *AmazonAdapter) Normalize(item RawItem) (*Product, error) {
	title := cleanText(firstString(item, "title"))
	price := firstPrice(item, "price", "currentPrice", "listPrice")

	asin := firstString(item, "asin")
	link := resolveURL(a.baseURL(), firstString(item, "url", "itemUrl", "link"))
	if link == "" && asin != "" {
		link = a.baseURL() + "/dp/" + url.PathEscape(asin)
	}

	rating, reviewCount := ExtractReviews(item)
	product, err := newProduct(a.Name(), title, price, link, rating, reviewCount)
	if err != nil {
		return nil, err
	}

	isPrime := boolValue(item["isAmazonPrime"]) || boolValue(item["isPrime"])
	product.Extras = map[string]string{ExtraIsPrime: strconv.FormatBool(isPrime)}
	if asin != "" {
		product.Extras[ExtraASIN] = asin
	}
	return product, nil
}
