package marketplace

import "context"

// RawItem is one unnormalized record returned by a scraping delegate
type RawItem = map[string]interface{}

// QuerySpec is the input object for one delegate run
type QuerySpec = map[string]interface{}

// PriceUnavailable is the display price used when no price could be resolved
const PriceUnavailable = "N/A"

// Extra keys carried on Product.Extras
const (
	ExtraASIN     = "asin"
	ExtraIsPrime  = "is_prime"
	ExtraShipping = "shipping"
	ExtraSeller   = "seller"
)

// Product represents a normalized search result
type Product struct {
	Title       string            `json:"title"`
	Price       string            `json:"price"`
	URL         string            `json:"url"`
	Marketplace string            `json:"marketplace"`
	Rating      float64           `json:"rating"`
	ReviewCount int               `json:"review_count"`
	Extras      map[string]string `json:"extras,omitempty"`
}

// Adapter turns one source's raw items into products
type Adapter interface {
	// Name returns the source identifier
	Name() string

	// ActorID returns the delegate actor that crawls this source
	ActorID() string

	// BuildQuery maps a free-text search term into the actor input
	BuildQuery(term string) QuerySpec

	// Normalize converts a raw item into a product. A dropped item returns
	// a nil product and a normalization error.
	Normalize(item RawItem) (*Product, error)
}

// RegionalAdapter is implemented by adapters whose query depends on a region
type RegionalAdapter interface {
	Adapter

	// WithRegion returns a copy of the adapter bound to region
	WithRegion(region string) Adapter
}

// Delegate runs a remote scraping actor and returns its raw items.
// Call blocks until the run has finished.
type Delegate interface {
	Call(ctx context.Context, actorID string, input QuerySpec) ([]RawItem, error)
}
