package marketplace

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dealmungchi/bestdeal/internal/observability"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
	"github.com/dealmungchi/bestdeal/services/cache"
)

// Client runs one full search against one source: it owns the source's
// adapter and its binding to a scraping delegate.
type Client struct {
	adapter   Adapter
	delegate  Delegate
	cacheSvc  cache.CacheService
	blockTime time.Duration
	log       *logger.Logger
}

// NewClient creates a source client. cacheSvc may be nil, which disables
// the cooldown after a rate-limited delegate call.
func NewClient(adapter Adapter, delegate Delegate, cacheSvc cache.CacheService, blockTime time.Duration) *Client {
	return &Client{
		adapter:   adapter,
		delegate:  delegate,
		cacheSvc:  cacheSvc,
		blockTime: blockTime,
		log:       logger.ForSource(adapter.Name()),
	}
}

// Name returns the source identifier
func (c *Client) Name() string {
	return c.adapter.Name()
}

// SupportsRegion reports whether Search honors a region
func (c *Client) SupportsRegion() bool {
	_, ok := c.adapter.(RegionalAdapter)
	return ok
}

func (c *Client) cacheKey() string {
	return c.Name() + "_rate_limited"
}

// Search submits term to the delegate and normalizes every returned item.
// Items that cannot be normalized are skipped; a delegate failure is returned.
func (c *Client) Search(ctx context.Context, term, region string) ([]Product, error) {
	blocked, err := c.cooldownActive()
	if err != nil {
		c.log.Warn().Err(err).Msg("Ignoring cooldown")
	}
	if blocked {
		return nil, errors.NewRateLimit(c.Name(), c.blockTime)
	}

	adapter := c.adapter
	if regional, ok := adapter.(RegionalAdapter); ok && region != "" {
		adapter = regional.WithRegion(region)
	}

	start := time.Now()
	c.log.Debug().
		Str("actor", adapter.ActorID()).
		Str("term", term).
		Str("region", region).
		Msg("Starting delegate run")

	items, err := c.delegate.Call(ctx, adapter.ActorID(), adapter.BuildQuery(term))
	if err != nil {
		if errors.IsRateLimit(err) {
			if cacheErr := c.startCooldown(); cacheErr != nil {
				c.log.Warn().Err(cacheErr).Msg("Source rate limited without cooldown")
			}
		}
		if errors.TypeOf(err) == "" {
			err = errors.NewDelegate(c.Name(), "delegate call failed", err)
		}
		c.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Delegate run failed")
		return nil, err
	}

	products := make([]Product, 0, len(items))
	dropped := 0
	for i, item := range items {
		product, err := normalizeItem(adapter, item)
		if err != nil {
			dropped++
			c.log.Debug().Err(err).Int("index", i).Msg("Skipping item")
			continue
		}
		products = append(products, *product)
	}

	observability.ItemsReceived.WithLabelValues(c.Name()).Add(float64(len(items)))
	observability.ItemsDropped.WithLabelValues(c.Name()).Add(float64(dropped))

	c.log.Info().
		Int("items", len(items)).
		Int("products", len(products)).
		Int("dropped", dropped).
		Dur("elapsed", time.Since(start)).
		Msg("Search finished")

	return products, nil
}

// normalizeItem runs the adapter on one item, turning a panic or an
// incomplete product into a normalization error.
func normalizeItem(adapter Adapter, item RawItem) (product *Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			product = nil
			err = errors.NewNormalization(adapter.Name(), fmt.Sprintf("panic while normalizing: %v", r))
		}
	}()

	product, err = adapter.Normalize(item)
	if err != nil {
		return nil, err
	}
	if product == nil || product.Title == "" || product.URL == "" {
		return nil, errors.NewNormalization(adapter.Name(), "incomplete product")
	}
	return product, nil
}

// cooldownActive reports whether the source is blocked after a rate limit.
// Cache failures come back as cache errors with the source unblocked.
func (c *Client) cooldownActive() (bool, error) {
	if c.cacheSvc == nil {
		return false, nil
	}
	_, err := c.cacheSvc.Get(c.cacheKey())
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, cache.ErrMiss):
		return false, nil
	default:
		return false, errors.NewCache(c.Name(), "cooldown lookup failed", err)
	}
}

func (c *Client) startCooldown() error {
	if c.cacheSvc == nil || c.blockTime <= 0 {
		return nil
	}
	value := []byte(strconv.Itoa(int(c.blockTime / time.Second)))
	if err := c.cacheSvc.Set(c.cacheKey(), value, c.blockTime); err != nil {
		return errors.NewCache(c.Name(), "failed to store cooldown", err)
	}
	c.log.Warn().Dur("block_time", c.blockTime).Msg("Source rate limited, cooling down")
	return nil
}
