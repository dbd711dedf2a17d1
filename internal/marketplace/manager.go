package marketplace

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dealmungchi/bestdeal/internal/observability"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
)

var displayNames = map[string]string{
	"amazon":     "Amazon",
	"temu":       "Temu",
	"jumia":      "Jumia",
	"alibaba":    "Alibaba",
	"aliexpress": "AliExpress",
}

// Manager owns the registry of source clients. The registry is read-only
// after construction, so a Manager is safe for concurrent searches.
type Manager struct {
	clients     map[string]*Client
	order       []string
	concurrency int
	log         *logger.Logger
}

// NewManager registers clients in order. concurrency bounds how many sources
// SearchAll queries at once; values below one mean no bound.
func NewManager(concurrency int, clients ...*Client) *Manager {
	m := &Manager{
		clients:     make(map[string]*Client, len(clients)),
		concurrency: concurrency,
		log:         logger.ForManager(),
	}

	for _, client := range clients {
		name := client.Name()
		if _, exists := m.clients[name]; exists {
			m.log.Warn().Str("source", name).Msg("Duplicate source ignored")
			continue
		}
		m.clients[name] = client
		m.order = append(m.order, name)
	}

	return m
}

// Sources returns the registered source identifiers in registration order
func (m *Manager) Sources() []string {
	return append([]string(nil), m.order...)
}

// DisplayName returns the human readable name of a source
func (m *Manager) DisplayName(source string) string {
	if name, ok := displayNames[source]; ok {
		return name
	}
	return cases.Title(language.Und).String(source)
}

// SupportsRegion reports whether a registered source honors a region
func (m *Manager) SupportsRegion(source string) bool {
	client, ok := m.clients[source]
	return ok && client.SupportsRegion()
}

// SearchOne searches a single source and stamps its display name on every product
func (m *Manager) SearchOne(ctx context.Context, source, term, region string) ([]Product, error) {
	client, ok := m.clients[source]
	if !ok {
		return nil, errors.NewUnknownSource(source)
	}

	start := time.Now()
	products, err := client.Search(ctx, term, region)
	observability.SearchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.SearchesTotal.WithLabelValues(source, "failed").Inc()
		return nil, err
	}

	name := m.DisplayName(source)
	for i := range products {
		products[i].Marketplace = name
	}

	outcome := "ok"
	if len(products) == 0 {
		outcome = "empty"
	}
	observability.SearchesTotal.WithLabelValues(source, outcome).Inc()

	return products, nil
}

// SearchAll searches every registered source concurrently. A failing source
// is logged and reported as an empty list; every source has an entry.
func (m *Manager) SearchAll(ctx context.Context, term string) map[string][]Product {
	results, _ := m.SearchAllDetailed(ctx, term)
	return results
}

// SearchAllDetailed is SearchAll that also returns the error of every source
// that failed.
func (m *Manager) SearchAllDetailed(ctx context.Context, term string) (map[string][]Product, map[string]error) {
	slots := make([][]Product, len(m.order))
	errs := make([]error, len(m.order))

	// Plain group: one source failing must not cancel the others
	var g errgroup.Group
	if m.concurrency > 0 {
		g.SetLimit(m.concurrency)
	}

	for i, source := range m.order {
		g.Go(func() error {
			products, err := m.SearchOne(ctx, source, term, "")
			if err != nil {
				m.log.Error().Err(err).Str("source", source).Msg("Error searching source")
				errs[i] = err
				return nil
			}
			m.log.Info().Str("source", source).Int("products", len(products)).Msg("Found products")
			slots[i] = products
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string][]Product, len(m.order))
	failures := make(map[string]error)
	for i, source := range m.order {
		if slots[i] == nil {
			slots[i] = []Product{}
		}
		results[source] = slots[i]
		if errs[i] != nil {
			failures[source] = errs[i]
		}
	}
	return results, failures
}
